package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/dmake/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneBuild PaneID = iota
	PaneStatus
	paneCount
)

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	buildPane   BuildPaneModel
	statusPane  StatusPaneModel
	focusedPane PaneID
	buildSub    <-chan events.Event // Lifecycle events, never crowded out by output
	outputSub   <-chan events.Event
	width       int
	height      int
	quitting    bool
}

// New creates a new TUI model.
// Build lifecycle and make output are separate subscriptions: a burst of
// output may overflow the output buffer, but the finished event still arrives.
func New(eventBus *events.EventBus) Model {
	m := Model{
		buildPane:   NewBuildPaneModel(),
		statusPane:  NewStatusPaneModel(),
		focusedPane: PaneBuild,
		buildSub:    eventBus.Subscribe(events.TopicBuild, events.DefaultBufferSize),
		outputSub:   eventBus.Subscribe(events.TopicOutput, events.DefaultBufferSize),
	}
	m.updateFocusStates()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.buildSub), waitForEvent(m.outputSub))
}

// busClosedMsg is sent once a subscription channel is drained and closed.
type busClosedMsg struct{}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return busClosedMsg{}
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneBuild
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneStatus
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneBuild {
				var cmd tea.Cmd
				m.buildPane, cmd = m.buildPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case tickMsg:
		var cmd tea.Cmd
		m.buildPane, cmd = m.buildPane.Update(msg)
		cmds = append(cmds, cmd)

	case events.MakefileWrittenEvent, events.BuildStartedEvent, events.BuildFinishedEvent:
		var cmd tea.Cmd
		m.buildPane, cmd = m.buildPane.Update(msg)
		cmds = append(cmds, cmd)
		m.statusPane, cmd = m.statusPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.buildSub))

	case events.BuildOutputEvent:
		var cmd tea.Cmd
		m.buildPane, cmd = m.buildPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.outputSub))

	case busClosedMsg:
		// Stop listening; the final state stays on screen until the user quits.
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	mainContent := lipgloss.JoinVertical(lipgloss.Left, m.buildPane.View(), m.statusPane.View())
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, HelpView())
}

// Finished reports whether the build shown by the model has ended.
func (m Model) Finished() bool {
	return m.statusPane.Finished()
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	availableHeight := m.height - 1 // help bar
	buildHeight := (availableHeight * 70) / 100
	statusHeight := availableHeight - buildHeight

	m.buildPane.SetSize(m.width, buildHeight)
	m.statusPane.SetSize(m.width, statusHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.buildPane.SetFocused(m.focusedPane == PaneBuild)
	m.statusPane.SetFocused(m.focusedPane == PaneStatus)
}
