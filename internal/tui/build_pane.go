package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/dmake/internal/events"
)

const targetListWidth = 30

// BuildPaneModel lists the targets of the Makefile next to a scrollable view
// of everything make printed.
type BuildPaneModel struct {
	targets     []string
	selectedIdx int
	output      []string
	viewport    viewport.Model
	follow      bool // Keep the viewport pinned to the newest line
	width       int
	height      int
	focused     bool
	updateTag   int // for debouncing
}

// NewBuildPaneModel creates a new build pane model.
func NewBuildPaneModel() BuildPaneModel {
	vp := viewport.New(0, 0)
	return BuildPaneModel{
		viewport: vp,
		follow:   true,
	}
}

// tickMsg is used for debouncing viewport updates.
type tickMsg struct {
	tag int
}

// Update handles messages for the build pane.
func (m BuildPaneModel) Update(msg tea.Msg) (BuildPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.targets)-1 {
				m.selectedIdx++
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case KeyEnd:
			m.follow = true
			m.viewport.GotoBottom()
		default:
			// Other keys scroll the output and stop following
			m.follow = false
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.MakefileWrittenEvent:
		m.targets = append([]string(nil), msg.Targets...)
		m.selectedIdx = 0

	case events.BuildStartedEvent:
		m.output = append(m.output, "$ "+msg.Command)
		m.updateViewportContent()

	case events.BuildOutputEvent:
		line := msg.Line
		if msg.Stream == events.StreamStderr {
			line = StyleStderr.Render(line)
		}
		m.output = append(m.output, line)
		m.updateTag++
		tag := m.updateTag
		return m, tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
			return tickMsg{tag: tag}
		})

	case events.BuildFinishedEvent:
		switch {
		case msg.Err != nil:
			m.output = append(m.output, fmt.Sprintf("\n[make did not complete: %v]", msg.Err))
		case msg.ExitCode != 0:
			m.output = append(m.output, fmt.Sprintf("\n[make exited %d after %v]", msg.ExitCode, msg.Duration.Round(time.Millisecond)))
		default:
			m.output = append(m.output, fmt.Sprintf("\n[make finished in %v]", msg.Duration.Round(time.Millisecond)))
		}
		m.updateViewportContent()

	case tickMsg:
		// Only update if this tick matches the current tag (debouncing)
		if msg.tag == m.updateTag {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

// View renders the build pane.
func (m BuildPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	viewportWidth := m.width - targetListWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTargetList(targetListWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderTargetList renders the target column.
func (m BuildPaneModel) renderTargetList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render(fmt.Sprintf("Targets (%d)", len(m.targets)))
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.targets) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	}
	for i, target := range m.targets {
		line := truncateLeft(target, width-2)
		if i == m.selectedIdx && m.focused {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// truncateLeft keeps the end of long paths, where the file name is.
func truncateLeft(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return "..." + s[len(s)-(width-3):]
}

// SelectedTarget returns the highlighted target, or "" when there is none.
func (m BuildPaneModel) SelectedTarget() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.targets) {
		return m.targets[m.selectedIdx]
	}
	return ""
}

// Lines returns the output collected so far.
func (m BuildPaneModel) Lines() []string {
	return m.output
}

func (m *BuildPaneModel) updateViewportContent() {
	if len(m.output) == 0 {
		m.viewport.SetContent("Waiting for make...")
		return
	}
	m.viewport.SetContent(strings.Join(m.output, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// resizeViewport resizes the viewport based on pane dimensions.
func (m *BuildPaneModel) resizeViewport() {
	viewportWidth := max(m.width-targetListWidth-4, 10)
	viewportHeight := max(m.height-4, 5) // account for borders

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *BuildPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *BuildPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
