package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/dmake/internal/events"
)

// buildState tracks where the current run is in its lifecycle.
type buildState int

const (
	statePending buildState = iota
	stateRunning
	stateSucceeded
	stateFailed
)

// StatusPaneModel summarises the run: Makefile, command line and result.
type StatusPaneModel struct {
	runID     string
	makefile  string
	scheduler string
	targets   int
	command   string
	dryRun    bool
	jobs      int
	state     buildState
	exitCode  int
	err       error
	started   time.Time
	duration  time.Duration
	width     int
	height    int
	focused   bool
}

// NewStatusPaneModel creates a new status pane model.
func NewStatusPaneModel() StatusPaneModel {
	return StatusPaneModel{}
}

// Update handles messages for the status pane.
func (m StatusPaneModel) Update(msg tea.Msg) (StatusPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.MakefileWrittenEvent:
		m.runID = msg.ID
		m.makefile = msg.Path
		m.scheduler = msg.Scheduler
		m.targets = len(msg.Targets)
	case events.BuildStartedEvent:
		m.command = msg.Command
		m.dryRun = msg.DryRun
		m.jobs = msg.Jobs
		m.started = msg.Timestamp
		m.state = stateRunning
	case events.BuildFinishedEvent:
		m.exitCode = msg.ExitCode
		m.err = msg.Err
		m.duration = msg.Duration
		if msg.Success() {
			m.state = stateSucceeded
		} else {
			m.state = stateFailed
		}
	}
	return m, nil
}

// View renders the status pane.
func (m StatusPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(StyleTitle.Render("Build"))
	b.WriteString(" ")
	b.WriteString(m.stateLabel())
	b.WriteString("\n\n")

	mode := "run"
	if m.dryRun {
		mode = "dry run (-n)"
	}

	rows := [][2]string{
		{"Run", m.runID},
		{"Makefile", m.makefile},
		{"Scheduler", m.scheduler},
		{"Targets", fmt.Sprintf("%d", m.targets)},
		{"Mode", mode},
		{"Jobs", fmt.Sprintf("%d", m.jobs)},
		{"Command", m.command},
	}
	if !m.started.IsZero() {
		rows = append(rows, [2]string{"Started", m.started.Format(time.TimeOnly)})
	}
	switch m.state {
	case stateSucceeded, stateFailed:
		rows = append(rows,
			[2]string{"Exit code", fmt.Sprintf("%d", m.exitCode)},
			[2]string{"Duration", m.duration.Round(time.Millisecond).String()},
		)
		if m.err != nil {
			rows = append(rows, [2]string{"Error", m.err.Error()})
		}
	}

	for _, row := range rows {
		b.WriteString(StyleStatusPending.Render(fmt.Sprintf("%-10s", row[0])))
		b.WriteString(" ")
		b.WriteString(row[1])
		b.WriteString("\n")
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(lipgloss.NewStyle().Width(m.width - 4).Render(b.String()))
}

func (m StatusPaneModel) stateLabel() string {
	switch m.state {
	case stateRunning:
		return StyleStatusRunning.Render("● running")
	case stateSucceeded:
		return StyleStatusComplete.Render("✓ done")
	case stateFailed:
		return StyleStatusFailed.Render("✗ failed")
	default:
		return StyleStatusPending.Render("○ pending")
	}
}

// Finished reports whether the build has ended.
func (m StatusPaneModel) Finished() bool {
	return m.state == stateSucceeded || m.state == stateFailed
}

// SetSize updates the pane dimensions.
func (m *StatusPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *StatusPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
