package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/dmake/internal/dmake"
	"github.com/aristath/dmake/internal/events"
)

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func feed(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestInitWaitsForBusEvents(t *testing.T) {
	bus := events.NewEventBus()
	m := New(bus)

	ev := events.BuildStartedEvent{ID: "run-1", Command: "make -n -j 1 -f x.mk all"}
	bus.Publish(events.TopicBuild, ev)

	require.NotNil(t, m.Init())
	assert.Equal(t, ev, waitForEvent(m.buildSub)())

	out := events.BuildOutputEvent{ID: "run-1", Stream: events.StreamStdout, Line: "cc -c a.c"}
	bus.Publish(events.TopicOutput, out)
	assert.Equal(t, out, waitForEvent(m.outputSub)())

	bus.Close()
	assert.Equal(t, busClosedMsg{}, waitForEvent(m.buildSub)())
	assert.Equal(t, busClosedMsg{}, waitForEvent(m.outputSub)())
}

func TestFinishedSurvivesOutputBurst(t *testing.T) {
	bus := events.NewEventBus()
	m := sized(t, New(bus))

	d := dmake.New(dmake.DefaultOptions(),
		dmake.WithMakeCommand("seq 1 1000; true"),
		dmake.WithTempDir(t.TempDir()),
		dmake.WithEventBus(bus),
		dmake.WithOutput(io.Discard),
		dmake.WithStdout(io.Discard),
		dmake.WithStderr(io.Discard),
	)
	require.NoError(t, d.Add("out/a.txt", nil, []string{"touch out/a.txt"}))

	// Nothing reads the subscriptions while make prints, as with a busy UI
	res, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	bus.Close()

	for _, sub := range []<-chan events.Event{m.outputSub, m.buildSub} {
		for ev := range sub {
			m = feed(m, ev)
		}
	}

	assert.True(t, m.Finished())
	assert.Equal(t, 0, m.statusPane.exitCode)
	assert.Equal(t, []string{"out/a.txt"}, m.buildPane.targets)
	assert.Contains(t, m.View(), "done")
}

func TestModelTracksBuildLifecycle(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	m := sized(t, New(bus))
	assert.False(t, m.Finished())

	m = feed(m,
		events.MakefileWrittenEvent{ID: "run-1", Path: "/tmp/dmake-1.mk", Targets: []string{"out/a.txt", "out/b.txt"}, Scheduler: "none"},
		events.BuildStartedEvent{ID: "run-1", Command: "make -j 2 -f /tmp/dmake-1.mk all", Jobs: 2},
		events.BuildOutputEvent{ID: "run-1", Stream: events.StreamStdout, Line: "echo a > out/a.txt"},
		events.BuildOutputEvent{ID: "run-1", Stream: events.StreamStderr, Line: "warning: something"},
		events.BuildFinishedEvent{ID: "run-1", ExitCode: 0, Duration: 1500 * time.Millisecond},
	)

	require.True(t, m.Finished())
	assert.Equal(t, "out/a.txt", m.buildPane.SelectedTarget())

	lines := m.buildPane.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "$ make -j 2 -f /tmp/dmake-1.mk all", lines[0])
	assert.Contains(t, lines[1], "echo a > out/a.txt")
	assert.Contains(t, lines[2], "warning: something")
	assert.Contains(t, lines[len(lines)-1], "make finished")

	view := m.View()
	assert.Contains(t, view, "Targets (2)")
	assert.Contains(t, view, "/tmp/dmake-1.mk")
	assert.Contains(t, view, "done")
}

func TestModelShowsFailure(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	m := feed(sized(t, New(bus)),
		events.BuildStartedEvent{ID: "run-2", Command: "make -j 1 -f x.mk all", Jobs: 1},
		events.BuildFinishedEvent{ID: "run-2", ExitCode: 2},
	)
	assert.True(t, m.Finished())
	assert.Contains(t, m.View(), "failed")
	lines := m.buildPane.Lines()
	assert.Contains(t, lines[len(lines)-1], "make exited 2")

	m = feed(sized(t, New(bus)),
		events.BuildFinishedEvent{ID: "run-3", ExitCode: -1, Err: errors.New("boom")},
	)
	lines = m.buildPane.Lines()
	assert.Contains(t, lines[len(lines)-1], "boom")
}

func TestTargetSelection(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	m := feed(sized(t, New(bus)),
		events.MakefileWrittenEvent{ID: "run-1", Targets: []string{"a", "b", "c"}},
	)

	down := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}
	up := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}

	m = feed(m, down, down, down)
	assert.Equal(t, "c", m.buildPane.SelectedTarget())

	m = feed(m, up)
	assert.Equal(t, "b", m.buildPane.SelectedTarget())
}

func TestFocusCycling(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	m := sized(t, New(bus))
	assert.Equal(t, PaneBuild, m.focusedPane)

	m = feed(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PaneStatus, m.focusedPane)
	assert.True(t, m.statusPane.focused)
	assert.False(t, m.buildPane.focused)

	m = feed(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PaneBuild, m.focusedPane)

	m = feed(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, PaneStatus, m.focusedPane)

	m = feed(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, PaneBuild, m.focusedPane)

	// Selection keys only reach the build pane while it is focused
	m = feed(m,
		events.MakefileWrittenEvent{ID: "run-1", Targets: []string{"a", "b"}},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")},
	)
	assert.Equal(t, "a", m.buildPane.SelectedTarget())
}

func TestQuit(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	updated, cmd := New(bus).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, "Goodbye!\n", updated.(Model).View())
}

func TestViewBeforeResize(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	assert.Equal(t, "Initializing...", New(bus).View())
}

func TestTruncateLeft(t *testing.T) {
	assert.Equal(t, "short", truncateLeft("short", 10))
	got := truncateLeft("very/long/path/to/file.txt", 12)
	assert.Len(t, got, 12)
	assert.True(t, strings.HasSuffix(got, "file.txt"))
}
