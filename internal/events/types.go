package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	RunID() string
}

// Topic constants
const (
	TopicBuild  = "build"  // Lifecycle of one Execute call
	TopicOutput = "output" // Lines printed by make
)

// Event type constants
const (
	EventTypeMakefileWritten = "build.written"
	EventTypeBuildStarted    = "build.started"
	EventTypeBuildOutput     = "build.output"
	EventTypeBuildFinished   = "build.finished"
)

// Stream names carried by BuildOutputEvent.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// MakefileWrittenEvent is published once the transient Makefile is on disk.
type MakefileWrittenEvent struct {
	ID        string
	Path      string
	Targets   []string // Registration order
	Scheduler string
	Timestamp time.Time
}

func (e MakefileWrittenEvent) EventType() string { return EventTypeMakefileWritten }
func (e MakefileWrittenEvent) RunID() string     { return e.ID }

// BuildStartedEvent is published right before make is launched.
type BuildStartedEvent struct {
	ID        string
	Command   string
	DryRun    bool
	Jobs      int
	Timestamp time.Time
}

func (e BuildStartedEvent) EventType() string { return EventTypeBuildStarted }
func (e BuildStartedEvent) RunID() string     { return e.ID }

// BuildOutputEvent carries one line make wrote to stdout or stderr.
type BuildOutputEvent struct {
	ID        string
	Stream    string
	Line      string
	Timestamp time.Time
}

func (e BuildOutputEvent) EventType() string { return EventTypeBuildOutput }
func (e BuildOutputEvent) RunID() string     { return e.ID }

// BuildFinishedEvent is published when make exits or could not be run.
// Err is set only for launch or cancellation failures; a failing recipe is
// reported through ExitCode alone.
type BuildFinishedEvent struct {
	ID        string
	ExitCode  int
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e BuildFinishedEvent) EventType() string { return EventTypeBuildFinished }
func (e BuildFinishedEvent) RunID() string     { return e.ID }

// Success reports whether make ran and exited with status 0.
func (e BuildFinishedEvent) Success() bool { return e.Err == nil && e.ExitCode == 0 }
