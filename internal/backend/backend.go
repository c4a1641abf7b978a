package backend

import (
	"errors"
	"fmt"
)

// Scheduler decides how each recipe command is dispatched when make runs it.
// Implementations only contribute a command prefix; the Makefile layout is
// owned by the rules package.
type Scheduler interface {
	// Name returns the backend name as accepted by New.
	Name() string

	// Prefix returns the text prepended to every recipe command.
	Prefix() string
}

const (
	NameNone  = "none"
	NameSlurm = "slurm"
)

// ErrUnknownScheduler is returned by New for names outside the known set.
var ErrUnknownScheduler = errors.New("unknown scheduler")

// New creates a scheduler based on the provided configuration.
// An empty name selects the local (none) backend.
func New(cfg Config) (Scheduler, error) {
	switch cfg.Name {
	case "", NameNone:
		return None{}, nil
	case NameSlurm:
		return NewSlurm(cfg.SlurmCommand), nil
	default:
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownScheduler, cfg.Name, Names())
	}
}

// Names lists the accepted scheduler names.
func Names() []string {
	return []string{NameNone, NameSlurm}
}
