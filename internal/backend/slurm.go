package backend

import "strings"

// DefaultSlurmCommand is the Slurm job step launcher.
const DefaultSlurmCommand = "srun"

// Slurm wraps every recipe command in a Slurm job step so make's parallel
// jobs are placed on cluster nodes instead of the local host.
type Slurm struct {
	command string
}

// NewSlurm creates a Slurm backend. An empty command falls back to srun.
func NewSlurm(command string) Slurm {
	command = strings.TrimSpace(command)
	if command == "" {
		command = DefaultSlurmCommand
	}
	return Slurm{command: command}
}

func (s Slurm) Name() string { return NameSlurm }

// Prefix returns the dispatch command followed by a single space.
func (s Slurm) Prefix() string {
	if s.command == "" {
		return DefaultSlurmCommand + " "
	}
	return s.command + " "
}
