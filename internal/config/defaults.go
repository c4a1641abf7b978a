package config

import "path/filepath"

// DefaultConfig returns the configuration used when no config file exists:
// local dry-run friendly make with one job and no scheduler.
func DefaultConfig() *Config {
	return &Config{
		Make: MakeConfig{
			Command:     "make",
			Shell:       "/bin/sh",
			RecipeShell: "/bin/bash",
		},
		Scheduler: SchedulerConfig{
			Name:         "none",
			SlurmCommand: "srun",
		},
		Defaults: RunDefaults{
			Jobs: 1,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    filepath.Join(".dmake", "history.db"),
		},
		LogLevel: "info",
	}
}
