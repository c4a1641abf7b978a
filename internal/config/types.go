package config

// MakeConfig describes the external build tool.
type MakeConfig struct {
	Command     string `json:"command"`                // make binary (e.g., "make", "gmake")
	Shell       string `json:"shell,omitempty"`        // Shell running the make command line
	RecipeShell string `json:"recipe_shell,omitempty"` // SHELL written into the Makefile
}

// SchedulerConfig selects how recipe commands are dispatched.
type SchedulerConfig struct {
	Name         string `json:"name"`                    // "none" or "slurm"
	SlurmCommand string `json:"slurm_command,omitempty"` // Overrides "srun"
}

// RunDefaults are the orchestrator options used when no flag overrides them.
type RunDefaults struct {
	Jobs      int    `json:"jobs"`
	KeepGoing bool   `json:"keep_going,omitempty"`
	NoCleanup bool   `json:"no_cleanup,omitempty"`
	TempDir   string `json:"temp_dir,omitempty"` // Directory for transient Makefiles ("" = os.TempDir)
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty"` // node-exporter textfile path ("" disables)
}

// Config is the top-level configuration.
type Config struct {
	Make      MakeConfig      `json:"make"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Defaults  RunDefaults     `json:"defaults"`
	History   HistoryConfig   `json:"history"`
	Metrics   MetricsConfig   `json:"metrics"`
	LogLevel  string          `json:"log_level,omitempty"`
}
