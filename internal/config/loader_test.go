package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/dmake/internal/backend"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		global      string
		project     string
		check       func(t *testing.T, cfg *Config)
		expectError string
	}{
		{
			name: "No config files - returns defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name:   "Global only - overrides jobs, keeps the rest",
			global: `{"defaults": {"jobs": 8}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Defaults.Jobs)
				assert.Equal(t, "make", cfg.Make.Command)
				assert.Equal(t, "none", cfg.Scheduler.Name)
			},
		},
		{
			name:    "Project overrides global",
			global:  `{"scheduler": {"name": "slurm"}, "make": {"command": "gmake"}}`,
			project: `{"scheduler": {"name": "none"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "none", cfg.Scheduler.Name)
				assert.Equal(t, "gmake", cfg.Make.Command)
				assert.Equal(t, "srun", cfg.Scheduler.SlurmCommand)
			},
		},
		{
			name:    "Project only - enables history",
			project: `{"history": {"enabled": true, "path": "/var/lib/dmake.db"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.History.Enabled)
				assert.Equal(t, "/var/lib/dmake.db", cfg.History.Path)
			},
		},
		{
			name:        "Malformed JSON",
			global:      `{invalid json`,
			expectError: "loading global config",
		},
		{
			name:        "Unknown scheduler",
			project:     `{"scheduler": {"name": "pbs"}}`,
			expectError: "scheduler.name",
		},
		{
			name:        "Zero jobs",
			project:     `{"defaults": {"jobs": 0}}`,
			expectError: "defaults.jobs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			globalPath := filepath.Join(tmpDir, "global", "config.json")
			projectPath := filepath.Join(tmpDir, "project", "config.json")
			if tt.global != "" {
				writeFile(t, globalPath, tt.global)
			}
			if tt.project != "" {
				writeFile(t, projectPath, tt.project)
			}

			cfg, err := Load(globalPath, projectPath)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EmptyPaths(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Defaults.Jobs)
}

func TestLoad_UnknownScheduler_IsErrUnknownScheduler(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "c.json"), `{"scheduler": {"name": "lsf"}}`)
	_, err := Load(path, "")
	assert.ErrorIs(t, err, backend.ErrUnknownScheduler)
}

func TestSchedulerBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler = SchedulerConfig{Name: "slurm", SlurmCommand: "srun -p short"}

	s, err := backend.New(cfg.SchedulerBackend())
	require.NoError(t, err)
	assert.Equal(t, "srun -p short ", s.Prefix())
}

func TestLoadDefault_ConventionalPaths(t *testing.T) {
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	t.Setenv("HOME", home)
	t.Chdir(dir)

	writeFile(t, filepath.Join(home, ".dmake", "config.json"), `{"defaults": {"jobs": 6}, "log_level": "debug"}`)
	writeFile(t, filepath.Join(dir, ".dmake", "config.json"), `{"defaults": {"jobs": 3}}`)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Defaults.Jobs)
	assert.Equal(t, "debug", cfg.LogLevel)
}
