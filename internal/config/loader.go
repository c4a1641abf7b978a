package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aristath/dmake/internal/backend"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON or invalid values return an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	// Project config has highest precedence
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Paths returns the conventional config locations.
// Global: ~/.dmake/config.json
// Project: .dmake/config.json (relative to cwd)
func Paths() (globalPath, projectPath string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(homeDir, ".dmake", "config.json"), filepath.Join(".dmake", "config.json"), nil
}

// LoadDefault loads configuration from the conventional paths.
func LoadDefault() (*Config, error) {
	globalPath, projectPath, err := Paths()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, projectPath)
}

// Validate reports values make or the scheduler factory would reject.
func (c *Config) Validate() error {
	if c.Make.Command == "" {
		return fmt.Errorf("make.command must not be empty")
	}
	if c.Defaults.Jobs < 1 {
		return fmt.Errorf("defaults.jobs must be at least 1, got %d", c.Defaults.Jobs)
	}
	if _, err := backend.New(c.SchedulerBackend()); err != nil {
		return fmt.Errorf("scheduler.name: %w", err)
	}
	return nil
}

// SchedulerBackend converts the scheduler section into a backend.Config.
func (c *Config) SchedulerBackend() backend.Config {
	return backend.Config{
		Name:         c.Scheduler.Name,
		SlurmCommand: c.Scheduler.SlurmCommand,
	}
}

// mergeConfigFile decodes a JSON config file over base. Keys absent from the
// file keep their current value. Missing files are silently skipped.
func mergeConfigFile(base *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // Missing file is not an error
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, base); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}
