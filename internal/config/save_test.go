package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.json")

	cfg := DefaultConfig()
	cfg.Defaults.Jobs = 16
	cfg.Defaults.KeepGoing = true
	cfg.Scheduler.Name = "slurm"
	cfg.Metrics.Textfile = "/var/lib/node_exporter/dmake.prom"

	require.NoError(t, Save(cfg, path))

	loaded, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := writeFile(t, filepath.Join(dir, "file"), "x")

	err := Save(DefaultConfig(), filepath.Join(blocker, "config.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating directory")
}
