package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromFileOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "dimension: 16\nmax_agents: 50\nidle_timeout_secs: 45\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Dimension)
	assert.Equal(t, 50, cfg.MaxAgents)
	assert.Equal(t, 45*time.Second, cfg.IdleTimeout)
	assert.Equal(t, DefaultConfig().DefaultThreshold, cfg.DefaultThreshold)
}

func TestNewConfigFromFileEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := NewConfigFromFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Dimension, cfg.Dimension)
}

func TestNewConfigFromFileOptionsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_agents: 50\n"), 0o644))

	cfg, err := NewConfigFromFile(path, WithMaxAgents(200))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.MaxAgents)
}

func TestNewConfigFromFileMissingFileErrors(t *testing.T) {
	_, err := NewConfigFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
