package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	c := DefaultConfig()
	assert.NoError(t, c.Validate())
}

func TestNewConfigAppliesOptions(t *testing.T) {
	c, err := NewConfig(WithMaxAgents(5), WithMaxDepth(2), WithDimension(4))
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaxAgents)
	assert.Equal(t, 2, c.MaxDepth)
	assert.Equal(t, 4, c.Dimension)
}

func TestConfigValidateRejectsBadThreshold(t *testing.T) {
	c := DefaultConfig()
	c.DefaultThreshold = 1.5
	assert.ErrorIs(t, c.Validate(), ErrThresholdOutOfRange)
}

func TestConfigValidateRejectsBadThresholdOrdering(t *testing.T) {
	c := DefaultConfig()
	c.IsolationThreshold = 0.9 // now exceeds quarantine
	assert.Error(t, c.Validate())
}

func TestConfigValidateRejectsZeroMaxAgents(t *testing.T) {
	c := DefaultConfig()
	c.MaxAgents = 0
	assert.Error(t, c.Validate())
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("ARACHNID_MAX_AGENTS", "42")
	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 42, c.MaxAgents)
}
