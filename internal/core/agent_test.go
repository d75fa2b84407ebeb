package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentValidateInvariants(t *testing.T) {
	a := &Agent{Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.6, Health: 1.0}
	assert.NoError(t, a.ValidateInvariants(3))
}

func TestAgentValidateInvariantsZeroTuning(t *testing.T) {
	a := &Agent{Tuning: []float64{0, 0, 0}, ActivationThreshold: 0.6, Health: 1.0}
	assert.ErrorIs(t, a.ValidateInvariants(3), ErrDimensionMismatch)
}

func TestAgentValidateInvariantsBadThreshold(t *testing.T) {
	a := &Agent{Tuning: []float64{1, 0, 0}, ActivationThreshold: 1.0, Health: 1.0}
	assert.ErrorIs(t, a.ValidateInvariants(3), ErrThresholdOutOfRange)

	a.ActivationThreshold = 0
	assert.ErrorIs(t, a.ValidateInvariants(3), ErrThresholdOutOfRange)
}

func TestAgentValidateInvariantsDimensionMismatch(t *testing.T) {
	a := &Agent{Tuning: []float64{1, 0}, ActivationThreshold: 0.6, Health: 1.0}
	assert.ErrorIs(t, a.ValidateInvariants(3), ErrDimensionMismatch)
}

func TestAgentContextAppendKnowledgeCaps(t *testing.T) {
	var c AgentContext
	for i := 0; i < MaxKnowledgeItems+5; i++ {
		c.AppendKnowledge("item")
	}
	assert.Len(t, c.KnowledgeItems, MaxKnowledgeItems)
}

func TestClampHealth(t *testing.T) {
	a := &Agent{Health: 1.5}
	a.ClampHealth()
	assert.Equal(t, 1.0, a.Health)

	a.Health = -0.2
	a.ClampHealth()
	assert.Equal(t, 0.0, a.Health)
}

func TestAgentStateIsTerminal(t *testing.T) {
	assert.True(t, AgentTerminated.IsTerminal())
	assert.False(t, AgentActive.IsTerminal())
}

func TestAgentStateIsPenaltyState(t *testing.T) {
	assert.True(t, AgentQuarantine.IsPenaltyState())
	assert.True(t, AgentIsolated.IsPenaltyState())
	assert.False(t, AgentWindingDown.IsPenaltyState())
}
