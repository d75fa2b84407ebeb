package scheduler

import (
	"context"
	"testing"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	judgment   core.Judgment
	confidence float64
	reason     string
}

func (f fakeLLM) Complete(ctx context.Context, prompt, systemPrompt string, temperature float32) (string, error) {
	return "", nil
}

func (f fakeLLM) Validate(ctx context.Context, output string, ec core.ExecutionContext) (core.Judgment, float64, string, error) {
	return f.judgment, f.confidence, f.reason, nil
}

func TestPriorityWeightsImpactHealthUncertainty(t *testing.T) {
	risky := PendingResult{Agent: &core.Agent{ID: "a", Health: 0.1}, DeclaredImpact: 0.9, DeclaredUncertainty: 0.9}
	safe := PendingResult{Agent: &core.Agent{ID: "b", Health: 0.95}, DeclaredImpact: 0.1, DeclaredUncertainty: 0.1}
	assert.Greater(t, Priority(risky), Priority(safe))
}

func TestPriorityDefaultsUncertainty(t *testing.T) {
	r := PendingResult{Agent: &core.Agent{ID: "a", Health: 0.5}, DeclaredImpact: 1.0, DeclaredUncertainty: 0}
	assert.InDelta(t, 0.5*0.5, Priority(r), 1e-9)
}

func TestBudgetRoundsUp(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.ValidationBudgetDivisor = 4
	assert.Equal(t, 3, Budget(10, cfg)) // ceil(10/4) = 3
	assert.Equal(t, 0, Budget(0, cfg))
}

func TestRankOrdersByDescendingPriorityThenID(t *testing.T) {
	low := PendingResult{Agent: &core.Agent{ID: "low"}, DeclaredImpact: 0.1, DeclaredUncertainty: 0.5}
	high := PendingResult{Agent: &core.Agent{ID: "high"}, DeclaredImpact: 0.9, DeclaredUncertainty: 0.9}
	ranked := Rank([]PendingResult{low, high})
	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].Agent.ID)
}

func TestRunValidatesOnlyUpToBudget(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.ValidationBudgetDivisor = 4
	llm := fakeLLM{judgment: core.JudgmentConfirm, confidence: 0.9, reason: "looks right"}

	var pending []PendingResult
	for i := 0; i < 5; i++ {
		pending = append(pending, PendingResult{
			Agent:               &core.Agent{ID: string(rune('a' + i)), Health: 0.5},
			Output:              "out",
			DeclaredImpact:      0.8,
			DeclaredUncertainty: 0.8,
		})
	}

	outcomes, err := Run(context.Background(), pending, cfg, 4, llm) // budget = ceil(4/4) = 1
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	validated := 0
	for _, o := range outcomes {
		if o.Record != nil {
			validated++
		}
	}
	assert.Equal(t, 1, validated)
}

func TestRunAppliesHealthUpdateOnValidation(t *testing.T) {
	cfg := core.DefaultConfig()
	a := &core.Agent{ID: "a", Health: 0.5}
	llm := fakeLLM{judgment: core.JudgmentChallenge, confidence: 0.8, reason: "wrong"}

	pending := []PendingResult{{Agent: a, Output: "bad output", DeclaredImpact: 1.0, DeclaredUncertainty: 1.0}}
	outcomes, err := Run(context.Background(), pending, cfg, 4, llm)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Record)
	assert.Equal(t, core.JudgmentChallenge, outcomes[0].Record.Judgment)
	assert.InDelta(t, 0.35, a.Health, 1e-9) // 0.5 - 0.15
}

func TestRunLeavesSkippedResultsUnmodified(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.ValidationBudgetDivisor = 100
	a := &core.Agent{ID: "a", Health: 0.5}
	llm := fakeLLM{judgment: core.JudgmentChallenge, confidence: 0.8, reason: "wrong"}

	pending := []PendingResult{{Agent: a, Output: "bad output", DeclaredImpact: 1.0, DeclaredUncertainty: 1.0}}
	outcomes, err := Run(context.Background(), pending, cfg, 1, llm) // budget = ceil(1/100) = 1... still validates
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	// Force a zero budget by passing activeAgents=0.
	a2 := &core.Agent{ID: "a2", Health: 0.5}
	pending2 := []PendingResult{{Agent: a2, Output: "bad output", DeclaredImpact: 1.0, DeclaredUncertainty: 1.0}}
	outcomes2, err := Run(context.Background(), pending2, cfg, 0, llm)
	require.NoError(t, err)
	require.Len(t, outcomes2, 1)
	assert.Nil(t, outcomes2[0].Record)
	assert.Equal(t, 0.5, a2.Health)
}
