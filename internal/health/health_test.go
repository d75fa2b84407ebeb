package health

import (
	"testing"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/stretchr/testify/assert"
)

func testConfig() *core.Config {
	c := core.DefaultConfig()
	return c
}

func TestApplyValidationConfirmBoosts(t *testing.T) {
	a := &core.Agent{Health: 0.5}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentConfirm, "h1")
	assert.InDelta(t, 0.55, a.Health, 1e-9)
}

func TestApplyValidationChallengePenalizes(t *testing.T) {
	a := &core.Agent{Health: 0.8}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentChallenge, "h1")
	assert.InDelta(t, 0.65, a.Health, 1e-9)
}

func TestApplyValidationRepeatChallengeExtraPenalty(t *testing.T) {
	a := &core.Agent{Health: 0.8, ProbationRemaining: 0}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentChallenge, "h1")
	ApplyValidation(a, cfg, core.JudgmentChallenge, "h1")
	// first: 0.8-0.15=0.65; second: same hash seen before -> -0.15-0.05=0.45
	assert.InDelta(t, 0.45, a.Health, 1e-9)
}

func TestApplyValidationProbationHalvesPenalty(t *testing.T) {
	a := &core.Agent{Health: 0.8, ProbationRemaining: 3}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentChallenge, "h1")
	assert.InDelta(t, 0.725, a.Health, 1e-9) // 0.15/2 = 0.075 penalty
	assert.Equal(t, 2, a.ProbationRemaining)
}

func TestApplyValidationProbationDoesNotHalveBoost(t *testing.T) {
	a := &core.Agent{Health: 0.5, ProbationRemaining: 2}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentConfirm, "h1")
	assert.InDelta(t, 0.55, a.Health, 1e-9)
	assert.Equal(t, 1, a.ProbationRemaining)
}

func TestApplyValidationUncertainNoChange(t *testing.T) {
	a := &core.Agent{Health: 0.5, ProbationRemaining: 1}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentUncertain, "h1")
	assert.InDelta(t, 0.5, a.Health, 1e-9)
	assert.Equal(t, 0, a.ProbationRemaining)
}

func TestApplyValidationHealthClamped(t *testing.T) {
	a := &core.Agent{Health: 0.98}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentConfirm, "h1")
	assert.LessOrEqual(t, a.Health, 1.0)

	a2 := &core.Agent{Health: 0.05}
	ApplyValidation(a2, cfg, core.JudgmentChallenge, "h1")
	assert.GreaterOrEqual(t, a2.Health, 0.0)
}

func TestHealthCascadeThreeChallenges(t *testing.T) {
	// Scenario 4 of spec §8: health 0.65, three Challenge validations,
	// probation exhausted -> health 0.20.
	a := &core.Agent{Health: 0.65, ProbationRemaining: 0}
	cfg := testConfig()
	ApplyValidation(a, cfg, core.JudgmentChallenge, "out-a")
	ApplyValidation(a, cfg, core.JudgmentChallenge, "out-b")
	ApplyValidation(a, cfg, core.JudgmentChallenge, "out-c")
	assert.InDelta(t, 0.20, a.Health, 1e-9)
}

func TestDriftEmptyWindowThenFirstSampleMixes(t *testing.T) {
	a := &core.Agent{Tuning: []float64{1, 0, 0}}
	cfg := testConfig()
	Drift(a, cfg, []float64{0, 1, 0})
	assert.Len(t, a.DriftWindow, 1)
	assert.NotEqual(t, []float64{1, 0, 0}, a.Tuning)
}

func TestDriftWindowCapped(t *testing.T) {
	a := &core.Agent{Tuning: []float64{1, 0, 0}}
	cfg := testConfig()
	cfg.TuningDriftWindow = 3
	for i := 0; i < 10; i++ {
		Drift(a, cfg, []float64{0, 1, 0})
	}
	assert.Len(t, a.DriftWindow, 3)
}

func TestContentHashDeterministic(t *testing.T) {
	assert.Equal(t, ContentHash("same"), ContentHash("same"))
	assert.NotEqual(t, ContentHash("a"), ContentHash("b"))
}
