// Package scheduler implements the validation scheduler of spec §4.6:
// risk-weighted priority ranking of pending capability outputs, a per-tick
// validation budget, and health updates fed back through package health.
package scheduler

import (
	"context"
	"sort"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/health"
)

// PendingResult is one capability output awaiting validation, queued by the
// coordination loop's post-execution step (spec §4.7 step 4) and consumed
// here at step 5.
type PendingResult struct {
	Agent               *core.Agent
	Output              string
	DeclaredImpact      float64
	DeclaredUncertainty float64
	ExecutionContext    core.ExecutionContext
}

// Outcome is the result of validating (or skipping) one PendingResult.
type Outcome struct {
	Result     PendingResult
	Record     *core.ValidationRecord // nil if skipped for lack of budget (Uncertain by default)
	Transition core.AgentState        // agent state after health update, for event emission
}

// Priority computes spec §4.6's risk-weighted ranking key:
// impact · (1 − agent_health) · uncertainty. Higher is more urgent.
func Priority(r PendingResult) float64 {
	impact := r.DeclaredImpact
	uncertainty := r.DeclaredUncertainty
	if uncertainty <= 0 {
		uncertainty = 0.5
	}
	return impact * (1 - r.Agent.Health) * uncertainty
}

// Budget computes the per-tick validation budget: ceil(active_agents / divisor).
func Budget(activeAgents int, cfg *core.Config) int {
	divisor := cfg.ValidationBudgetDivisor
	if divisor <= 0 {
		divisor = 4
	}
	if activeAgents <= 0 {
		return 0
	}
	return (activeAgents + divisor - 1) / divisor
}

// Rank sorts pending results by descending priority, breaking ties by
// agent ID for determinism (the spec does not define a tie rule beyond
// "rank by priority"; a stable deterministic order keeps tests reproducible).
func Rank(pending []PendingResult) []PendingResult {
	ranked := append([]PendingResult(nil), pending...)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := Priority(ranked[i]), Priority(ranked[j])
		if pi != pj {
			return pi > pj
		}
		return ranked[i].Agent.ID < ranked[j].Agent.ID
	})
	return ranked
}

// Run executes spec §4.6/§4.7-step-5 for one tick: rank pending by
// priority, validate up to budget via providers.LLM.Validate, apply health
// updates, and return one Outcome per pending result (validated or not).
// Results beyond budget are left Uncertain with no health change, matching
// the spec's "non-validated executions are treated as Uncertain" — Uncertain
// carries no health delta, so skipping is exactly a no-op for those agents.
func Run(ctx context.Context, pending []PendingResult, cfg *core.Config, activeAgents int, llm core.LLMProvider) ([]Outcome, error) {
	ranked := Rank(pending)
	budget := Budget(activeAgents, cfg)

	outcomes := make([]Outcome, 0, len(ranked))
	for i, r := range ranked {
		if i >= budget {
			outcomes = append(outcomes, Outcome{Result: r, Transition: r.Agent.State})
			continue
		}

		judgment, confidence, reason, err := llm.Validate(ctx, r.Output, r.ExecutionContext)
		if err != nil {
			return outcomes, err
		}

		contentHash := health.ContentHash(r.Output)
		health.ApplyValidation(r.Agent, cfg, judgment, contentHash)

		record := &core.ValidationRecord{
			TargetID:    r.Agent.ID,
			WebID:       r.Agent.WebID,
			ContentHash: contentHash,
			Judgment:    judgment,
			Confidence:  confidence,
			Reason:      reason,
		}
		outcomes = append(outcomes, Outcome{Result: r, Record: record, Transition: r.Agent.State})
	}
	return outcomes, nil
}
