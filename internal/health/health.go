// Package health implements the health-update and tuning-drift rules of
// spec §4.5: validation-driven health adjustments (with probation halving),
// and the post-execution EMA tuning drift.
package health

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/vectorops"
)

// ContentHash returns the content-hash-class used to detect repeat
// challenges against similar output (spec §4.5). Using a cryptographic hash
// of the full output, rather than a fuzzy similarity measure, is a
// deliberate simplification: the spec only requires detecting the *same*
// output being challenged again, not near-duplicates.
func ContentHash(output string) string {
	sum := sha256.Sum256([]byte(output))
	return hex.EncodeToString(sum[:])
}

// ApplyValidation applies spec §4.5's health update rule for one judgment
// against agent, given the content hash of the validated output. Mutates
// agent.Health (clamped to [0,1]) and agent.ProbationRemaining, and records
// the hash into agent.ChallengedOutputHashes on a Challenge verdict.
//
// During probation (ProbationRemaining > 0), penalties are halved; boosts
// are unchanged. Probation decrements by one per validated execution
// regardless of judgment.
func ApplyValidation(agent *core.Agent, cfg *core.Config, judgment core.Judgment, contentHash string) {
	onProbation := agent.ProbationRemaining > 0

	switch judgment {
	case core.JudgmentConfirm:
		agent.Health += cfg.HealthBoostConfirm
	case core.JudgmentChallenge:
		penalty := cfg.HealthPenaltyChallenge
		if onProbation {
			penalty /= 2
		}
		agent.Health -= penalty

		if agent.ChallengedOutputHashes == nil {
			agent.ChallengedOutputHashes = make(map[string]bool)
		}
		if agent.ChallengedOutputHashes[contentHash] {
			repeat := cfg.RepeatChallengePenalty
			if onProbation {
				repeat /= 2
			}
			agent.Health -= repeat
		}
		agent.ChallengedOutputHashes[contentHash] = true
	case core.JudgmentUncertain:
		// no change
	}

	agent.ClampHealth()

	if onProbation {
		agent.ProbationRemaining--
	}
}

// Drift applies the post-execution tuning-drift update of spec §4.5:
// appends triggerFrequency to the agent's bounded drift window, then mixes
// the tuning toward the window mean. A no-op for failed executions (the
// caller must not invoke Drift for a Failed outcome). An empty window
// (agent.DriftWindow has no entries yet and triggerFrequency is the first)
// still produces a mix against that single sample.
func Drift(agent *core.Agent, cfg *core.Config, triggerFrequency []float64) {
	agent.DriftWindow = append(agent.DriftWindow, triggerFrequency)
	if len(agent.DriftWindow) > cfg.TuningDriftWindow {
		agent.DriftWindow = agent.DriftWindow[len(agent.DriftWindow)-cfg.TuningDriftWindow:]
	}
	agent.Tuning = vectorops.Drift(agent.Tuning, agent.DriftWindow, cfg.TuningDriftAlpha)
}
