// Package resonance implements the pure (agent, signal) -> activation
// verdict evaluator of spec §4.1. It is a free function with no I/O and no
// shared state, callable concurrently from any number of goroutines.
package resonance

import (
	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/vectorops"
)

// IsolationDamping is the multiplier applied to eff when the agent is
// Isolated, before the activation-threshold comparison (spec §4.1).
const IsolationDamping = 0.3

// Verdict is the outcome of evaluating one agent against one signal.
type Verdict struct {
	Similarity float64 // cosine(agent.tuning, signal.frequency)
	Eff        float64 // similarity * amplitude (post isolation-damping)
	Activated  bool
}

// Evaluate computes the resonance verdict of agent against signal (spec §4.1).
// Agents in Terminated or WindingDown never resonate. Tie-break (eff exactly
// equal to the threshold) is non-activation.
func Evaluate(agent *core.Agent, signal *core.Signal) Verdict {
	if agent.State == core.AgentTerminated || agent.State == core.AgentWindingDown {
		return Verdict{}
	}

	sim := vectorops.Cosine(agent.Tuning, signal.Frequency)
	eff := sim * signal.Amplitude
	if agent.State == core.AgentIsolated {
		eff *= IsolationDamping
	}

	return Verdict{
		Similarity: sim,
		Eff:        eff,
		Activated:  eff > agent.ActivationThreshold,
	}
}
