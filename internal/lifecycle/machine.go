// Package lifecycle implements the agent state machine of spec §4.4: idle
// and dormant timers, health-driven degradation/recovery, and the
// wind-down cascade. Every function here is pure over a core.Arena; the
// coordination loop is responsible for persisting the resulting mutations
// and for turning SignalDraft/WebMemoryEntry outputs into real records.
package lifecycle

import (
	"time"

	"github.com/Pharbi/arachnid/internal/core"
)

// Transition describes one observed state change, for event emission.
type Transition struct {
	AgentID string
	From     core.AgentState
	To       core.AgentState
}

// SweepTimers applies spec §4.4's idle/dormant timers to every living agent
// in arena: Listening -> Dormant after idle_timeout_secs of inactivity
// (">=", not ">" — spec §8 "idle timer fires exactly at the configured
// boundary"), and Dormant -> Terminated after dormant_ttl_secs.
func SweepTimers(arena *core.Arena, cfg *core.Config, now time.Time) []Transition {
	var out []Transition
	for _, a := range arena.All() {
		switch a.State {
		case core.AgentListening:
			if now.Sub(a.LastActiveAt) >= cfg.IdleTimeout {
				from := a.State
				a.State = core.AgentDormant
				dormantSince := now
				a.DormantSince = &dormantSince
				out = append(out, Transition{AgentID: a.ID, From: from, To: a.State})
			}
		case core.AgentDormant:
			if a.DormantSince != nil && now.Sub(*a.DormantSince) >= cfg.DormantTTL {
				from := a.State
				a.State = core.AgentTerminated
				out = append(out, Transition{AgentID: a.ID, From: from, To: a.State})
			}
		}
	}
	return out
}

// ApplyHealthTransitions applies the health-driven degradation/recovery
// edges of spec §4.4's state machine to a single agent, to be called at
// the end of every tick after health updates. Each call applies at most one
// edge, so degradation (Quarantine/Isolated/WindingDown) advances one state
// per call even when health is already below several thresholds: an agent
// already in Quarantine reaches WindingDown after two calls, and a Listening
// or Active agent after three. Recovery exits back to the agent's
// PrePenaltyState.
// Returns the zero Transition (From == To) if nothing changed.
func ApplyHealthTransitions(agent *core.Agent, cfg *core.Config) Transition {
	if agent.State.IsTerminal() || agent.State == core.AgentWindingDown {
		return Transition{AgentID: agent.ID, From: agent.State, To: agent.State}
	}

	from := agent.State

	switch agent.State {
	case core.AgentQuarantine:
		if agent.Health >= cfg.RecoveryThreshold {
			agent.State = agent.PrePenaltyState
			if agent.State == "" {
				agent.State = core.AgentListening
			}
			break
		}
		if agent.Health < cfg.IsolationThreshold {
			agent.State = core.AgentIsolated
		}
	case core.AgentIsolated:
		if agent.Health >= cfg.RecoveryThreshold {
			agent.State = agent.PrePenaltyState
			if agent.State == "" {
				agent.State = core.AgentListening
			}
			break
		}
		if agent.Health < cfg.WinddownThreshold {
			agent.State = core.AgentWindingDown
		}
	default:
		if agent.Health < cfg.QuarantineThreshold {
			agent.PrePenaltyState = agent.State
			agent.State = core.AgentQuarantine
		}
	}

	return Transition{AgentID: agent.ID, From: from, To: agent.State}
}
