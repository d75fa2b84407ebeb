// Package propagation implements the depth-first lineage walk that delivers
// a signal to eligible agents (spec §4.2). It is pure in-memory arithmetic
// over an already-hydrated core.Arena; it never touches a Store or any
// provider, so it cannot fail (spec §4.2 "Failure semantics").
package propagation

import (
	"math"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/resonance"
)

// Delivery records one agent's resonance verdict against one hop of a
// propagating signal.
type Delivery struct {
	AgentID   string
	Verdict   resonance.Verdict
	Trigger   *core.Signal // the attenuated copy delivered to this agent
	Activated bool         // true if this delivery transitioned the agent to Active

	// BlockedByActive is true when the verdict resonated (Verdict.Activated)
	// but the recipient was already Active, so no state transition happened
	// (spec §5: "a second trigger while Active is buffered and delivered
	// after the agent returns to Listening"). The trigger's content is not
	// applied this tick; the caller must not consume the originating signal
	// so it is redelivered once the recipient is Listening again.
	BlockedByActive bool
}

// Result is the outcome of one full propagation walk.
type Result struct {
	Deliveries      []Delivery
	Unheard         bool // no delivery along the entire walk activated an agent
	BlockedByActive bool // at least one delivery resonated against an already-Active agent
}

// Propagate walks signal outward from its origin agent, strictly along
// lineage edges, mutating arena in place for any agent that activates
// (Listening/Dormant -> Active, clearing DormantSince). Missing agents
// (already removed from the arena) and Terminated agents are skipped
// without halting the rest of the walk (spec §4.2 "Failure semantics").
func Propagate(arena *core.Arena, signal *core.Signal, cfg *core.Config) Result {
	origin, _ := arena.Get(signal.OriginID)
	suspect := signal.Suspect || (origin != nil && origin.State == core.AgentQuarantine)

	neighbors := neighborsFor(arena, signal.Direction)
	if signal.DeliveredTo == nil {
		signal.DeliveredTo = make(map[string]bool)
	}

	var result Result
	var activatedAny bool

	var walk func(agent *core.Agent, depth int)
	walk = func(agent *core.Agent, depth int) {
		amp := signal.Amplitude * math.Pow(cfg.AttenuationFactor, float64(depth))
		if amp < cfg.MinAmplitude {
			return
		}
		if cfg.MaxDepth > 0 && depth > cfg.MaxDepth {
			return
		}
		if agent.State != core.AgentTerminated && !signal.AlreadyDelivered(agent.ID) {
			hop := *signal
			hop.Amplitude = amp
			hop.Hops = signal.Hops + depth
			hop.Suspect = suspect
			hop.DeliveredTo = signal.DeliveredTo

			verdict := resonance.Evaluate(agent, &hop)
			activated := false
			blockedByActive := false
			if verdict.Activated {
				switch agent.State {
				case core.AgentListening, core.AgentDormant:
					agent.State = core.AgentActive
					agent.DormantSince = nil
					activated = true
					activatedAny = true
				case core.AgentActive:
					blockedByActive = true
					result.BlockedByActive = true
				}
			}
			if !blockedByActive {
				hop.MarkDelivered(agent.ID)
			}
			result.Deliveries = append(result.Deliveries, Delivery{
				AgentID:         agent.ID,
				Verdict:         verdict,
				Trigger:         &hop,
				Activated:       activated,
				BlockedByActive: blockedByActive,
			})
		}

		for _, next := range neighbors(agent) {
			walk(next, depth+1)
		}
	}

	if origin == nil {
		return result
	}
	for _, first := range neighbors(origin) {
		walk(first, 1)
	}

	result.Unheard = !activatedAny
	return result
}

// neighborsFor returns, for a given direction, the function mapping an
// agent to the set of agents one lineage hop further in that direction.
func neighborsFor(arena *core.Arena, direction core.SignalDirection) func(*core.Agent) []*core.Agent {
	if direction == core.Upward {
		return func(a *core.Agent) []*core.Agent {
			if a.ParentID == "" {
				return nil
			}
			if parent, ok := arena.Get(a.ParentID); ok {
				return []*core.Agent{parent}
			}
			return nil
		}
	}
	return func(a *core.Agent) []*core.Agent {
		return arena.Children(a.ID)
	}
}
