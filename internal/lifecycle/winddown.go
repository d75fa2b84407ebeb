package lifecycle

import (
	"fmt"

	"github.com/Pharbi/arachnid/internal/core"
)

// CascadeOutcome records the side effects the coordination loop must turn
// into real signals/store writes for one agent that completed wind-down.
type CascadeOutcome struct {
	AgentID       string
	UpwardSignal  *core.SignalDraft // nil if the agent had no parent (was root)
	MemoryEntry   core.WebMemoryEntry
	ReparentedTo  map[string]string // childID -> new parentID, children kept alive
}

// Cascade runs the full wind-down cascade of spec §4.4 starting at
// startID, which must already be in (or entering) WindingDown. It:
//  1. emits an Upward failure-summary signal draft to the agent's parent;
//  2. reparents children whose health >= quarantine threshold to the
//     agent's parent (grandparent), unless doing so would exceed
//     cfg.MaxDepth, in which case that child is cascaded instead;
//  3. schedules cascade for children below the quarantine threshold;
//  4. returns a WebMemoryEntry per cascaded agent to persist;
//  5. transitions every cascaded agent to Terminated.
//
// Mutates arena in place (ParentID reassignment, State=Terminated) and
// returns one CascadeOutcome per agent that was terminated by this call, in
// the order they were processed (starting agent first).
func Cascade(arena *core.Arena, startID string, cfg *core.Config, failureSummary string) []CascadeOutcome {
	var outcomes []CascadeOutcome
	queue := []struct {
		id      string
		summary string
	}{{startID, failureSummary}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		agent, ok := arena.Get(item.id)
		if !ok || agent.State == core.AgentTerminated {
			continue
		}
		agent.State = core.AgentWindingDown

		children := arena.Children(agent.ID)
		hasGrandparent := agent.ParentID != "" // reparent target is agent's own parent

		reparented := make(map[string]string)
		for _, child := range children {
			if child.State == core.AgentTerminated {
				continue
			}
			newDepth := arena.Depth(agent.ID) // child would sit at the depth currently occupied by agent
			healthy := child.Health >= cfg.QuarantineThreshold

			if healthy && hasGrandparent && (cfg.MaxDepth <= 0 || newDepth <= cfg.MaxDepth) {
				child.ParentID = agent.ParentID
				reparented[child.ID] = agent.ParentID
				continue
			}
			// Either unhealthy, or reparenting would overflow max_depth,
			// or there is no grandparent to reparent to (agent was root):
			// cascade the child too.
			queue = append(queue, struct {
				id      string
				summary string
			}{child.ID, fmt.Sprintf("ancestor %s wound down", agent.ID)})
		}

		var upward *core.SignalDraft
		if agent.ParentID != "" {
			upward = &core.SignalDraft{
				Content:   item.summary,
				Direction: core.Upward,
				Amplitude: 1.0,
			}
		}

		entry := core.WebMemoryEntry{
			WebID:   agent.WebID,
			Pattern: core.WebMemoryFailure,
			Purpose: agent.Purpose,
			Tuning:  append([]float64(nil), agent.Tuning...),
			Summary: item.summary,
		}

		agent.State = core.AgentTerminated

		outcomes = append(outcomes, CascadeOutcome{
			AgentID:      agent.ID,
			UpwardSignal: upward,
			MemoryEntry:  entry,
			ReparentedTo: reparented,
		})
	}

	return outcomes
}
