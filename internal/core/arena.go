package core

// Arena is the in-memory working set of one Web's agents, keyed by id, with
// edges represented as ParentID fields rather than direct pointers (spec
// §9: "represent the web as an arena of agents keyed by id; edges are id
// fields, not direct references. Lineage queries are structural traversals
// over this arena."). The coordination loop hydrates an Arena from the
// Store at the start of a tick and persists mutations at the end, so every
// pure component (resonance, propagation, lifecycle, spawn) operates on it
// without touching I/O.
type Arena struct {
	agents map[string]*Agent
	order  []string // creation order, used to enforce "parent created earlier"
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{agents: make(map[string]*Agent)}
}

// Add inserts or replaces an agent in the arena.
func (a *Arena) Add(agent *Agent) {
	if _, exists := a.agents[agent.ID]; !exists {
		a.order = append(a.order, agent.ID)
	}
	a.agents[agent.ID] = agent
}

// Get looks up an agent by id.
func (a *Arena) Get(id string) (*Agent, bool) {
	ag, ok := a.agents[id]
	return ag, ok
}

// All returns every agent in the arena, in insertion order.
func (a *Arena) All() []*Agent {
	out := make([]*Agent, 0, len(a.order))
	for _, id := range a.order {
		if ag, ok := a.agents[id]; ok {
			out = append(out, ag)
		}
	}
	return out
}

// Count returns the number of agents currently tracked (including terminated
// ones still resident in the arena for this tick).
func (a *Arena) Count() int { return len(a.agents) }

// LivingCount returns the number of non-Terminated agents.
func (a *Arena) LivingCount() int {
	n := 0
	for _, ag := range a.agents {
		if ag.State != AgentTerminated {
			n++
		}
	}
	return n
}

// Children returns the direct children of id, in creation order.
func (a *Arena) Children(id string) []*Agent {
	var out []*Agent
	for _, cid := range a.order {
		ag := a.agents[cid]
		if ag.ParentID == id {
			out = append(out, ag)
		}
	}
	return out
}

// Ancestors walks the parent chain from id outward (parent, grandparent,
// ...), stopping at the root or after maxDepth hops, whichever comes first.
// maxDepth <= 0 means unbounded.
func (a *Arena) Ancestors(id string, maxDepth int) []*Agent {
	var out []*Agent
	cur, ok := a.agents[id]
	if !ok {
		return nil
	}
	depth := 0
	for cur.ParentID != "" {
		if maxDepth > 0 && depth >= maxDepth {
			break
		}
		parent, ok := a.agents[cur.ParentID]
		if !ok {
			break
		}
		out = append(out, parent)
		cur = parent
		depth++
	}
	return out
}

// Descendants performs a depth-first walk of id's subtree, stopping at
// maxDepth hops (maxDepth <= 0 means unbounded). Order is depth-first,
// pre-order, children visited in creation order.
func (a *Arena) Descendants(id string, maxDepth int) []*Agent {
	var out []*Agent
	var walk func(cur string, depth int)
	walk = func(cur string, depth int) {
		if maxDepth > 0 && depth > maxDepth {
			return
		}
		for _, child := range a.Children(cur) {
			out = append(out, child)
			walk(child.ID, depth+1)
		}
	}
	walk(id, 1)
	return out
}

// Depth returns the number of hops from id up to the root (root has depth 0).
func (a *Arena) Depth(id string) int {
	return len(a.Ancestors(id, 0))
}

// WouldCycle reports whether setting child's parent to candidateParentID
// would introduce a cycle — i.e. candidateParentID is child or one of
// child's own descendants.
func (a *Arena) WouldCycle(childID, candidateParentID string) bool {
	if childID == candidateParentID {
		return true
	}
	for _, d := range a.Descendants(childID, 0) {
		if d.ID == candidateParentID {
			return true
		}
	}
	return false
}
