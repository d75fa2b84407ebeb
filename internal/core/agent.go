package core

import (
	"time"

	"github.com/Pharbi/arachnid/internal/vectorops"
)

// AgentState is a node's position in the lifecycle state machine (spec §4.4).
type AgentState string

const (
	AgentActive      AgentState = "Active"
	AgentListening   AgentState = "Listening"
	AgentDormant     AgentState = "Dormant"
	AgentQuarantine  AgentState = "Quarantine"
	AgentIsolated    AgentState = "Isolated"
	AgentWindingDown AgentState = "WindingDown"
	AgentTerminated  AgentState = "Terminated"
)

// IsTerminal reports whether the state machine never leaves this state.
func (s AgentState) IsTerminal() bool { return s == AgentTerminated }

// IsPenaltyState reports whether s is one of the degraded states entered
// only by health decay (Quarantine/Isolated), which recovery can exit back
// to the agent's pre-penalty state (spec §4.4).
func (s AgentState) IsPenaltyState() bool {
	return s == AgentQuarantine || s == AgentIsolated
}

// AgentContext is the accumulated working memory carried by an agent:
// its purpose, a bounded window of recent knowledge items, and inherited
// failure warnings from web memory (spec §3).
type AgentContext struct {
	Purpose          string
	KnowledgeItems   []string // capped at MaxKnowledgeItems, oldest evicted
	FailureWarnings  []string
}

// MaxKnowledgeItems bounds AgentContext.KnowledgeItems (spec §3, §4.7 step 4).
const MaxKnowledgeItems = 10

// AppendKnowledge appends an item, evicting the oldest if the cap is exceeded.
func (c *AgentContext) AppendKnowledge(item string) {
	c.KnowledgeItems = append(c.KnowledgeItems, item)
	if len(c.KnowledgeItems) > MaxKnowledgeItems {
		c.KnowledgeItems = c.KnowledgeItems[len(c.KnowledgeItems)-MaxKnowledgeItems:]
	}
}

// Agent is a node in a Web's DAG: semantic identity (purpose, tuning,
// capability tag), runtime lifecycle state, health, and accumulated
// context. See spec §3 for the full invariant list.
type Agent struct {
	ID       string
	WebID    string
	ParentID string // "" for the root agent

	Purpose    string
	Tuning     []float64 // dimension D, L2-norm > 0
	Capability string

	State               AgentState
	Health              float64 // [0,1]
	ActivationThreshold float64 // (0,1)
	ProbationRemaining  int     // monotonically decreasing, resets only on termination

	// PrePenaltyState is the state the agent occupied before entering
	// Quarantine, so recovery (health >= recovery threshold) knows what
	// non-penalty state to return to (spec §4.4).
	PrePenaltyState AgentState

	CreatedAt    time.Time
	LastActiveAt time.Time
	DormantSince *time.Time

	Context AgentContext

	// DriftWindow holds up to tuning_drift_window most-recent signal
	// frequencies the agent successfully handled, consumed by §4.5's
	// tuning-drift update and then left in place (a ring, not drained).
	DriftWindow [][]float64

	// ExecutionCount / ChallengedOutputHashes support the validation
	// scheduler's "prior challenged output" check (§4.5) without retaining
	// full output bodies.
	ExecutionCount         int
	ChallengedOutputHashes map[string]bool
}

// ValidateInvariants checks the structural invariants spec §3 attaches to
// an Agent (tuning dimension/non-zero, threshold range, health range).
// Does not check DAG-level invariants (parent ordering, acyclicity); those
// are enforced by the store/spawn protocol, which have visibility into the
// whole arena.
func (a *Agent) ValidateInvariants(dimension int) error {
	if len(a.Tuning) != dimension {
		return ErrDimensionMismatch
	}
	if vectorops.IsZeroish(a.Tuning) {
		return ErrDimensionMismatch
	}
	if a.ActivationThreshold <= 0 || a.ActivationThreshold >= 1 {
		return ErrThresholdOutOfRange
	}
	if a.Health < 0 || a.Health > 1 {
		return ErrInvalidConfig
	}
	return nil
}

// ClampHealth keeps Health within [0,1] after an additive update (spec §4.5).
func (a *Agent) ClampHealth() {
	if a.Health < 0 {
		a.Health = 0
	}
	if a.Health > 1 {
		a.Health = 1
	}
}
