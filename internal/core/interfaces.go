package core

import "context"

// ExecutionStatus is the outcome category of a capability execution (spec §6.1).
type ExecutionStatus string

const (
	StatusComplete   ExecutionStatus = "Complete"
	StatusNeedsMore  ExecutionStatus = "NeedsMore"
	StatusFailed     ExecutionStatus = "Failed"
)

// Need is an agent's request for a new collaborator, routed by the spawn
// protocol either to an existing lineage member or to a freshly created
// child (spec §4.3).
type Need struct {
	Description         string
	SuggestedCapability string
}

// ExecutionResult is what a Capability returns (spec §6.1).
type ExecutionResult struct {
	Status   ExecutionStatus
	Reason   string // populated for NeedsMore/Failed
	Output   string
	Artifacts map[string]string
	Signals  []SignalDraft
	Needs    []Need

	// DeclaredImpact/DeclaredUncertainty feed the validation scheduler's
	// priority formula (spec §4.6); default to 0.5 uncertainty when a
	// capability does not declare one.
	DeclaredImpact      float64
	DeclaredUncertainty float64
}

// SignalDraft is an emitted signal before it is assigned an id/timestamps by
// the coordination loop (spec §4.7 step 4).
type SignalDraft struct {
	Frequency []float64
	Content   string
	Amplitude float64
	Direction SignalDirection
	Payload   interface{}
}

// ExecutionContext is what a capability receives as its working context:
// the agent's accumulated purpose/knowledge/warnings plus identifying
// fields a capability may want for logging (spec §6.1).
type ExecutionContext struct {
	AgentID    string
	WebID      string
	Purpose    string
	Knowledge  []string
	Warnings   []string
	Capability string
}

// Trigger is the signal that activated the executing agent (spec §4.7 step 3).
type Trigger struct {
	SignalID  string
	Frequency []float64
	Content   string
	Amplitude float64
	Suspect   bool
}

// Capability is a pure dispatch target: given context, the triggering
// signal, and the provider bundle, produce a result. No runtime type
// hierarchy is needed — capabilities are plain functions keyed by tag in a
// dispatch table (spec §9).
type Capability func(ctx context.Context, ec ExecutionContext, trigger Trigger, providers Providers) (ExecutionResult, error)

// Providers bundles the process-wide collaborator singletons a capability
// or the validation scheduler may call into. Passed explicitly at every
// call site — never reached via package-level globals (spec §9).
type Providers struct {
	Embedding EmbeddingProvider
	LLM       LLMProvider
	Search    SearchProvider
}

// EmbeddingProvider embeds text into a fixed-dimension vector (spec §6.2).
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// LLMProvider is used by capabilities and by the validation scheduler
// (spec §6.3).
type LLMProvider interface {
	Complete(ctx context.Context, prompt, systemPrompt string, temperature float32) (string, error)
	Validate(ctx context.Context, output string, ec ExecutionContext) (Judgment, float64, string, error)
}

// SearchProvider is an optional collaborator capabilities may use; the core
// never calls it directly (spec §1 out-of-scope: external search providers).
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Store is the abstract persistence/query contract the core depends on
// (spec §6.4). Implementations may be in-memory or durable; the core makes
// no durability assumption beyond the recovery contract: on restart, a
// Running web resumes from its stored signals/agents.
type Store interface {
	// Webs
	CreateWeb(ctx context.Context, w *Web) error
	GetWeb(ctx context.Context, id string) (*Web, error)
	UpdateWeb(ctx context.Context, w *Web) error
	ListRunningWebs(ctx context.Context) ([]*Web, error)

	// Agents
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	UpdateAgent(ctx context.Context, a *Agent) error
	ListAgents(ctx context.Context, webID string) ([]*Agent, error)

	// Lineage queries, structural traversals over the agent arena (spec §9).
	Ancestors(ctx context.Context, agentID string) ([]*Agent, error)
	Descendants(ctx context.Context, agentID string) ([]*Agent, error)
	Children(ctx context.Context, agentID string) ([]*Agent, error)
	NearestByTuning(ctx context.Context, webID string, vec []float64, topK int) ([]*Agent, error)

	// Signals
	CreateSignal(ctx context.Context, s *Signal) error
	UpdateSignal(ctx context.Context, s *Signal) error
	PendingSignals(ctx context.Context, webID string) ([]*Signal, error)

	// Validations
	CreateValidation(ctx context.Context, v *ValidationRecord) error
	ValidationsForAgent(ctx context.Context, agentID string) ([]*ValidationRecord, error)

	// Web memory
	CreateWebMemoryEntry(ctx context.Context, e *WebMemoryEntry) error
	SimilarWebMemoryEntries(ctx context.Context, webID string, vec []float64, threshold float64) ([]*WebMemoryEntry, error)
}
