package core

import "time"

// WebState is the lifecycle state of a task-scoped execution scope.
type WebState string

const (
	WebInitializing WebState = "Initializing"
	WebRunning      WebState = "Running"
	WebConverged    WebState = "Converged"
	WebFailed       WebState = "Failed"
	WebTerminated   WebState = "Terminated"
)

// Web is a task-scoped execution scope: one natural-language task grows one
// Web, which owns a DAG of Agents rooted at RootAgentID. See spec §3.
type Web struct {
	ID          string
	RootAgentID string
	Task        string
	State       WebState
	CreatedAt   time.Time

	// Config is an immutable snapshot of the tuning knobs (§6.5) taken at
	// web creation; later global config changes never affect a running web.
	Config Config

	// TickSeq is a monotonic counter incremented once per coordination
	// tick, used as an idempotency key when resuming a Running web from
	// stored state after a restart (§6.4 recovery contract).
	TickSeq uint64
}

// IsTerminal reports whether the web has reached a state from which it
// never transitions again.
func (w *Web) IsTerminal() bool {
	return w.State == WebConverged || w.State == WebFailed || w.State == WebTerminated
}
