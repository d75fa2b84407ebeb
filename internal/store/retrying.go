package store

import (
	"context"

	"github.com/Pharbi/arachnid/internal/core"
)

// RetryingStore wraps a core.Store so every call goes through WithRetry,
// giving a Redis- or Postgres-backed store the bounded-backoff treatment
// spec §7 requires for a transient StoreUnavailable condition without
// duplicating the retry loop into every method body of RedisStore and
// PostgresStore — the same wrap-don't-modify shape
// resilience/factory.go uses to layer a circuit breaker over a plain
// client rather than editing the client itself.
type RetryingStore struct {
	inner core.Store
	cfg   RetryConfig
}

// NewRetryingStore wraps inner with cfg's retry policy. Pass
// DefaultRetryConfig() for the spec's default bounded-retry behavior.
func NewRetryingStore(inner core.Store, cfg RetryConfig) *RetryingStore {
	return &RetryingStore{inner: inner, cfg: cfg}
}

func (s *RetryingStore) CreateWeb(ctx context.Context, w *core.Web) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.CreateWeb(ctx, w) })
	return err
}

func (s *RetryingStore) GetWeb(ctx context.Context, id string) (*core.Web, error) {
	return WithRetry(ctx, s.cfg, func() (*core.Web, error) { return s.inner.GetWeb(ctx, id) })
}

func (s *RetryingStore) UpdateWeb(ctx context.Context, w *core.Web) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.UpdateWeb(ctx, w) })
	return err
}

func (s *RetryingStore) ListRunningWebs(ctx context.Context) ([]*core.Web, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Web, error) { return s.inner.ListRunningWebs(ctx) })
}

func (s *RetryingStore) CreateAgent(ctx context.Context, a *core.Agent) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.CreateAgent(ctx, a) })
	return err
}

func (s *RetryingStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	return WithRetry(ctx, s.cfg, func() (*core.Agent, error) { return s.inner.GetAgent(ctx, id) })
}

func (s *RetryingStore) UpdateAgent(ctx context.Context, a *core.Agent) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.UpdateAgent(ctx, a) })
	return err
}

func (s *RetryingStore) ListAgents(ctx context.Context, webID string) ([]*core.Agent, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Agent, error) { return s.inner.ListAgents(ctx, webID) })
}

func (s *RetryingStore) Ancestors(ctx context.Context, agentID string) ([]*core.Agent, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Agent, error) { return s.inner.Ancestors(ctx, agentID) })
}

func (s *RetryingStore) Descendants(ctx context.Context, agentID string) ([]*core.Agent, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Agent, error) { return s.inner.Descendants(ctx, agentID) })
}

func (s *RetryingStore) Children(ctx context.Context, agentID string) ([]*core.Agent, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Agent, error) { return s.inner.Children(ctx, agentID) })
}

func (s *RetryingStore) NearestByTuning(ctx context.Context, webID string, vec []float64, topK int) ([]*core.Agent, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Agent, error) { return s.inner.NearestByTuning(ctx, webID, vec, topK) })
}

func (s *RetryingStore) CreateSignal(ctx context.Context, sig *core.Signal) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.CreateSignal(ctx, sig) })
	return err
}

func (s *RetryingStore) UpdateSignal(ctx context.Context, sig *core.Signal) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.UpdateSignal(ctx, sig) })
	return err
}

func (s *RetryingStore) PendingSignals(ctx context.Context, webID string) ([]*core.Signal, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.Signal, error) { return s.inner.PendingSignals(ctx, webID) })
}

func (s *RetryingStore) CreateValidation(ctx context.Context, v *core.ValidationRecord) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.CreateValidation(ctx, v) })
	return err
}

func (s *RetryingStore) ValidationsForAgent(ctx context.Context, agentID string) ([]*core.ValidationRecord, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.ValidationRecord, error) { return s.inner.ValidationsForAgent(ctx, agentID) })
}

func (s *RetryingStore) CreateWebMemoryEntry(ctx context.Context, e *core.WebMemoryEntry) error {
	_, err := WithRetry(ctx, s.cfg, func() (struct{}, error) { return struct{}{}, s.inner.CreateWebMemoryEntry(ctx, e) })
	return err
}

func (s *RetryingStore) SimilarWebMemoryEntries(ctx context.Context, webID string, vec []float64, threshold float64) ([]*core.WebMemoryEntry, error) {
	return WithRetry(ctx, s.cfg, func() ([]*core.WebMemoryEntry, error) {
		return s.inner.SimilarWebMemoryEntries(ctx, webID, vec, threshold)
	})
}
