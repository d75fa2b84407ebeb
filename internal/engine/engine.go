// Package engine wires the pure coordination.Driver to a durable core.Store:
// it is the process-level loop that hydrates each Running web's arena from
// storage, ticks it, and persists the results, grounded on this codebase's
// background-worker-pool convention (a goroutine on a ticker driving
// repeated work items) adapted to one web per scheduling round instead of
// one queued task per worker.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/coordination"
	"github.com/Pharbi/arachnid/internal/telemetry"
)

// Engine owns the process-wide Store, Driver, and provider bundle.
type Engine struct {
	Store        core.Store
	Driver       *coordination.Driver
	Providers    core.Providers
	Logger       telemetry.Logger
	TickInterval time.Duration

	// Tracer spans one "coordination.tick" per web per round when set;
	// nil disables tracing entirely (telemetry.StartTick tolerates nil).
	Tracer telemetry.Tracer
}

// New returns an Engine with a 1s tick interval, the fastest cadence that
// still lets many running webs share one process without a tick queue
// backing up (spec §4.7 places no lower bound on tick frequency).
func New(store core.Store, driver *coordination.Driver, providers core.Providers, logger telemetry.Logger) *Engine {
	return &Engine{
		Store:        store,
		Driver:       driver,
		Providers:    providers,
		Logger:       logger,
		TickInterval: time.Second,
	}
}

// CreateWeb implements spec §4.1: embed the task, create the root agent
// Active with the task as its initial trigger, and persist both.
func (e *Engine) CreateWeb(ctx context.Context, webID, task, capability string, cfg *core.Config) error {
	tuning, err := e.Providers.Embedding.Embed(ctx, task)
	if err != nil {
		return err
	}
	now := time.Now()
	web := &core.Web{
		ID:          webID,
		RootAgentID: uuid.NewString(),
		Task:        task,
		State:       core.WebRunning,
		CreatedAt:   now,
		Config:      *cfg,
	}
	root := &core.Agent{
		ID:                  web.RootAgentID,
		WebID:               web.ID,
		Purpose:             task,
		Tuning:              tuning,
		Capability:          capability,
		State:               core.AgentActive,
		Health:              1.0,
		ActivationThreshold: cfg.DefaultThreshold,
		CreatedAt:           now,
		LastActiveAt:        now,
		Context:             core.AgentContext{Purpose: task},
	}
	if root.Capability == "" {
		root.Capability = "generic"
	}
	if err := e.Store.CreateWeb(ctx, web); err != nil {
		return err
	}
	return e.Store.CreateAgent(ctx, root)
}

// Run drives every Running web's tick loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.tickAllRunningWebs(ctx)
		}
	}
}

func (e *Engine) tickAllRunningWebs(ctx context.Context) {
	webs, err := e.Store.ListRunningWebs(ctx)
	if err != nil {
		e.Logger.Warn("failed to list running webs", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, web := range webs {
		if err := e.tickOne(ctx, web); err != nil {
			e.Logger.Warn("tick failed", map[string]interface{}{"web_id": web.ID, "error": err.Error()})
		}
	}
}

func (e *Engine) tickOne(ctx context.Context, web *core.Web) error {
	ctx, span := telemetry.StartTick(ctx, e.Tracer, web.ID)
	defer span.End()

	agents, err := e.Store.ListAgents(ctx, web.ID)
	if err != nil {
		return err
	}
	arena := core.NewArena()
	for _, a := range agents {
		arena.Add(a)
	}

	pending, err := e.Store.PendingSignals(ctx, web.ID)
	if err != nil {
		return err
	}

	memory, err := e.allMemoryEntries(ctx, web.ID, web.Config.Dimension)
	if err != nil {
		return err
	}
	initialMemoryCount := len(memory)

	updatedWeb, carry, updatedMemory, err := e.Driver.Tick(ctx, web, arena, pending, memory)
	if err != nil {
		return err
	}

	for _, a := range arena.All() {
		if err := e.Store.UpdateAgent(ctx, a); err != nil {
			e.Logger.Warn("failed to persist agent", map[string]interface{}{"agent_id": a.ID, "error": err.Error()})
		}
	}
	for _, sig := range pending {
		if err := e.Store.UpdateSignal(ctx, sig); err != nil {
			e.Logger.Warn("failed to persist signal", map[string]interface{}{"signal_id": sig.ID, "error": err.Error()})
		}
	}
	for _, sig := range carry {
		if err := e.Store.CreateSignal(ctx, sig); err != nil {
			e.Logger.Warn("failed to persist signal", map[string]interface{}{"signal_id": sig.ID, "error": err.Error()})
		}
	}
	for _, m := range updatedMemory[initialMemoryCount:] {
		if err := e.Store.CreateWebMemoryEntry(ctx, m); err != nil {
			e.Logger.Warn("failed to persist memory entry", map[string]interface{}{"web_id": web.ID, "error": err.Error()})
		}
	}
	return e.Store.UpdateWeb(ctx, updatedWeb)
}

// allMemoryEntries fetches every entry for webID regardless of similarity,
// by exploiting SimilarWebMemoryEntries' contract: a zero vector scores a
// cosine similarity of exactly 0 against any stored tuning (spec §4.1's
// zero-norm convention), and threshold -1 accepts every score. Entries whose
// tuning length differs from dimension are skipped by the store.
func (e *Engine) allMemoryEntries(ctx context.Context, webID string, dimension int) ([]*core.WebMemoryEntry, error) {
	zero := make([]float64, dimension)
	return e.Store.SimilarWebMemoryEntries(ctx, webID, zero, -1)
}
