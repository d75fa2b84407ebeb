// Package spawn implements the spawn protocol of spec §4.3: embedding a
// need, checking for lineage reuse before creating a child, enforcing web
// capacity limits, and inheriting failure warnings from web memory.
package spawn

import (
	"context"
	"time"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/resonance"
	"github.com/Pharbi/arachnid/internal/webmemory"
)

// Outcome is what the coordination loop must turn into real mutations:
// either a reuse signal routed to an existing agent, a newly created child
// plus its initial kick signal, or a refusal.
type Outcome struct {
	Reused      bool
	ReuseTarget string
	ReuseSignal *core.SignalDraft

	Refused       bool
	RefusalReason string

	Child      *core.Agent
	KickSignal *core.SignalDraft
}

// Request is one agent's emitted Need, plus the identifying context the
// protocol needs to act on it (spec §4.3).
type Request struct {
	RequesterID      string
	WebID            string
	Need             core.Need
	DefaultThreshold float64
}

// Run executes spec §4.3 for one Request against arena. embedder produces
// the need's tuning vector; memoryEntries should already be scoped to
// request.WebID (e.g. via Store.SimilarWebMemoryEntries, or the full set
// for an in-memory store).
func Run(ctx context.Context, arena *core.Arena, cfg *core.Config, embedder core.EmbeddingProvider, memoryEntries []*core.WebMemoryEntry, request Request) (Outcome, error) {
	embedding, err := embedder.Embed(ctx, request.Need.Description)
	if err != nil {
		return Outcome{}, err
	}

	synthetic := &core.Signal{
		Frequency: embedding,
		Amplitude: 1.0,
	}

	requester, ok := arena.Get(request.RequesterID)
	if !ok {
		return Outcome{Refused: true, RefusalReason: "requester not found"}, nil
	}

	if target, eff, direction, found := bestReuseCandidate(arena, requester, synthetic); found {
		return Outcome{
			Reused:      true,
			ReuseTarget: target.ID,
			ReuseSignal: &core.SignalDraft{
				Frequency: embedding,
				Content:   request.Need.Description,
				Amplitude: eff,
				Direction: direction,
			},
		}, nil
	}

	if arena.LivingCount()+1 > cfg.MaxAgents {
		return Outcome{Refused: true, RefusalReason: "max_agents exceeded"}, nil
	}
	parentDepth := arena.Depth(request.RequesterID)
	if cfg.MaxDepth > 0 && parentDepth > cfg.MaxDepth-1 {
		return Outcome{Refused: true, RefusalReason: "max_depth exceeded"}, nil
	}

	warnings := webmemory.MatchWarnings(memoryEntries, embedding)

	threshold := request.DefaultThreshold
	if threshold <= 0 {
		threshold = cfg.DefaultThreshold
	}

	child := &core.Agent{
		ParentID:            request.RequesterID,
		WebID:               request.WebID,
		Purpose:             request.Need.Description,
		Tuning:              embedding,
		Capability:          request.Need.SuggestedCapability,
		State:               core.AgentListening,
		Health:              1.0,
		ActivationThreshold: threshold,
		ProbationRemaining:  cfg.ProbationPeriod,
		CreatedAt:           time.Now(),
		LastActiveAt:        time.Now(),
		Context: core.AgentContext{
			Purpose:         request.Need.Description,
			FailureWarnings: warnings,
		},
	}

	kick := &core.SignalDraft{
		Frequency: embedding,
		Content:   request.Need.Description,
		Amplitude: 1.0,
		Direction: core.Downward,
	}

	return Outcome{Child: child, KickSignal: kick}, nil
}

// bestReuseCandidate enumerates requester's non-Terminated ancestors and
// descendants and returns the highest-eff resonant candidate, if any
// (spec §4.3 step 2).
func bestReuseCandidate(arena *core.Arena, requester *core.Agent, synthetic *core.Signal) (*core.Agent, float64, core.SignalDirection, bool) {
	var best *core.Agent
	var bestEff float64
	var bestDir core.SignalDirection

	consider := func(candidate *core.Agent, dir core.SignalDirection) {
		if candidate.State == core.AgentTerminated {
			return
		}
		verdict := resonance.Evaluate(candidate, synthetic)
		if verdict.Activated && (best == nil || verdict.Eff > bestEff) {
			best = candidate
			bestEff = verdict.Eff
			bestDir = dir
		}
	}

	for _, ancestor := range arena.Ancestors(requester.ID, 0) {
		consider(ancestor, core.Upward)
	}
	for _, descendant := range arena.Descendants(requester.ID, 0) {
		consider(descendant, core.Downward)
	}

	return best, bestEff, bestDir, best != nil
}
