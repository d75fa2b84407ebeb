// Package store implements spec §6.4's Store contract: an in-memory
// implementation for tests and single-process deployments, and durable
// Redis/Postgres-backed implementations for multi-process deployments,
// grounded on this codebase's memory_store.go and redis_*.go.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/vectorops"
)

// MemoryStore is an in-memory implementation of core.Store, grounded on
// core/memory_store.go's mutex-guarded map pattern. Values are copied at
// the top level on the way in and out. Deep copies are limited to an
// agent's Tuning and Context slices (both directions) and a signal's
// Frequency or a memory entry's Tuning on the way in; other reference
// fields of a returned value (an agent's DriftWindow, ChallengedOutputHashes
// and DormantSince, a signal's Frequency and DeliveredTo, a memory entry's
// Tuning) and the records returned by ValidationsForAgent are shared with
// the store.
type MemoryStore struct {
	mu         sync.RWMutex
	webs       map[string]*core.Web
	agents     map[string]*core.Agent
	signals    map[string]*core.Signal
	validations map[string][]*core.ValidationRecord
	memory     map[string][]*core.WebMemoryEntry // keyed by WebID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		webs:        make(map[string]*core.Web),
		agents:      make(map[string]*core.Agent),
		signals:     make(map[string]*core.Signal),
		validations: make(map[string][]*core.ValidationRecord),
		memory:      make(map[string][]*core.WebMemoryEntry),
	}
}

func webCopy(w *core.Web) *core.Web {
	cp := *w
	return &cp
}

func agentCopy(a *core.Agent) *core.Agent {
	cp := *a
	cp.Tuning = append([]float64(nil), a.Tuning...)
	cp.Context.KnowledgeItems = append([]string(nil), a.Context.KnowledgeItems...)
	cp.Context.FailureWarnings = append([]string(nil), a.Context.FailureWarnings...)
	return &cp
}

func (s *MemoryStore) CreateWeb(ctx context.Context, w *core.Web) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webs[w.ID] = webCopy(w)
	return nil
}

func (s *MemoryStore) GetWeb(ctx context.Context, id string) (*core.Web, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.webs[id]
	if !ok {
		return nil, core.ErrWebNotFound
	}
	return webCopy(w), nil
}

func (s *MemoryStore) UpdateWeb(ctx context.Context, w *core.Web) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.webs[w.ID]; !ok {
		return core.ErrWebNotFound
	}
	s.webs[w.ID] = webCopy(w)
	return nil
}

func (s *MemoryStore) ListRunningWebs(ctx context.Context) ([]*core.Web, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Web
	for _, w := range s.webs {
		if w.State == core.WebRunning {
			out = append(out, webCopy(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateAgent(ctx context.Context, a *core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = agentCopy(a)
	return nil
}

func (s *MemoryStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	return agentCopy(a), nil
}

func (s *MemoryStore) UpdateAgent(ctx context.Context, a *core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return core.ErrAgentNotFound
	}
	s.agents[a.ID] = agentCopy(a)
	return nil
}

func (s *MemoryStore) ListAgents(ctx context.Context, webID string) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Agent
	for _, a := range s.agents {
		if a.WebID == webID {
			out = append(out, agentCopy(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Ancestors/Descendants/Children are structural traversals over the same
// id-edge representation core.Arena uses in memory (spec §9); the store
// reconstructs a throwaway arena from its agent map to reuse that logic
// rather than duplicating the walk.
func (s *MemoryStore) arenaForWeb(webID string) *core.Arena {
	arena := core.NewArena()
	for _, a := range s.agents {
		if a.WebID == webID {
			arena.Add(agentCopy(a))
		}
	}
	return arena
}

func (s *MemoryStore) Ancestors(ctx context.Context, agentID string) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	return s.arenaForWeb(a.WebID).Ancestors(agentID, 0), nil
}

func (s *MemoryStore) Descendants(ctx context.Context, agentID string) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	return s.arenaForWeb(a.WebID).Descendants(agentID, 0), nil
}

func (s *MemoryStore) Children(ctx context.Context, agentID string) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	return s.arenaForWeb(a.WebID).Children(agentID), nil
}

// NearestByTuning ranks webID's living agents by cosine similarity to vec
// and returns the topK (spec §6.4). A brute-force scan is adequate at the
// per-web agent counts this system targets (max_agents is small); a vector
// index is unwarranted here.
func (s *MemoryStore) NearestByTuning(ctx context.Context, webID string, vec []float64, topK int) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		agent *core.Agent
		sim   float64
	}
	var candidates []scored
	for _, a := range s.agents {
		if a.WebID != webID || a.State == core.AgentTerminated {
			continue
		}
		if len(a.Tuning) != len(vec) {
			continue
		}
		candidates = append(candidates, scored{agentCopy(a), vectorops.Cosine(a.Tuning, vec)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if topK > 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	out := make([]*core.Agent, len(candidates))
	for i, c := range candidates {
		out[i] = c.agent
	}
	return out, nil
}

func (s *MemoryStore) CreateSignal(ctx context.Context, sig *core.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sig
	cp.Frequency = append([]float64(nil), sig.Frequency...)
	s.signals[sig.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateSignal(ctx context.Context, sig *core.Signal) error {
	return s.CreateSignal(ctx, sig)
}

func (s *MemoryStore) PendingSignals(ctx context.Context, webID string) ([]*core.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Signal
	for _, sig := range s.signals {
		if sig.WebID == webID && !sig.Processed {
			cp := *sig
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateValidation(ctx context.Context, v *core.ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.validations[v.TargetID] = append(s.validations[v.TargetID], &cp)
	return nil
}

func (s *MemoryStore) ValidationsForAgent(ctx context.Context, agentID string) ([]*core.ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.validations[agentID]
	out := make([]*core.ValidationRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (s *MemoryStore) CreateWebMemoryEntry(ctx context.Context, e *core.WebMemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.Tuning = append([]float64(nil), e.Tuning...)
	s.memory[e.WebID] = append(s.memory[e.WebID], &cp)
	return nil
}

func (s *MemoryStore) SimilarWebMemoryEntries(ctx context.Context, webID string, vec []float64, threshold float64) ([]*core.WebMemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.WebMemoryEntry
	for _, e := range s.memory[webID] {
		if len(e.Tuning) != len(vec) {
			continue
		}
		if vectorops.Cosine(e.Tuning, vec) >= threshold {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
