package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/vectorops"
)

// key namespaces, grounded on core/redis_client.go's namespacing convention
// ("gomind:discovery:*" etc.) — every key this store touches is prefixed
// "arachnid:<namespace>".
const (
	nsWeb        = "arachnid:web"
	nsAgent      = "arachnid:agent"
	nsSignal     = "arachnid:signal"
	nsValidation = "arachnid:validation"
	nsMemory     = "arachnid:memory"

	webAgentsSet    = "arachnid:web:%s:agents"
	webSignalsSet   = "arachnid:web:%s:signals"
	webMemorySet    = "arachnid:web:%s:memory"
	agentValidations = "arachnid:agent:%s:validations"
	runningWebsSet  = "arachnid:webs:running"
)

// RedisStore is a Redis-backed core.Store, grounded on core/redis_client.go
// and core/redis_registry.go's connection-options/namespacing pattern.
// Structural queries (Ancestors/Descendants/Children/NearestByTuning) load
// a web's full agent set and filter in Go, the same approach MemoryStore
// uses, since this system's per-web agent counts are small (bounded by
// max_agents) and Redis has no native vector index.
type RedisStore struct {
	client *redis.Client
}

// RedisStoreOptions configures the connection, mirroring
// core.RedisClientOptions's shape.
type RedisStoreOptions struct {
	RedisURL string
	PoolSize int
}

// NewRedisStore dials redis and verifies connectivity with a Ping, the same
// startup check core/redis_client.go performs.
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", core.ErrInvalidConfig)
	}
	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", core.ErrInvalidConfig)
	}
	if opts.PoolSize > 0 {
		redisOpt.PoolSize = opts.PoolSize
	}
	redisOpt.DialTimeout = 5 * time.Second
	redisOpt.ReadTimeout = 5 * time.Second
	redisOpt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) CreateWeb(ctx context.Context, w *core.Web) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf("%s:%s", nsWeb, w.ID), payload, 0)
	if w.State == core.WebRunning {
		pipe.SAdd(ctx, runningWebsSet, w.ID)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetWeb(ctx context.Context, id string) (*core.Web, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf("%s:%s", nsWeb, id)).Bytes()
	if err == redis.Nil {
		return nil, core.ErrWebNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	var w core.Web
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *RedisStore) UpdateWeb(ctx context.Context, w *core.Web) error {
	pipe := s.client.TxPipeline()
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	pipe.Set(ctx, fmt.Sprintf("%s:%s", nsWeb, w.ID), payload, 0)
	if w.State == core.WebRunning {
		pipe.SAdd(ctx, runningWebsSet, w.ID)
	} else {
		pipe.SRem(ctx, runningWebsSet, w.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ListRunningWebs(ctx context.Context) ([]*core.Web, error) {
	ids, err := s.client.SMembers(ctx, runningWebsSet).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	sort.Strings(ids)
	var out []*core.Web
	for _, id := range ids {
		w, err := s.GetWeb(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *RedisStore) CreateAgent(ctx context.Context, a *core.Agent) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf("%s:%s", nsAgent, a.ID), payload, 0)
	pipe.SAdd(ctx, fmt.Sprintf(webAgentsSet, a.WebID), a.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf("%s:%s", nsAgent, id)).Bytes()
	if err == redis.Nil {
		return nil, core.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	var a core.Agent
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *RedisStore) UpdateAgent(ctx context.Context, a *core.Agent) error {
	return s.CreateAgent(ctx, a)
}

func (s *RedisStore) ListAgents(ctx context.Context, webID string) ([]*core.Agent, error) {
	ids, err := s.client.SMembers(ctx, fmt.Sprintf(webAgentsSet, webID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	var out []*core.Agent
	for _, id := range ids {
		a, err := s.GetAgent(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RedisStore) arenaForWeb(ctx context.Context, webID string) (*core.Arena, error) {
	agents, err := s.ListAgents(ctx, webID)
	if err != nil {
		return nil, err
	}
	arena := core.NewArena()
	for _, a := range agents {
		arena.Add(a)
	}
	return arena, nil
}

func (s *RedisStore) Ancestors(ctx context.Context, agentID string) ([]*core.Agent, error) {
	a, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	arena, err := s.arenaForWeb(ctx, a.WebID)
	if err != nil {
		return nil, err
	}
	return arena.Ancestors(agentID, 0), nil
}

func (s *RedisStore) Descendants(ctx context.Context, agentID string) ([]*core.Agent, error) {
	a, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	arena, err := s.arenaForWeb(ctx, a.WebID)
	if err != nil {
		return nil, err
	}
	return arena.Descendants(agentID, 0), nil
}

func (s *RedisStore) Children(ctx context.Context, agentID string) ([]*core.Agent, error) {
	a, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	arena, err := s.arenaForWeb(ctx, a.WebID)
	if err != nil {
		return nil, err
	}
	return arena.Children(agentID), nil
}

func (s *RedisStore) NearestByTuning(ctx context.Context, webID string, vec []float64, topK int) ([]*core.Agent, error) {
	agents, err := s.ListAgents(ctx, webID)
	if err != nil {
		return nil, err
	}
	type scored struct {
		agent *core.Agent
		sim   float64
	}
	var candidates []scored
	for _, a := range agents {
		if a.State == core.AgentTerminated || len(a.Tuning) != len(vec) {
			continue
		}
		candidates = append(candidates, scored{a, vectorops.Cosine(a.Tuning, vec)})
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

func (s *RedisStore) CreateSignal(ctx context.Context, sig *core.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf("%s:%s", nsSignal, sig.ID), payload, 24*time.Hour)
	if !sig.Processed {
		pipe.SAdd(ctx, fmt.Sprintf(webSignalsSet, sig.WebID), sig.ID)
	} else {
		pipe.SRem(ctx, fmt.Sprintf(webSignalsSet, sig.WebID), sig.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) UpdateSignal(ctx context.Context, sig *core.Signal) error {
	return s.CreateSignal(ctx, sig)
}

func (s *RedisStore) PendingSignals(ctx context.Context, webID string) ([]*core.Signal, error) {
	ids, err := s.client.SMembers(ctx, fmt.Sprintf(webSignalsSet, webID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	var out []*core.Signal
	for _, id := range ids {
		raw, err := s.client.Get(ctx, fmt.Sprintf("%s:%s", nsSignal, id)).Bytes()
		if err != nil {
			continue
		}
		var sig core.Signal
		if err := json.Unmarshal(raw, &sig); err != nil {
			continue
		}
		out = append(out, &sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RedisStore) CreateValidation(ctx context.Context, v *core.ValidationRecord) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	key := fmt.Sprintf(agentValidations, v.TargetID)
	pipe.RPush(ctx, key, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ValidationsForAgent(ctx context.Context, agentID string) ([]*core.ValidationRecord, error) {
	raws, err := s.client.LRange(ctx, fmt.Sprintf(agentValidations, agentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	out := make([]*core.ValidationRecord, 0, len(raws))
	for _, raw := range raws {
		var v core.ValidationRecord
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}

func (s *RedisStore) CreateWebMemoryEntry(ctx context.Context, e *core.WebMemoryEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, fmt.Sprintf(webMemorySet, e.WebID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) SimilarWebMemoryEntries(ctx context.Context, webID string, vec []float64, threshold float64) ([]*core.WebMemoryEntry, error) {
	raws, err := s.client.LRange(ctx, fmt.Sprintf(webMemorySet, webID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	var out []*core.WebMemoryEntry
	for _, raw := range raws {
		var e core.WebMemoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		if len(e.Tuning) != len(vec) {
			continue
		}
		if vectorops.Cosine(e.Tuning, vec) >= threshold {
			out = append(out, &e)
		}
	}
	return out, nil
}
