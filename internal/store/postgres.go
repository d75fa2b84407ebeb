package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/vectorops"
)

// PostgresStore is a relational core.Store backed by jackc/pgx/v5. Tuning
// vectors and accumulated context are stored as JSONB columns rather than a
// vector extension column type: this system's dimension and per-web agent
// counts are both small enough that NearestByTuning/SimilarWebMemoryEntries
// scan-and-score in Go, the same approach RedisStore and MemoryStore use,
// rather than depending on a pgvector-specific deployment.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Schema is the DDL PostgresStore expects to already exist (applied by a
// migration tool at deploy time, not by this package).
const Schema = `
CREATE TABLE IF NOT EXISTS webs (
	id TEXT PRIMARY KEY,
	root_agent_id TEXT NOT NULL,
	task TEXT NOT NULL,
	state TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	config JSONB NOT NULL,
	tick_seq BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	web_id TEXT NOT NULL REFERENCES webs(id),
	parent_id TEXT NOT NULL DEFAULT '',
	purpose TEXT NOT NULL DEFAULT '',
	tuning JSONB NOT NULL,
	capability TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	health DOUBLE PRECISION NOT NULL,
	activation_threshold DOUBLE PRECISION NOT NULL,
	probation_remaining INT NOT NULL DEFAULT 0,
	pre_penalty_state TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	last_active_at TIMESTAMPTZ NOT NULL,
	dormant_since TIMESTAMPTZ,
	context JSONB NOT NULL,
	drift_window JSONB NOT NULL DEFAULT '[]',
	execution_count INT NOT NULL DEFAULT 0,
	challenged_output_hashes JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_agents_web_id ON agents(web_id);

CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	web_id TEXT NOT NULL REFERENCES webs(id),
	origin_id TEXT NOT NULL,
	frequency JSONB NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	amplitude DOUBLE PRECISION NOT NULL,
	direction TEXT NOT NULL,
	hops INT NOT NULL DEFAULT 0,
	suspect BOOLEAN NOT NULL DEFAULT FALSE,
	processed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	delivered_to JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_signals_web_id_pending ON signals(web_id) WHERE NOT processed;

CREATE TABLE IF NOT EXISTS validations (
	id TEXT PRIMARY KEY,
	target_id TEXT NOT NULL,
	web_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	judgment TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validations_target_id ON validations(target_id);

CREATE TABLE IF NOT EXISTS web_memory_entries (
	id TEXT PRIMARY KEY,
	web_id TEXT NOT NULL,
	pattern TEXT NOT NULL,
	purpose TEXT NOT NULL DEFAULT '',
	tuning JSONB NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_web_memory_web_id ON web_memory_entries(web_id);
`

// NewPostgresStore connects to dsn and verifies connectivity with a Ping.
// Callers are responsible for applying Schema (e.g. via a migration step)
// before first use.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) CreateWeb(ctx context.Context, w *core.Web) error {
	cfgJSON, err := json.Marshal(w.Config)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO webs (id, root_agent_id, task, state, created_at, config, tick_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET root_agent_id=$2, task=$3, state=$4, config=$6, tick_seq=$7`,
		w.ID, w.RootAgentID, w.Task, string(w.State), w.CreatedAt, cfgJSON, w.TickSeq)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetWeb(ctx context.Context, id string) (*core.Web, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, root_agent_id, task, state, created_at, config, tick_seq FROM webs WHERE id=$1`, id)
	var w core.Web
	var state string
	var cfgJSON []byte
	if err := row.Scan(&w.ID, &w.RootAgentID, &w.Task, &state, &w.CreatedAt, &cfgJSON, &w.TickSeq); err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.ErrWebNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	w.State = core.WebState(state)
	if err := json.Unmarshal(cfgJSON, &w.Config); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PostgresStore) UpdateWeb(ctx context.Context, w *core.Web) error {
	return s.CreateWeb(ctx, w)
}

func (s *PostgresStore) ListRunningWebs(ctx context.Context) ([]*core.Web, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM webs WHERE state=$1 ORDER BY id`, string(core.WebRunning))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	var out []*core.Web
	for _, id := range ids {
		w, err := s.GetWeb(ctx, id)
		if err == nil {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *PostgresStore) CreateAgent(ctx context.Context, a *core.Agent) error {
	tuningJSON, _ := json.Marshal(a.Tuning)
	ctxJSON, _ := json.Marshal(a.Context)
	driftJSON, _ := json.Marshal(a.DriftWindow)
	hashesJSON, _ := json.Marshal(a.ChallengedOutputHashes)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (id, web_id, parent_id, purpose, tuning, capability, state, health,
			activation_threshold, probation_remaining, pre_penalty_state, created_at, last_active_at,
			dormant_since, context, drift_window, execution_count, challenged_output_hashes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET parent_id=$3, purpose=$4, tuning=$5, capability=$6, state=$7,
			health=$8, activation_threshold=$9, probation_remaining=$10, pre_penalty_state=$11,
			last_active_at=$13, dormant_since=$14, context=$15, drift_window=$16, execution_count=$17,
			challenged_output_hashes=$18`,
		a.ID, a.WebID, a.ParentID, a.Purpose, tuningJSON, a.Capability, string(a.State), a.Health,
		a.ActivationThreshold, a.ProbationRemaining, string(a.PrePenaltyState), a.CreatedAt, a.LastActiveAt,
		a.DormantSince, ctxJSON, driftJSON, a.ExecutionCount, hashesJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func scanAgent(row pgx.Row) (*core.Agent, error) {
	var a core.Agent
	var state, prePenalty string
	var tuningJSON, ctxJSON, driftJSON, hashesJSON []byte
	err := row.Scan(&a.ID, &a.WebID, &a.ParentID, &a.Purpose, &tuningJSON, &a.Capability, &state, &a.Health,
		&a.ActivationThreshold, &a.ProbationRemaining, &prePenalty, &a.CreatedAt, &a.LastActiveAt,
		&a.DormantSince, &ctxJSON, &driftJSON, &a.ExecutionCount, &hashesJSON)
	if err != nil {
		return nil, err
	}
	a.State = core.AgentState(state)
	a.PrePenaltyState = core.AgentState(prePenalty)
	_ = json.Unmarshal(tuningJSON, &a.Tuning)
	_ = json.Unmarshal(ctxJSON, &a.Context)
	_ = json.Unmarshal(driftJSON, &a.DriftWindow)
	_ = json.Unmarshal(hashesJSON, &a.ChallengedOutputHashes)
	return &a, nil
}

const agentCols = `id, web_id, parent_id, purpose, tuning, capability, state, health, activation_threshold,
	probation_remaining, pre_penalty_state, created_at, last_active_at, dormant_since, context,
	drift_window, execution_count, challenged_output_hashes`

func (s *PostgresStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentCols+` FROM agents WHERE id=$1`, id)
	a, err := scanAgent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.ErrAgentNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAgent(ctx context.Context, a *core.Agent) error {
	return s.CreateAgent(ctx, a)
}

func (s *PostgresStore) ListAgents(ctx context.Context, webID string) ([]*core.Agent, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+agentCols+` FROM agents WHERE web_id=$1 ORDER BY created_at`, webID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var out []*core.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *PostgresStore) arenaForWeb(ctx context.Context, webID string) (*core.Arena, error) {
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

func (s *PostgresStore) Ancestors(ctx context.Context, agentID string) ([]*core.Agent, error) {
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

func (s *PostgresStore) Descendants(ctx context.Context, agentID string) ([]*core.Agent, error) {
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

func (s *PostgresStore) Children(ctx context.Context, agentID string) ([]*core.Agent, error) {
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

func (s *PostgresStore) NearestByTuning(ctx context.Context, webID string, vec []float64, topK int) ([]*core.Agent, error) {
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

func (s *PostgresStore) CreateSignal(ctx context.Context, sig *core.Signal) error {
	freqJSON, _ := json.Marshal(sig.Frequency)
	deliveredJSON, _ := json.Marshal(sig.DeliveredTo)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO signals (id, web_id, origin_id, frequency, content, amplitude, direction, hops,
			suspect, processed, created_at, delivered_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET amplitude=$6, hops=$8, processed=$10, delivered_to=$12`,
		sig.ID, sig.WebID, sig.OriginID, freqJSON, sig.Content, sig.Amplitude, string(sig.Direction),
		sig.Hops, sig.Suspect, sig.Processed, sig.CreatedAt, deliveredJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) UpdateSignal(ctx context.Context, sig *core.Signal) error {
	return s.CreateSignal(ctx, sig)
}

func (s *PostgresStore) PendingSignals(ctx context.Context, webID string) ([]*core.Signal, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, web_id, origin_id, frequency, content, amplitude, direction,
		hops, suspect, processed, created_at, delivered_to FROM signals WHERE web_id=$1 AND NOT processed
		ORDER BY created_at`, webID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var out []*core.Signal
	for rows.Next() {
		var sig core.Signal
		var direction string
		var freqJSON, deliveredJSON []byte
		if err := rows.Scan(&sig.ID, &sig.WebID, &sig.OriginID, &freqJSON, &sig.Content, &sig.Amplitude,
			&direction, &sig.Hops, &sig.Suspect, &sig.Processed, &sig.CreatedAt, &deliveredJSON); err != nil {
			continue
		}
		sig.Direction = core.SignalDirection(direction)
		_ = json.Unmarshal(freqJSON, &sig.Frequency)
		_ = json.Unmarshal(deliveredJSON, &sig.DeliveredTo)
		out = append(out, &sig)
	}
	return out, nil
}

func (s *PostgresStore) CreateValidation(ctx context.Context, v *core.ValidationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO validations (id, target_id, web_id, content_hash, judgment, confidence, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.TargetID, v.WebID, v.ContentHash, string(v.Judgment), v.Confidence, v.Reason, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ValidationsForAgent(ctx context.Context, agentID string) ([]*core.ValidationRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, target_id, web_id, content_hash, judgment, confidence, reason,
		created_at FROM validations WHERE target_id=$1 ORDER BY created_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var out []*core.ValidationRecord
	for rows.Next() {
		var v core.ValidationRecord
		var judgment string
		if err := rows.Scan(&v.ID, &v.TargetID, &v.WebID, &v.ContentHash, &judgment, &v.Confidence, &v.Reason, &v.CreatedAt); err != nil {
			continue
		}
		v.Judgment = core.Judgment(judgment)
		out = append(out, &v)
	}
	return out, nil
}

func (s *PostgresStore) CreateWebMemoryEntry(ctx context.Context, e *core.WebMemoryEntry) error {
	tuningJSON, _ := json.Marshal(e.Tuning)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO web_memory_entries (id, web_id, pattern, purpose, tuning, summary, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.WebID, string(e.Pattern), e.Purpose, tuningJSON, e.Summary, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) SimilarWebMemoryEntries(ctx context.Context, webID string, vec []float64, threshold float64) ([]*core.WebMemoryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, web_id, pattern, purpose, tuning, summary, created_at
		FROM web_memory_entries WHERE web_id=$1`, webID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var out []*core.WebMemoryEntry
	for rows.Next() {
		var e core.WebMemoryEntry
		var pattern string
		var tuningJSON []byte
		if err := rows.Scan(&e.ID, &e.WebID, &pattern, &e.Purpose, &tuningJSON, &e.Summary, &e.CreatedAt); err != nil {
			continue
		}
		e.Pattern = core.WebMemoryPatternType(pattern)
		_ = json.Unmarshal(tuningJSON, &e.Tuning)
		if len(e.Tuning) != len(vec) {
			continue
		}
		if vectorops.Cosine(e.Tuning, vec) >= threshold {
			out = append(out, &e)
		}
	}
	return out, nil
}
