package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pharbi/arachnid/internal/core"
)

// newTestRedisStore wires a RedisStore against an in-process miniredis
// instance, the same fake-server approach this codebase's redis_test_helper.go
// uses for unit tests that would otherwise require a live Redis.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())
	return &RedisStore{client: client}
}

func TestRedisStoreWebRoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	w := &core.Web{ID: "w1", RootAgentID: "root", Task: "do thing", State: core.WebRunning, CreatedAt: time.Now()}
	require.NoError(t, s.CreateWeb(context.Background(), w))

	got, err := s.GetWeb(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "do thing", got.Task)

	running, err := s.ListRunningWebs(context.Background())
	require.NoError(t, err)
	require.Len(t, running, 1)

	got.State = core.WebFailed
	require.NoError(t, s.UpdateWeb(context.Background(), got))
	running, err = s.ListRunningWebs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestRedisStoreAgentLineage(t *testing.T) {
	s := newTestRedisStore(t)
	root := &core.Agent{ID: "root", WebID: "w1", Tuning: []float64{1, 0, 0}, CreatedAt: time.Now()}
	child := &core.Agent{ID: "child", ParentID: "root", WebID: "w1", Tuning: []float64{0, 1, 0}, CreatedAt: time.Now().Add(time.Second)}
	require.NoError(t, s.CreateAgent(context.Background(), root))
	require.NoError(t, s.CreateAgent(context.Background(), child))

	children, err := s.Children(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "child", children[0].ID)
}

func TestRedisStoreGetAgentNotFound(t *testing.T) {
	s := newTestRedisStore(t)
	_, err := s.GetAgent(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestRedisStoreValidationHistory(t *testing.T) {
	s := newTestRedisStore(t)
	v := &core.ValidationRecord{ID: "v1", TargetID: "a1", WebID: "w1", Judgment: core.JudgmentConfirm, Confidence: 0.9, CreatedAt: time.Now()}
	require.NoError(t, s.CreateValidation(context.Background(), v))

	history, err := s.ValidationsForAgent(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.JudgmentConfirm, history[0].Judgment)
}
