package store

import (
	"context"
	"testing"
	"time"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreWebRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	w := &core.Web{ID: "w1", RootAgentID: "root", Task: "do thing", State: core.WebRunning, CreatedAt: time.Now()}
	require.NoError(t, s.CreateWeb(context.Background(), w))

	got, err := s.GetWeb(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "do thing", got.Task)

	got.State = core.WebConverged
	require.NoError(t, s.UpdateWeb(context.Background(), got))

	running, err := s.ListRunningWebs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestMemoryStoreGetWebNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetWeb(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrWebNotFound)
}

func TestMemoryStoreAgentMutationIsolation(t *testing.T) {
	s := NewMemoryStore()
	a := &core.Agent{ID: "a1", WebID: "w1", Tuning: []float64{1, 0, 0}}
	require.NoError(t, s.CreateAgent(context.Background(), a))

	got, err := s.GetAgent(context.Background(), "a1")
	require.NoError(t, err)
	got.Tuning[0] = 99

	again, err := s.GetAgent(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Tuning[0])
}

func TestMemoryStoreLineageQueries(t *testing.T) {
	s := NewMemoryStore()
	root := &core.Agent{ID: "root", WebID: "w1", Tuning: []float64{1, 0, 0}, CreatedAt: time.Now()}
	child := &core.Agent{ID: "child", ParentID: "root", WebID: "w1", Tuning: []float64{0, 1, 0}, CreatedAt: time.Now().Add(time.Second)}
	require.NoError(t, s.CreateAgent(context.Background(), root))
	require.NoError(t, s.CreateAgent(context.Background(), child))

	children, err := s.Children(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "child", children[0].ID)

	ancestors, err := s.Ancestors(context.Background(), "child")
	require.NoError(t, err)
	require.Len(t, ancestors, 1)
	assert.Equal(t, "root", ancestors[0].ID)
}

func TestMemoryStoreNearestByTuning(t *testing.T) {
	s := NewMemoryStore()
	a := &core.Agent{ID: "a", WebID: "w1", Tuning: []float64{1, 0, 0}}
	b := &core.Agent{ID: "b", WebID: "w1", Tuning: []float64{0, 1, 0}}
	require.NoError(t, s.CreateAgent(context.Background(), a))
	require.NoError(t, s.CreateAgent(context.Background(), b))

	nearest, err := s.NearestByTuning(context.Background(), "w1", []float64{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, nearest, 1)
	assert.Equal(t, "a", nearest[0].ID)
}

func TestMemoryStoreSimilarWebMemoryEntries(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateWebMemoryEntry(context.Background(), &core.WebMemoryEntry{
		ID: "m1", WebID: "w1", Tuning: []float64{1, 0, 0}, Summary: "failed before",
	}))

	similar, err := s.SimilarWebMemoryEntries(context.Background(), "w1", []float64{0.95, 0.1, 0}, 0.9)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "failed before", similar[0].Summary)

	dissimilar, err := s.SimilarWebMemoryEntries(context.Background(), "w1", []float64{0, 1, 0}, 0.9)
	require.NoError(t, err)
	assert.Empty(t, dissimilar)
}
