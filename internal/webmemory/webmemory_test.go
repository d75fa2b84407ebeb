package webmemory

import (
	"testing"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestMatchWarningsFiltersByThreshold(t *testing.T) {
	entries := []*core.WebMemoryEntry{
		{Summary: "close match", Tuning: []float64{1, 0, 0}},
		{Summary: "orthogonal", Tuning: []float64{0, 1, 0}},
	}
	warnings := MatchWarnings(entries, []float64{1, 0.01, 0})
	assert.Equal(t, []string{"close match"}, warnings)
}

func TestMatchWarningsSkipsDimensionMismatch(t *testing.T) {
	entries := []*core.WebMemoryEntry{
		{Summary: "wrong dim", Tuning: []float64{1, 0}},
	}
	warnings := MatchWarnings(entries, []float64{1, 0, 0})
	assert.Empty(t, warnings)
}

func TestMatchWarningsOrdersByDescendingSimilarity(t *testing.T) {
	entries := []*core.WebMemoryEntry{
		{Summary: "weaker", Tuning: []float64{1, 0.3, 0}},
		{Summary: "stronger", Tuning: []float64{1, 0, 0}},
	}
	warnings := MatchWarnings(entries, []float64{1, 0, 0})
	assert.Equal(t, []string{"stronger", "weaker"}, warnings)
}

func TestMatchWarningsEmptyWhenNoneResemble(t *testing.T) {
	entries := []*core.WebMemoryEntry{
		{Summary: "unrelated", Tuning: []float64{0, 1, 0}},
	}
	warnings := MatchWarnings(entries, []float64{1, 0, 0})
	assert.Empty(t, warnings)
}
