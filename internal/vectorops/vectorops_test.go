package vectorops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineParallel(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0, 0}, []float64{1, 0, 0}), 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0, 0}, []float64{0, 1, 0}), 1e-9)
}

func TestCosineZeroVectorNoNaN(t *testing.T) {
	sim := Cosine([]float64{0, 0, 0}, []float64{1, 0, 0})
	assert.False(t, math.IsNaN(sim))
	assert.Equal(t, 0.0, sim)
}

func TestCosineNearZeroNoNaN(t *testing.T) {
	sim := Cosine([]float64{1e-12, 0, 0}, []float64{1e-12, 0, 0})
	assert.False(t, math.IsNaN(sim))
	assert.Equal(t, 0.0, sim)
}

func TestCosineDimensionMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		Cosine([]float64{1, 0}, []float64{1, 0, 0})
	})
}

func TestDriftEmptyWindowIsIdentity(t *testing.T) {
	old := []float64{0.6, 0.8, 0}
	got := Drift(old, nil, 0.8)
	require.Len(t, got, 3)
	for i := range old {
		assert.InDelta(t, old[i], got[i], 1e-9)
	}
}

func TestDriftMixesTowardWindowMean(t *testing.T) {
	old := Normalize([]float64{1, 0, 0})
	window := [][]float64{{0, 1, 0}, {0, 1, 0}}
	got := Drift(old, window, 0.8)

	// Result should lean toward old (alpha=0.8 weight) but have moved off
	// the pure x-axis toward y.
	assert.Greater(t, got[0], 0.0)
	assert.Greater(t, got[1], 0.0)
	assert.InDelta(t, 1.0, math.Hypot(got[0], math.Hypot(got[1], got[2])), 1e-9)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	z := []float64{0, 0, 0}
	got := Normalize(z)
	assert.Equal(t, z, got)
}
