// Package vectorops implements the pure numeric primitives the coordination
// engine builds resonance and tuning drift on top of: cosine similarity and
// drift mixing. Everything here is side-effect free and safe for concurrent
// use from multiple goroutines without synchronization, since it only reads
// its inputs and allocates its output.
package vectorops

import (
	"gonum.org/v1/gonum/floats"
)

// ZeroNormEpsilon is the L2-norm floor below which a vector is treated as
// "zero-ish" for cosine similarity purposes (spec §4.1).
const ZeroNormEpsilon = 1e-9

// Cosine returns the cosine similarity between a and b. Vectors whose L2
// norm falls below ZeroNormEpsilon are treated as zero vectors and yield a
// similarity of 0 rather than NaN. Panics if len(a) != len(b); callers in
// this codebase only ever compare same-dimension vectors (tuning/frequency
// share the fixed dimension D), so a dimension mismatch is a programming
// error, not a runtime condition to recover from.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("vectorops: Cosine called with mismatched vector dimensions")
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na < ZeroNormEpsilon || nb < ZeroNormEpsilon {
		return 0
	}
	dot := floats.Dot(a, b)
	sim := dot / (na * nb)
	// Guard against float drift pushing a near-parallel pair marginally
	// outside [-1, 1], which would otherwise propagate into downstream
	// threshold comparisons as a surprising value.
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// IsZeroish reports whether v's L2 norm falls below ZeroNormEpsilon.
func IsZeroish(v []float64) bool {
	return floats.Norm(v, 2) < ZeroNormEpsilon
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero-ish vector
// (norm < ZeroNormEpsilon) is returned unchanged, since there is no
// direction to normalize toward.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	n := floats.Norm(out, 2)
	if n < ZeroNormEpsilon {
		return out
	}
	floats.Scale(1/n, out)
	return out
}

// Mean returns the element-wise mean of a non-empty slice of equal-length
// vectors.
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		floats.Add(sum, v)
	}
	floats.Scale(1/float64(len(vectors)), sum)
	return sum
}

// Drift computes the exponential-inertia tuning update from spec §4.5:
//
//	new = α·old + (1-α)·mean(window)
//
// renormalized to unit length. An empty window is the identity: Drift
// returns a copy of old unchanged (spec §8 "Drift with an empty window is
// the identity").
func Drift(old []float64, window [][]float64, alpha float64) []float64 {
	if len(window) == 0 {
		out := make([]float64, len(old))
		copy(out, old)
		return out
	}
	m := Mean(window)
	mixed := make([]float64, len(old))
	for i := range mixed {
		mixed[i] = alpha*old[i] + (1-alpha)*m[i]
	}
	return Normalize(mixed)
}
