package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/Pharbi/arachnid/internal/vectorops"
)

// HashEmbedding is a deterministic, dependency-free EmbeddingProvider: text
// hashes to a fixed-dimension unit vector. It exists for tests, local
// development, and as a fallback when no external embedding service is
// configured — the resonance engine only needs tuning vectors that are
// stable for the same input and roughly separated for different inputs,
// not semantic fidelity.
type HashEmbedding struct {
	Dimension int
}

// NewHashEmbedding returns a HashEmbedding producing vectors of dimension d.
func NewHashEmbedding(dimension int) *HashEmbedding {
	return &HashEmbedding{Dimension: dimension}
}

// Embed hashes text with SHA-256, expanding the digest across Dimension
// float64 components via repeated re-hashing, then L2-normalizes the
// result (spec §3: tuning vectors must be non-zero; a normalized hash is
// zero only in the astronomically unlikely case of a digest of all-zero
// blocks, which Normalize leaves as-is rather than masking).
func (h *HashEmbedding) Embed(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.Dimension)
	block := sha256.Sum256([]byte(text))
	for i := 0; i < h.Dimension; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		offset := i % (len(block) - 8)
		bits := binary.BigEndian.Uint64(block[offset : offset+8])
		// Map to [-1, 1] via a 64-bit hash chunk taken modulo 2000001.
		vec[i] = (float64(bits%2000001) - 1000000) / 1000000
	}
	return vectorops.Normalize(vec), nil
}
