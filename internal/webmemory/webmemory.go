// Package webmemory implements the per-web failure-pattern ledger of spec
// §3/§4.3/§4.4: wind-down cascades append Failure entries, and the spawn
// protocol consults them to warn newly created agents whose tuning
// resembles a past failure.
package webmemory

import (
	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/vectorops"
)

// MatchWarnings returns the summaries of entries whose tuning is within
// core.FailureResemblanceThreshold cosine similarity of vec, ordered by
// descending similarity (spec §4.3 step 4: "inherit failure warnings from
// web memory"). entries is expected to already be scoped to one web, as
// Store.SimilarWebMemoryEntries does; this function re-checks the
// threshold itself so it is also usable against an unfiltered list.
func MatchWarnings(entries []*core.WebMemoryEntry, vec []float64) []string {
	type scored struct {
		summary string
		sim     float64
	}
	var matches []scored
	for _, e := range entries {
		if len(e.Tuning) != len(vec) {
			continue
		}
		sim := vectorops.Cosine(e.Tuning, vec)
		if sim >= core.FailureResemblanceThreshold {
			matches = append(matches, scored{summary: e.Summary, sim: sim})
		}
	}

	for i := 1; i < len(matches); i++ {
		j := i
		for j > 0 && matches[j-1].sim < matches[j].sim {
			matches[j-1], matches[j] = matches[j], matches[j-1]
			j--
		}
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.summary
	}
	return out
}
