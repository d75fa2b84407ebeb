package core

import "time"

// WebMemoryPatternType categorizes a web memory entry.
type WebMemoryPatternType string

// Failure is currently the only pattern type the spec defines (§3), but the
// type is kept open for future pattern kinds (e.g. success heuristics)
// without changing the store schema.
const WebMemoryFailure WebMemoryPatternType = "Failure"

// WebMemoryEntry is a per-web record of a past failure pattern, consulted
// by the spawn protocol to warn similarly-tuned new agents (spec §3, §4.3).
type WebMemoryEntry struct {
	ID        string
	WebID     string
	Pattern   WebMemoryPatternType
	Purpose   string
	Tuning    []float64
	Summary   string
	CreatedAt time.Time
}

// FailureResemblanceThreshold is the cosine-similarity bar a new agent's
// tuning must clear against a stored entry's tuning before that entry's
// summary is copied into the new agent's failure warnings (spec §4.3 step 4).
const FailureResemblanceThreshold = 0.75
