package coordination

import "github.com/Pharbi/arachnid/internal/core"

// CapabilityRegistry is the dispatch table of spec §9: capabilities are
// plain functions keyed by tag, not a type hierarchy. Looking up an unknown
// tag is a CapabilityFailure at execution time, not a construction-time error.
type CapabilityRegistry struct {
	capabilities map[string]core.Capability
	impact       map[string]float64
}

// NewCapabilityRegistry returns an empty registry.
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{
		capabilities: make(map[string]core.Capability),
		impact:       make(map[string]float64),
	}
}

// Register binds tag to fn, with a declared impact constant in [0,1] used
// by the validation scheduler's priority formula (spec §4.6) when a result
// doesn't declare its own impact.
func (r *CapabilityRegistry) Register(tag string, impact float64, fn core.Capability) {
	r.capabilities[tag] = fn
	r.impact[tag] = impact
}

// Lookup returns the capability bound to tag, if any.
func (r *CapabilityRegistry) Lookup(tag string) (core.Capability, bool) {
	fn, ok := r.capabilities[tag]
	return fn, ok
}

// Impact returns the declared impact constant for tag, defaulting to 0.5
// (spec §4.6 "uncertainty ... defaulting to 0.5" — the same default applies
// to impact when a capability tag is unregistered at scheduling time).
func (r *CapabilityRegistry) Impact(tag string) float64 {
	if v, ok := r.impact[tag]; ok {
		return v
	}
	return 0.5
}
