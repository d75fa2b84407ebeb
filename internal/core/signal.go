package core

import "time"

// SignalDirection determines which lineage edges a signal may traverse.
type SignalDirection string

const (
	Upward   SignalDirection = "Upward"   // toward ancestors of the origin
	Downward SignalDirection = "Downward" // toward descendants of the origin
)

// Signal is a message in flight along strict lineage edges (spec §3, §4.2).
type Signal struct {
	ID        string
	WebID     string
	OriginID  string
	Frequency []float64 // dimension D
	Content   string
	Amplitude float64 // (0,1], strictly decreasing per hop
	Direction SignalDirection
	Hops      int // >=0, strictly increasing per hop

	Payload   interface{}
	Suspect   bool
	Processed bool
	CreatedAt time.Time

	// DeliveredTo records recipients already visited for this signal, so a
	// processed signal is never re-delivered to the same recipient even if
	// multiple propagation paths could reach it (spec §3 invariant).
	DeliveredTo map[string]bool
}

// MarkDelivered records that recipientID has received this signal.
func (s *Signal) MarkDelivered(recipientID string) {
	if s.DeliveredTo == nil {
		s.DeliveredTo = make(map[string]bool)
	}
	s.DeliveredTo[recipientID] = true
}

// AlreadyDelivered reports whether recipientID has already received this
// signal.
func (s *Signal) AlreadyDelivered(recipientID string) bool {
	return s.DeliveredTo != nil && s.DeliveredTo[recipientID]
}

// Attenuated returns a copy of s with amplitude reduced by factor and hop
// count incremented by one — one propagation step (spec §4.2).
func (s *Signal) Attenuated(factor float64) *Signal {
	next := *s
	next.Amplitude = s.Amplitude * factor
	next.Hops = s.Hops + 1
	// DeliveredTo is shared by reference deliberately: every hop of one
	// signal's walk must see the same visited-set so the walk never
	// revisits an agent (spec §3 "processed signal never re-delivered").
	next.DeliveredTo = s.DeliveredTo
	return &next
}
