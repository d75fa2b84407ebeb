package core

import "time"

// EventType enumerates the observable events the core emits at tick
// boundaries for UI/API collaborators (spec §6.6).
type EventType string

const (
	EventWebCreated        EventType = "WebCreated"
	EventAgentSpawned       EventType = "AgentSpawned"
	EventSignalEmitted      EventType = "SignalEmitted"
	EventSignalDelivered    EventType = "SignalDelivered"
	EventAgentStateChanged  EventType = "AgentStateChanged"
	EventValidationCompleted EventType = "ValidationCompleted"
	EventWebConverged       EventType = "WebConverged"
	EventWebFailed          EventType = "WebFailed"
)

// Event is one observable occurrence, ordering-matched to the mutation that
// produced it (spec §6.6). Data carries event-specific fields; keeping it a
// loosely-typed map avoids a combinatorial explosion of event structs for
// what is, to every consumer outside the core, a log line.
type Event struct {
	Type      EventType
	WebID     string
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventSink receives events as they are produced. The coordination loop is
// the only producer; everything else (HTTP/CLI adapters, tests) is a
// consumer.
type EventSink interface {
	Emit(e Event)
}

// EventFunc adapts a plain function to EventSink.
type EventFunc func(Event)

func (f EventFunc) Emit(e Event) { f(e) }

// DiscardEvents is an EventSink that does nothing, used as a safe zero value.
var DiscardEvents EventSink = EventFunc(func(Event) {})
