// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// events.go implements the timestamped lifecycle event stream (spec §4.8):
// body/contact/island lifecycle notifications, pool-allocated per tick and
// drained once by the external host. No teacher file has anything like an
// event stream (gazed-vu/physics just mutates bodies and returns), so this
// is new code; it follows original_source's general "append to a
// pool-backed slice during the tick, let the external caller drain it"
// pattern used throughout original_source/include (contacts, bvh free
// lists) rather than inventing a new idiom for this one subsystem.

// EventKind tags which of the ten lifecycle variants an Event carries.
type EventKind uint8

const (
	EventBodyNew EventKind = iota
	EventBodyRemoved
	EventBodyOrientation
	EventIslandNew
	EventIslandExpanded
	EventIslandRemoved
	EventIslandAwake
	EventIslandAsleep
	EventContactNew
	EventContactRemoved
)

// Event is one timestamped lifecycle notification. Only the fields
// relevant to Kind are populated; the rest are left at their zero value
// (the variant record spec §3 describes, without needing a separate Go
// type per kind).
type Event struct {
	TickNanos int64
	Kind      EventKind

	Body  uint32 // EventBodyNew/Removed/Orientation.
	World lin.T  // EventBodyOrientation.

	Island uint32 // EventIsland*.

	BodyA, BodyB uint32 // EventContactNew/Removed.
}

// EventStream is the pool-allocated (slice, reused across ticks) queue
// every pipeline tick appends to; the host drains it once per tick via
// Drain.
type EventStream struct {
	events []Event
}

// NewEventStream returns an empty event stream.
func NewEventStream() *EventStream { return &EventStream{} }

// Reset clears the stream at the start of a tick, keeping the backing
// array allocated.
func (s *EventStream) Reset() { s.events = s.events[:0] }

func (s *EventStream) emit(tick int64, kind EventKind) *Event {
	s.events = append(s.events, Event{TickNanos: tick, Kind: kind})
	return &s.events[len(s.events)-1]
}

func (s *EventStream) bodyNew(tick int64, body uint32) {
	e := s.emit(tick, EventBodyNew)
	e.Body = body
}

func (s *EventStream) bodyRemoved(tick int64, body uint32) {
	e := s.emit(tick, EventBodyRemoved)
	e.Body = body
}

func (s *EventStream) bodyOrientation(tick int64, body uint32, world lin.T) {
	e := s.emit(tick, EventBodyOrientation)
	e.Body = body
	e.World = world
}

func (s *EventStream) islandLifecycle(tick int64, kind EventKind, islandHandle uint32) {
	e := s.emit(tick, kind)
	e.Island = islandHandle
}

func (s *EventStream) contactLifecycle(tick int64, kind EventKind, bodyA, bodyB uint32) {
	e := s.emit(tick, kind)
	e.BodyA, e.BodyB = bodyA, bodyB
}

// Drain returns every event recorded since the last Reset. The returned
// slice aliases the stream's backing array and is only valid until the
// next Reset.
func (s *EventStream) Drain() []Event { return s.events }
