// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "testing"

func TestEventStreamResetClearsEvents(t *testing.T) {
	s := NewEventStream()
	s.bodyNew(100, 1)
	s.bodyRemoved(200, 2)
	if len(s.Drain()) != 2 {
		t.Fatalf("expected 2 events before reset, got %d", len(s.Drain()))
	}
	s.Reset()
	if len(s.Drain()) != 0 {
		t.Errorf("expected 0 events after reset, got %d", len(s.Drain()))
	}
}

func TestEventStreamKindsAndPayloads(t *testing.T) {
	s := NewEventStream()
	s.islandLifecycle(1, EventIslandAwake, 7)
	s.contactLifecycle(2, EventContactNew, 3, 4)

	events := s.Drain()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventIslandAwake || events[0].Island != 7 {
		t.Errorf("unexpected island event: %+v", events[0])
	}
	if events[1].Kind != EventContactNew || events[1].BodyA != 3 || events[1].BodyB != 4 {
		t.Errorf("unexpected contact event: %+v", events[1])
	}
}
