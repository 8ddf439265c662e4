// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"sync/atomic"
	"testing"
)

func TestWorkerPoolVisitsEveryIndex(t *testing.T) {
	const n = 257
	var seen [n]int32
	p := NewWorkerPool(8)
	p.ParallelFor(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, v := range seen {
		if v != 1 {
			t.Fatalf("index %d visited %d times, want exactly 1", i, v)
		}
	}
}

func TestWorkerPoolClampsWorkers(t *testing.T) {
	p := NewWorkerPool(0)
	if p.workers != 1 {
		t.Errorf("expected workers clamped to 1, got %d", p.workers)
	}
}

func TestSerialSchedulerRunsInOrder(t *testing.T) {
	var order []int
	SerialScheduler{}.ParallelFor(5, func(i int) { order = append(order, i) })
	want := []int{0, 1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected serial in-order visitation, got %v", order)
			break
		}
	}
}

func TestWorkerPoolHandlesZeroUnits(t *testing.T) {
	calls := 0
	NewWorkerPool(4).ParallelFor(0, func(i int) { calls++ })
	if calls != 0 {
		t.Errorf("expected no invocations for n=0, got %d", calls)
	}
}
