// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/gazed/rbcore/lin"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float64) Aabb {
	return Aabb{Min: lin.V3{X: minX, Y: minY, Z: minZ}, Max: lin.V3{X: maxX, Y: maxY, Z: maxZ}}
}

func TestBvhInsertAndQuery(t *testing.T) {
	tree := NewBvh(0)
	a := tree.Insert(box(0, 0, 0, 1, 1, 1), 100)
	tree.Insert(box(10, 10, 10, 11, 11, 11), 200)

	found := tree.Query(box(-1, -1, -1, 0.5, 0.5, 0.5), nil)
	if len(found) != 1 || found[0] != 100 {
		t.Fatalf("expected to find only payload 100, got %v", found)
	}
	if tree.Payload(a) != 100 {
		t.Errorf("expected leaf %d's payload to be 100, got %d", a, tree.Payload(a))
	}
}

func TestBvhPairsFindsOverlappingLeaves(t *testing.T) {
	tree := NewBvh(0)
	tree.Insert(box(0, 0, 0, 2, 2, 2), 1)
	tree.Insert(box(1, 1, 1, 3, 3, 3), 2)
	tree.Insert(box(100, 100, 100, 101, 101, 101), 3)

	pairs := tree.Pairs(nil)
	if len(pairs) != 1 {
		t.Fatalf("expected exactly one overlapping pair, got %v", pairs)
	}
	p := pairs[0]
	if !((p[0] == 1 && p[1] == 2) || (p[0] == 2 && p[1] == 1)) {
		t.Errorf("expected the pair to name payloads 1 and 2, got %v", p)
	}
}

func TestBvhRemoveDropsLeaf(t *testing.T) {
	tree := NewBvh(0)
	a := tree.Insert(box(0, 0, 0, 1, 1, 1), 1)
	tree.Insert(box(5, 5, 5, 6, 6, 6), 2)
	tree.Remove(a)

	found := tree.Query(box(0, 0, 0, 1, 1, 1), nil)
	if len(found) != 0 {
		t.Errorf("expected no leaves left after removing the only overlapping one, got %v", found)
	}
}

// TestBvhRefitReusesLeafIndexSafely is a regression test for a bug where
// Refit's direct reuse of a leaf's node index (bypassing allocNode) left
// that index on the free list, so the next unrelated Insert would hand out
// the same, still-live slot a second time and corrupt both bodies' leaves.
func TestBvhRefitReusesLeafIndexSafely(t *testing.T) {
	tree := NewBvh(0)
	a := tree.Insert(box(0, 0, 0, 1, 1, 1), 11)

	moved := box(50, 50, 50, 51, 51, 51)
	if !tree.Refit(a, moved, lin.V3{}) {
		t.Fatal("expected a refit past the leaf's existing box to report a reinsert")
	}

	b := tree.Insert(box(0, 0, 0, 1, 1, 1), 22)
	if a == b {
		t.Fatalf("expected the refit leaf and a fresh insert to land on distinct node indices, both got %d", a)
	}
	if tree.Payload(a) != 11 || tree.Payload(b) != 22 {
		t.Errorf("expected payloads to stay distinct after refit, got leaf %d=%d leaf %d=%d",
			a, tree.Payload(a), b, tree.Payload(b))
	}
	if !tree.Box(a).Overlaps(moved) {
		t.Errorf("expected leaf %d's box to reflect the refit move, got %+v", a, tree.Box(a))
	}
}

func TestBvhRaycastHitsNearestLeaf(t *testing.T) {
	tree := NewBvh(0)
	tree.Insert(box(-1, -1, 4, 1, 1, 6), 1)
	tree.Insert(box(-1, -1, 9, 1, 1, 11), 2)

	var hit uint32 = NoHit
	bestT := 1e9
	tree.Raycast(lin.V3{X: 0, Y: 0, Z: 0}, lin.V3{X: 0, Y: 0, Z: 1}, 100, func(payload uint32, tEnter float64) float64 {
		if tEnter < bestT {
			bestT = tEnter
			hit = payload
		}
		return bestT
	})
	if hit != 1 {
		t.Errorf("expected the ray to hit the nearer leaf (payload 1), got %d", hit)
	}
}

func TestBvhRaycastMissesWhenNothingIntersects(t *testing.T) {
	tree := NewBvh(0)
	tree.Insert(box(10, 10, 10, 11, 11, 11), 1)

	visited := false
	tree.Raycast(lin.V3{X: 0, Y: 0, Z: 0}, lin.V3{X: 1, Y: 0, Z: 0}, 5, func(payload uint32, tEnter float64) float64 {
		visited = true
		return tEnter
	})
	if visited {
		t.Error("expected a ray aimed away from the only leaf to visit nothing")
	}
}
