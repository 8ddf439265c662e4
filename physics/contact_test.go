// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"fmt"
	"testing"

	"github.com/gazed/rbcore/lin"
)

func dumpV3(v lin.V3) string { return fmt.Sprintf("%2.2f", v) }

func identityT() *lin.T { return lin.NewT().SetI() }

func TestPairKeyOrderIndependent(t *testing.T) {
	if pairKey(1, 2) != pairKey(2, 1) {
		t.Error("pairKey should not depend on argument order")
	}
	if pairKey(1, 2) == pairKey(1, 3) {
		t.Error("distinct pairs should not collide")
	}
}

func TestBitVectorSetClearGet(t *testing.T) {
	var bv bitVector
	bv.set(3)
	bv.set(130)
	if !bv.get(3) || !bv.get(130) {
		t.Error("expected bits 3 and 130 set")
	}
	if bv.get(4) || bv.get(131) {
		t.Error("unset bits should read false")
	}
	bv.clear(3)
	if bv.get(3) {
		t.Error("cleared bit should read false")
	}
	bv.clearAll()
	if bv.get(130) {
		t.Error("clearAll should drop every bit")
	}
}

func TestContactUpsertWarmStarts(t *testing.T) {
	db := NewContactDatabase()
	ta, tb := identityT(), identityT()
	m := Manifold{Points: []ContactPoint{
		{PositionOnA: lin.V3{X: 0, Y: 0, Z: 0}, PositionOnB: lin.V3{X: 0, Y: 1, Z: 0}, Normal: lin.V3{X: 0, Y: 1, Z: 0}, Penetration: -0.1},
	}}

	db.BeginTick()
	db.Upsert(1, 2, ta, tb, m)
	c := db.Get(1, 2)
	if c == nil || len(c.Points) != 1 {
		t.Fatalf("expected one persisted contact point")
	}
	c.Points[0].normalImpulse = 4.2
	c.Points[0].tangentImpulse[0] = 1.5

	db.BeginTick()
	db.Upsert(1, 2, ta, tb, m)
	c = db.Get(1, 2)
	if c.Points[0].normalImpulse != 4.2 {
		t.Errorf("expected warm-started normal impulse 4.2, got %f", c.Points[0].normalImpulse)
	}
	if c.Points[0].tangentImpulse[0] != 1.5 {
		t.Errorf("expected warm-started tangent impulse 1.5, got %f", c.Points[0].tangentImpulse[0])
	}
}

func TestContactEndTickBreaksUntouchedPairs(t *testing.T) {
	db := NewContactDatabase()
	ta, tb := identityT(), identityT()
	m := Manifold{Points: []ContactPoint{
		{PositionOnA: lin.V3{}, PositionOnB: lin.V3{X: 0, Y: 1, Z: 0}, Normal: lin.V3{X: 0, Y: 1, Z: 0}, Penetration: -0.05},
	}}

	db.BeginTick()
	db.Upsert(5, 6, ta, tb, m)
	db.EndTick() // nothing broken yet: just touched.

	db.BeginTick() // pair 5,6 not re-upserted this tick.
	broken := db.EndTick()
	if len(broken) != 1 {
		t.Fatalf("expected exactly one broken pair, got %d", len(broken))
	}
	if broken[0][0] != 5 || broken[0][1] != 6 {
		t.Errorf("expected broken pair (5,6), got %v", broken[0])
	}
	if db.Get(5, 6) != nil {
		t.Error("broken contact should be evicted")
	}
}

func TestContactAllReflectsLiveSet(t *testing.T) {
	db := NewContactDatabase()
	ta, tb := identityT(), identityT()
	m := Manifold{Points: []ContactPoint{{Normal: lin.V3{X: 0, Y: 1, Z: 0}, Penetration: -0.01}}}
	db.BeginTick()
	db.Upsert(1, 2, ta, tb, m)
	db.Upsert(3, 4, ta, tb, m)
	if len(db.All()) != 2 {
		t.Errorf("expected 2 live contacts, got %d", len(db.All()))
	}
}

func TestTangentBasisOrthogonal(t *testing.T) {
	n := lin.V3{X: 0, Y: 1, Z: 0}
	t1, t2 := tangentBasis(n)
	if d := n.Dot(&t1); d > 1e-9 || d < -1e-9 {
		t.Errorf("tangent1 should be perpendicular to normal, dot=%f", d)
	}
	if d := n.Dot(&t2); d > 1e-9 || d < -1e-9 {
		t.Errorf("tangent2 should be perpendicular to normal, dot=%f", d)
	}
	if d := t1.Dot(&t2); d > 1e-9 || d < -1e-9 {
		t.Errorf("tangent1 and tangent2 should be perpendicular to each other, dot=%f", d)
	}
}
