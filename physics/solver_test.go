// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/gazed/rbcore/lin"
)

func newDynamicBody(shapeDB *ShapeDatabase, shapeHandle uint32) *Body {
	b := NewBody()
	b.AddShapeInstance(shapeHandle, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(true, 1.0, shapeDB)
	return b
}

// TestSolverProducesCompressiveImpulse checks that a closing (penetrating)
// contact ends the solve with a non-negative persisted normal impulse, the
// invariant every normal row's lowerLimit=0 clamp is meant to guarantee
// regardless of which body the impulse pushes which direction.
func TestSolverProducesCompressiveImpulse(t *testing.T) {
	shapeDB := NewShapeDatabase()
	sphere := shapeDB.Register("sphere", NewSphereShape(1))

	a := newDynamicBody(shapeDB, sphere)
	b := newDynamicBody(shapeDB, sphere)
	a.SetWorld(lin.T{Loc: lin.NewV3S(0, 0, 0), Rot: lin.NewQI()})
	b.SetWorld(lin.T{Loc: lin.NewV3S(0, 1.9, 0), Rot: lin.NewQI()})
	a.SetVelocity(lin.V3{X: 0, Y: 1, Z: 0}, lin.V3{})
	b.SetVelocity(lin.V3{X: 0, Y: -1, Z: 0}, lin.V3{})

	contacts := NewContactDatabase()
	ta, tb := a.World(), b.World()
	m := Manifold{Points: []ContactPoint{
		{PositionOnA: lin.V3{X: 0, Y: 1, Z: 0}, PositionOnB: lin.V3{X: 0, Y: 0.9, Z: 0}, Normal: lin.V3{X: 0, Y: 1, Z: 0}, Penetration: -0.1},
	}}
	contacts.BeginTick()
	contacts.Upsert(1, 2, &ta, &tb, m)

	cfg := DefaultConfig()
	bodyOf := map[uint32]*Body{1: a, 2: b}
	s := NewSolver()
	s.Solve([]uint32{1, 2}, bodyOf, contacts.All(), &cfg, 1.0/60.0)

	c := contacts.Get(1, 2)
	if c.Points[0].normalImpulse < 0 {
		t.Errorf("expected a non-negative persisted normal impulse, got %f", c.Points[0].normalImpulse)
	}

	lvA, _ := a.Velocity()
	lvB, _ := b.Velocity()
	if lvA == (lin.V3{}) && lvB == (lin.V3{}) {
		t.Error("expected the solve to change at least one body's velocity")
	}
}

// TestSolverWarmStartAppliesPersistedImpulse checks that a contact carrying
// a nonzero persisted normalImpulse into the solve perturbs both bodies'
// velocities immediately (convertContact applies it before any iteration
// runs), rather than asserting a specific sign/direction.
func TestSolverWarmStartAppliesPersistedImpulse(t *testing.T) {
	shapeDB := NewShapeDatabase()
	sphere := shapeDB.Register("sphere", NewSphereShape(1))
	a := newDynamicBody(shapeDB, sphere)
	b := newDynamicBody(shapeDB, sphere)
	b.SetWorld(lin.T{Loc: lin.NewV3S(0, 1.9, 0), Rot: lin.NewQI()})

	contacts := NewContactDatabase()
	ta, tb := a.World(), b.World()
	m := Manifold{Points: []ContactPoint{
		{PositionOnA: lin.V3{X: 0, Y: 1, Z: 0}, PositionOnB: lin.V3{X: 0, Y: 0.9, Z: 0}, Normal: lin.V3{X: 0, Y: 1, Z: 0}, Penetration: -0.01},
	}}
	contacts.BeginTick()
	contacts.Upsert(1, 2, &ta, &tb, m)
	contacts.Get(1, 2).Points[0].normalImpulse = 3.0

	cfg := DefaultConfig()
	cfg.IterationCount = 0
	bodyOf := map[uint32]*Body{1: a, 2: b}
	s := NewSolver()
	s.Solve([]uint32{1, 2}, bodyOf, contacts.All(), &cfg, 1.0/60.0)

	lvA, _ := a.Velocity()
	lvB, _ := b.Velocity()
	if lvA.Y == 0 && lvB.Y == 0 {
		t.Error("expected the warm-started impulse to move at least one body along the contact normal")
	}
}
