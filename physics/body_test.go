// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"
	"testing"

	"github.com/gazed/rbcore/lin"
)

func TestBodySetDynamicComputesMassAndInertia(t *testing.T) {
	shapes := NewShapeDatabase()
	sphere := shapes.Register("ball", NewSphereShape(1))

	b := NewBody()
	b.AddShapeInstance(sphere, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(true, 1.0, shapes)

	want := 1.0 / (NewSphereShape(1).Volume() * 1.0)
	if !lin.Aeq(b.imass, want) {
		t.Errorf("expected inverse mass %f, got %f", want, b.imass)
	}
	if b.invInertia.X != b.invInertia.Y || b.invInertia.Y != b.invInertia.Z {
		t.Errorf("expected a centered sphere's inverse inertia to be isotropic, got %s", dumpV3(b.invInertia))
	}
}

func TestBodySetDynamicFalseZeroesMass(t *testing.T) {
	shapes := NewShapeDatabase()
	box := shapes.Register("slab", NewBoxHull(50, 1, 50))

	b := NewBody()
	b.AddShapeInstance(box, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(false, 1.0, shapes)

	if b.imass != 0 || !b.invInertia.AeqZ() {
		t.Errorf("expected a static body to have zero inverse mass and inertia, got imass=%f invInertia=%s", b.imass, dumpV3(b.invInertia))
	}
}

// TestBodyRecomputeMassOffsetShape checks that a shape offset from the
// body's origin has its inertia shifted by the parallel-axis theorem rather
// than just summed as if it sat at the origin.
func TestBodyRecomputeMassOffsetShape(t *testing.T) {
	shapes := NewShapeDatabase()
	sphere := shapes.Register("ball", NewSphereShape(0.1))

	centered := NewBody()
	centered.AddShapeInstance(sphere, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	centered.SetDynamic(true, 1.0, shapes)

	offset := NewBody()
	offset.AddShapeInstance(sphere, lin.T{Loc: lin.NewV3S(5, 0, 0), Rot: lin.NewQI()})
	offset.SetDynamic(true, 1.0, shapes)

	if offset.invInertia.Y >= centered.invInertia.Y {
		t.Error("expected the offset shape's inverse inertia about Y to shrink once its mass is moved away from the axis")
	}
}

// TestBodyUpdateInvInertiaWorldIdentity checks that the world-space inverse
// inertia tensor matches the body-local one when the body's orientation is
// the identity, regression coverage for M3.Conjugate's wiring into
// updateInvInertiaWorld.
func TestBodyUpdateInvInertiaWorldIdentity(t *testing.T) {
	shapes := NewShapeDatabase()
	sphere := shapes.Register("ball", NewSphereShape(1))

	b := NewBody()
	b.AddShapeInstance(sphere, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(true, 1.0, shapes)
	b.updateInvInertiaWorld()

	want := lin.M3{Xx: b.invInertia.X, Yy: b.invInertia.Y, Zz: b.invInertia.Z}
	if !b.invInertiaWorld.Aeq(&want) {
		t.Errorf("expected identity orientation to leave the inertia tensor diagonal, got %+v", b.invInertiaWorld)
	}
}

func TestBodyAngularVelocityClampedByPipeline(t *testing.T) {
	shapes := NewShapeDatabase()
	sphere := shapes.Register("ball", NewSphereShape(1))
	p := NewPipeline(DefaultConfig(), shapes)
	p.SetScheduler(SerialScheduler{})

	b := NewBody()
	b.AddShapeInstance(sphere, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(true, 1.0, shapes)
	h := p.AddBody(b)

	dt := 1.0 / 60.0
	p.bodies[h].avel = lin.V3{X: 0, Y: 1000, Z: 0} // absurdly fast spin.
	p.integrateForces(dt)

	got := p.bodies[h].avel
	maxLen := lin.HalfPi / dt
	if got.Len() > maxLen+1e-9 {
		t.Errorf("expected angular velocity capped at %f rad/s, got %f", maxLen, got.Len())
	}
	if math.Abs(got.Y) < 1e-9 {
		t.Error("expected the clamp to preserve direction, not zero the velocity")
	}
}
