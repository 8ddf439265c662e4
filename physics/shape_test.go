// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"
	"testing"

	"github.com/gazed/rbcore/lin"
)

func TestSphereVolume(t *testing.T) {
	s := NewSphereShape(1)
	want := (4.0 / 3.0) * math.Pi
	if math.Abs(s.Volume()-want) > 1e-9 {
		t.Errorf("expected sphere volume %f, got %f", want, s.Volume())
	}
}

func TestSphereInertia(t *testing.T) {
	s := NewSphereShape(1)
	in := s.Inertia(1)
	if in.X != in.Y || in.Y != in.Z {
		t.Errorf("expected a sphere's inertia tensor to be isotropic, got %s", dumpV3(in))
	}
}

func TestSphereLocalAabb(t *testing.T) {
	s := NewSphereShape(2)
	ab := s.LocalAabb(0.1)
	want := 2.1
	if ab.Min.X != -want || ab.Max.X != want || ab.Min.Y != -want || ab.Max.Y != want {
		t.Errorf("expected a %2.1f half-extent box, got %s / %s", want, dumpV3(ab.Min), dumpV3(ab.Max))
	}
}

// TestSphereSupport is a regression test for a prior bug where support()
// returned an aliased/mistyped value instead of a unit-direction scaled
// point on the sphere's surface.
func TestSphereSupport(t *testing.T) {
	s := NewSphereShape(3)
	p := s.support(lin.V3{X: 0, Y: 5, Z: 0})
	if p.X != 0 || p.Z != 0 || math.Abs(p.Y-3) > 1e-9 {
		t.Errorf("expected support along +Y to land at (0,3,0), got %s", dumpV3(p))
	}
	p = s.support(lin.V3{X: 1, Y: 0, Z: 0})
	if math.Abs(p.X-3) > 1e-9 || p.Y != 0 || p.Z != 0 {
		t.Errorf("expected support along +X to land at (3,0,0), got %s", dumpV3(p))
	}
}

func TestCapsuleVolumeMatchesCylinderPlusSphere(t *testing.T) {
	s := NewCapsuleShape(2, 1)
	cyl := math.Pi * 1 * 1 * (2 * 2)
	sph := (4.0 / 3.0) * math.Pi
	want := cyl + sph
	if math.Abs(s.Volume()-want) > 1e-9 {
		t.Errorf("expected capsule volume %f, got %f", want, s.Volume())
	}
}

func TestCapsuleSupportPicksNearestCap(t *testing.T) {
	s := NewCapsuleShape(2, 1)
	up := s.support(lin.V3{X: 0, Y: 1, Z: 0})
	if up.Y <= 2 {
		t.Errorf("expected +Y support beyond the capsule's half-height cap, got %s", dumpV3(up))
	}
	down := s.support(lin.V3{X: 0, Y: -1, Z: 0})
	if down.Y >= -2 {
		t.Errorf("expected -Y support beyond the capsule's half-height cap, got %s", dumpV3(down))
	}
}

func TestBoxHullVolume(t *testing.T) {
	s := NewBoxHull(1, 1, 1)
	want := 8.0
	if math.Abs(s.Volume()-want) > 1e-6 {
		t.Errorf("expected a 1-half-extent box's volume to be %f, got %f", want, s.Volume())
	}
}

func TestBoxHullSupportFindsCorner(t *testing.T) {
	s := NewBoxHull(1, 2, 3)
	p := s.support(lin.V3{X: 1, Y: 1, Z: 1})
	if p.X != 1 || p.Y != 2 || p.Z != 3 {
		t.Errorf("expected the (+,+,+) support to land on the (1,2,3) corner, got %s", dumpV3(p))
	}
}

func TestBoxHullLocalAabb(t *testing.T) {
	s := NewBoxHull(1, 2, 3)
	ab := s.LocalAabb(0)
	if ab.Min.X != -1 || ab.Max.X != 1 || ab.Min.Y != -2 || ab.Max.Y != 2 || ab.Min.Z != -3 || ab.Max.Z != 3 {
		t.Errorf("expected a tight (1,2,3) half-extent box, got %s / %s", dumpV3(ab.Min), dumpV3(ab.Max))
	}
}
