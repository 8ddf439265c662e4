// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/gazed/rbcore/lin"
)

// ShapeType enumerates the collision primitive variants a Shape can hold.
// Mirrors original_source/include/collision.h's enum c_ShapeType.
type ShapeType uint8

const (
	ShapeSphere ShapeType = iota
	ShapeCapsule
	ShapeHull
	ShapeTriMesh
	numShapeTypes
)

// Sphere is a collision primitive defined by a radius about the shape's
// local origin.
type Sphere struct {
	Radius float64
}

// Capsule is a collision primitive: a line segment of the given
// half-height along the local Y axis, swept by Radius.
type Capsule struct {
	HalfHeight float64
	Radius     float64
}

// Shape is an immutable geometric primitive, reference-counted in a
// ShapeDatabase. It precomputes volume, center of mass, and unit-density
// inertia tensor in the shape's local frame, as spec §3 requires.
//
// Grounded on gazed-vu/physics/shape.go's Shape interface (Type/Volume/
// Aabb/Inertia), generalized from an interface with one implementation per
// Go type into a closed tagged union (sphere/capsule/hull/trimesh) per
// original_source's struct c_Shape, since the set of primitives is fixed
// and the narrowphase dispatch table in collide.go switches on it exhaustively.
type Shape struct {
	Type ShapeType

	Sphere  Sphere
	Capsule Capsule
	Hull    *Hull
	TriMesh *TriMesh

	// precomputed, unit-density (density=1) quantities in the shape's
	// local frame. Inertia(density) scales these by density.
	volume     float64
	com        lin.V3
	inertiaRho lin.V3 // diagonal inertia tensor (axis-aligned local frame), density=1.
}

// NewSphereShape returns a sphere shape with precomputed mass properties.
func NewSphereShape(radius float64) *Shape {
	r := math.Abs(radius)
	s := &Shape{Type: ShapeSphere, Sphere: Sphere{Radius: r}}
	s.volume = (4.0 / 3.0) * lin.PI * r * r * r
	i := 0.4 * r * r // unit mass moment, scaled by mass*r^2*0.4 when density applied below.
	s.inertiaRho = lin.V3{X: i * s.volume, Y: i * s.volume, Z: i * s.volume}
	return s
}

// NewCapsuleShape returns a capsule shape (half-height along Y, radius)
// with precomputed mass properties, combining a cylinder and two sphere caps.
func NewCapsuleShape(halfHeight, radius float64) *Shape {
	hh, r := math.Abs(halfHeight), math.Abs(radius)
	s := &Shape{Type: ShapeCapsule, Capsule: Capsule{HalfHeight: hh, Radius: r}}

	cylVol := lin.PI * r * r * (2 * hh)
	capVol := (4.0 / 3.0) * lin.PI * r * r * r // two half-spheres = one sphere.
	s.volume = cylVol + capVol

	// Cylinder inertia about its own center, plus two hemisphere caps
	// offset by parallel-axis theorem. This mirrors how a rigid-body
	// library commonly approximates capsule inertia (closed-form, no
	// integration needed, unlike the hull case).
	mCyl := cylVol
	mCap := capVol
	ixzCyl := mCyl * (3*r*r + 4*hh*hh) / 12.0
	iyCyl := mCyl * r * r * 0.5
	// hemisphere cap inertia about sphere center then shifted to the
	// capsule's flat cap + hh offset (standard capsule approximation).
	iySphere := 0.4 * mCap * r * r
	offset := hh + (3.0/8.0)*r
	ixzCap := mCap*(0.4*r*r) + mCap*offset*offset
	s.inertiaRho = lin.V3{X: ixzCyl + ixzCap, Y: iyCyl + iySphere, Z: ixzCyl + ixzCap}
	return s
}

// NewHullShape builds a convex hull shape (explicit half-edge DCEL, see
// dcel.go) from a triangulated convex mesh (vertices + triangle indices,
// CCW winding, outward-facing normals) and precomputes its mass properties
// by summing signed tetrahedra fanned from the local origin over each face
// (massprops.go); no polygon-projection surface integrals are used.
//
// Taking an already-triangulated convex mesh rather than an arbitrary point
// cloud mirrors gazed-vu/physics/shape.go's NewBox / collider_convex_hull_create:
// bodies are authored as convex meshes (in an editor or as primitives like
// NewBoxHull below), not recovered from unstructured point clouds.
func NewHullShape(vertices []lin.V3, indices []uint32) *Shape {
	h := buildHull(vertices, indices)
	s := &Shape{Type: ShapeHull, Hull: h}
	s.volume, s.com, s.inertiaRho = hullMassProperties(h)
	return s
}

// NewBoxHull returns a box-shaped convex hull of the given half-extents,
// built as a 12-triangle DCEL. Grounded directly on gazed-vu/physics/physics.go's
// NewBox vertex/index layout.
func NewBoxHull(hx, hy, hz float64) *Shape {
	vertices := []lin.V3{
		{X: -hx, Y: +hy, Z: +hz}, // 0
		{X: -hx, Y: -hy, Z: +hz}, // 1
		{X: -hx, Y: +hy, Z: -hz}, // 2
		{X: -hx, Y: -hy, Z: -hz}, // 3
		{X: +hx, Y: +hy, Z: +hz}, // 4
		{X: +hx, Y: -hy, Z: +hz}, // 5
		{X: +hx, Y: +hy, Z: -hz}, // 6
		{X: +hx, Y: -hy, Z: -hz}, // 7
	}
	indices := []uint32{
		4, 2, 0, 4, 6, 2, // top
		2, 7, 3, 2, 6, 7, // back
		6, 5, 7, 6, 4, 5, // right
		1, 7, 5, 1, 3, 7, // bottom
		0, 3, 1, 0, 2, 3, // left
		4, 1, 5, 4, 0, 1, // front
	}
	return NewHullShape(vertices, indices)
}

// NewTriMeshShape builds a static triangle-mesh shape with its own internal
// BVH (shared tree implementation with C3, see bvh.go), per spec §3/§4.1.
// Triangle meshes have no volume or mass: they are intended for static
// (non-dynamic) bodies only, matching spec §4.1's "triangle-mesh variants
// traverse the mesh's internal BVH".
func NewTriMeshShape(vertices []lin.V3, indices []uint32) *Shape {
	return &Shape{Type: ShapeTriMesh, TriMesh: buildTriMesh(vertices, indices)}
}

// Volume returns the shape's precomputed volume (0 for trimesh).
func (s *Shape) Volume() float64 { return s.volume }

// CenterOfMass returns the shape's local-frame center of mass.
func (s *Shape) CenterOfMass() lin.V3 { return s.com }

// Inertia returns the shape's inertia tensor (diagonal, local frame) at
// the given density.
func (s *Shape) Inertia(density float64) lin.V3 {
	return lin.V3{X: s.inertiaRho.X * density, Y: s.inertiaRho.Y * density, Z: s.inertiaRho.Z * density}
}

// LocalAabb returns the shape's local-frame axis-aligned bounding box,
// inflated by margin.
func (s *Shape) LocalAabb(margin float64) Aabb {
	switch s.Type {
	case ShapeSphere:
		r := s.Sphere.Radius + margin
		return Aabb{Min: lin.V3{X: -r, Y: -r, Z: -r}, Max: lin.V3{X: r, Y: r, Z: r}}
	case ShapeCapsule:
		r := s.Capsule.Radius + margin
		hh := s.Capsule.HalfHeight + s.Capsule.Radius
		return Aabb{Min: lin.V3{X: -r, Y: -hh, Z: -r}, Max: lin.V3{X: r, Y: hh, Z: r}}
	case ShapeHull:
		return s.Hull.localAabb.Expand(margin)
	case ShapeTriMesh:
		return s.TriMesh.bounds.Expand(margin)
	}
	return Aabb{}
}

// support returns the farthest point of the shape (in local space) along
// dir, used by gjk.go/epa.go/collide.go for convex-vs-convex queries.
func (s *Shape) support(dir lin.V3) lin.V3 {
	switch s.Type {
	case ShapeSphere:
		dir.Unit()
		return lin.V3{X: dir.X * s.Sphere.Radius, Y: dir.Y * s.Sphere.Radius, Z: dir.Z * s.Sphere.Radius}
	case ShapeCapsule:
		sign := 1.0
		if dir.Y < 0 {
			sign = -1.0
		}
		tip := lin.V3{X: 0, Y: sign * s.Capsule.HalfHeight, Z: 0}
		dir.Unit()
		return lin.V3{X: tip.X + dir.X*s.Capsule.Radius, Y: tip.Y + dir.Y*s.Capsule.Radius, Z: tip.Z + dir.Z*s.Capsule.Radius}
	case ShapeHull:
		return s.Hull.support(dir)
	}
	return lin.V3{}
}
