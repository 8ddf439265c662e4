// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// collide.go is the narrowphase dispatch table named in spec §4.2: a
// Test/ContactManifold pair of entry points that route every (ShapeType,ShapeType)
// combination to the right algorithm — GJK/EPA for all convex pairs, with
// SAT + Sutherland-Hodgman clipping layered on top for hull-vs-hull to get
// a full multi-point manifold instead of EPA's single witness point.
// Grounded on gazed-vu/physics/collision.go's per-pair dispatch switch,
// generalized from the teacher's two-shape-type (sphere/hull) switch to
// this module's four shape types, and on collision.go's narrow_phase entry
// point for the overall Test/ContactManifold split.

// ContactPoint is one point of a narrowphase manifold, in world space.
type ContactPoint struct {
	PositionOnA lin.V3
	PositionOnB lin.V3
	Normal      lin.V3 // points from A to B.
	Penetration float64
}

// Manifold is the (possibly empty) result of a narrowphase query between
// two posed shapes.
type Manifold struct {
	Points []ContactPoint
}

// Test reports whether shape a (at ta) and shape b (at tb) overlap, without
// computing a manifold — a cheaper check than ContactManifold (spec
// §4.1/§4.2's Test-then-Contact split). The pipeline itself does not call it.
func Test(a *Shape, ta *lin.T, b *Shape, tb *lin.T) bool {
	if a.Type == ShapeSphere && b.Type == ShapeSphere {
		d := lin.NewV3().Sub(ta.Loc, tb.Loc)
		r := a.Sphere.Radius + b.Sphere.Radius
		return d.Dot(d) <= r*r
	}
	return gjkIntersect(a, ta, b, tb, nil)
}

// ContactManifold computes the full contact manifold between shape a (at ta) and
// shape b (at tb), given the configured contact margin used to keep
// slightly-separated shapes (within margin) generating contacts for warm
// starting (spec §4.2/§4.4).
func ContactManifold(a *Shape, ta *lin.T, b *Shape, tb *lin.T, margin float64) Manifold {
	switch {
	case a.Type == ShapeTriMesh:
		return contactAgainstTriMesh(b, tb, a, ta, margin, true)
	case b.Type == ShapeTriMesh:
		return contactAgainstTriMesh(a, ta, b, tb, margin, false)
	case a.Type == ShapeHull && b.Type == ShapeHull:
		return contactHullHull(a, ta, b, tb, margin)
	default:
		return contactGeneric(a, ta, b, tb, margin)
	}
}

// contactGeneric handles sphere/capsule/hull combinations that are not
// hull-hull, via GJK+EPA: a single contact point along the penetration
// normal at the midpoint of the two shapes' supports in that direction.
func contactGeneric(a *Shape, ta *lin.T, b *Shape, tb *lin.T, margin float64) Manifold {
	var simplex gjkSimplex
	if !gjkIntersect(a, ta, b, tb, &simplex) {
		return separatedContact(a, ta, b, tb, margin)
	}
	normal, penetration, ok := epa(a, ta, b, tb, &simplex)
	if !ok {
		return Manifold{}
	}
	neg := lin.V3{X: -normal.X, Y: -normal.Y, Z: -normal.Z}
	pa := worldSupport(a, ta, normal)
	pb := worldSupport(b, tb, neg)
	return Manifold{Points: []ContactPoint{{PositionOnA: pa, PositionOnB: pb, Normal: normal, Penetration: penetration}}}
}

// separatedContact handles the margin-speculative case: shapes that do not
// overlap but whose closest points are within margin still produce a
// (negative-penetration) contact so the solver can prevent inter-tick
// tunneling and so warm-starting has a contact to persist across the gap
// (spec §4.4's persistent contact/SAT-cache design).
func separatedContact(a *Shape, ta *lin.T, b *Shape, tb *lin.T, margin float64) Manifold {
	d := lin.NewV3().Sub(ta.Loc, tb.Loc)
	if d.Dot(d) < 1e-12 {
		return Manifold{}
	}
	dirAtoB := d.Unit()
	dirAtoB.Neg(dirAtoB)
	pa := worldSupport(a, ta, *dirAtoB)
	neg := lin.V3{X: -dirAtoB.X, Y: -dirAtoB.Y, Z: -dirAtoB.Z}
	pb := worldSupport(b, tb, neg)
	sep := lin.NewV3().Sub(&pb, &pa)
	dist := sep.Len()
	if dist > margin {
		return Manifold{}
	}
	n := *sep.Unit()
	return Manifold{Points: []ContactPoint{{PositionOnA: pa, PositionOnB: pb, Normal: n, Penetration: -dist}}}
}

// contactHullHull runs SAT to pick the separating/least-penetrating axis,
// then reference/incident face clipping (clipping.go) for face axes or a
// single closest-point pair for an edge axis.
func contactHullHull(a *Shape, ta *lin.T, b *Shape, tb *lin.T, margin float64) Manifold {
	res := satQuery(a.Hull, ta, b.Hull, tb)
	if res.separation > margin {
		return Manifold{}
	}

	switch res.kind {
	case satAxisFaceA:
		incFace := bestIncidentFace(a.Hull, ta, res.faceIndex, b.Hull, tb)
		points := clipFaceFaceManifold(a.Hull, ta, res.faceIndex, b.Hull, tb, incFace)
		return manifoldFromClip(points, a.Hull.faceNormal(res.faceIndex), ta, false)
	case satAxisFaceB:
		incFace := bestIncidentFace(b.Hull, tb, res.faceIndex, a.Hull, ta)
		points := clipFaceFaceManifold(b.Hull, tb, res.faceIndex, a.Hull, ta, incFace)
		return manifoldFromClip(points, b.Hull.faceNormal(res.faceIndex), tb, true)
	case satAxisEdge:
		pa := worldSupport(a, ta, res.axis)
		neg := lin.V3{X: -res.axis.X, Y: -res.axis.Y, Z: -res.axis.Z}
		pb := worldSupport(b, tb, neg)
		return Manifold{Points: []ContactPoint{{PositionOnA: pa, PositionOnB: pb, Normal: res.axis, Penetration: -res.separation}}}
	}
	return Manifold{}
}

// bestIncidentFace returns hInc's face whose normal is most anti-parallel
// to refFace's world-space normal — the face most likely to be the one
// penetrating refFace.
func bestIncidentFace(hRef *Hull, tRef *lin.T, refFace uint32, hInc *Hull, tInc *lin.T) uint32 {
	ln := hRef.faceNormal(refFace)
	rx, ry, rz := tRef.AppR(ln.X, ln.Y, ln.Z)
	refN := lin.V3{X: rx, Y: ry, Z: rz}

	best := uint32(0)
	bestDot := 2.0
	for fi := range hInc.faces {
		fn := hInc.faceNormal(uint32(fi))
		wx, wy, wz := tInc.AppR(fn.X, fn.Y, fn.Z)
		worldN := lin.V3{X: wx, Y: wy, Z: wz}
		d := worldN.Dot(&refN)
		if d < bestDot {
			bestDot = d
			best = uint32(fi)
		}
	}
	return best
}

func manifoldFromClip(points []manifoldPoint, refNormalLocal lin.V3, tRef *lin.T, flip bool) Manifold {
	reduced := reduceManifold(points)
	n := refNormalLocal
	wx, wy, wz := tRef.AppR(n.X, n.Y, n.Z)
	worldN := lin.V3{X: wx, Y: wy, Z: wz}
	if flip {
		worldN = lin.V3{X: -worldN.X, Y: -worldN.Y, Z: -worldN.Z}
	}

	out := make([]ContactPoint, len(reduced))
	for i, p := range reduced {
		witnessOffset := lin.NewV3().Scale(&worldN, p.penetration)
		onOther := lin.NewV3().Sub(&p.position, witnessOffset)
		if flip {
			out[i] = ContactPoint{PositionOnA: *onOther, PositionOnB: p.position, Normal: worldN, Penetration: p.penetration}
		} else {
			out[i] = ContactPoint{PositionOnA: p.position, PositionOnB: *onOther, Normal: worldN, Penetration: p.penetration}
		}
	}
	return Manifold{Points: out}
}

// contactAgainstTriMesh queries meshShape's internal BVH for triangles
// overlapping other's world AABB, builds an ephemeral single-triangle hull
// for each candidate, and folds in its manifold. meshIsA records which
// operand the mesh was, so generated contact points/normals come back in
// (other,mesh) == (A,B) order regardless of call order.
func contactAgainstTriMesh(other *Shape, otherT *lin.T, meshShape *Shape, meshT *lin.T, margin float64, meshIsA bool) Manifold {
	otherWorldAabb := other.LocalAabb(margin).Transform(otherT)
	meshInv := inverseTransform(meshT)
	localAabb := transformAabbInto(otherWorldAabb, meshInv)

	var candidates []uint32
	candidates = meshShape.TriMesh.QueryOverlapping(localAabb, candidates)

	var all Manifold
	for _, tri := range candidates {
		a, b, c := meshShape.TriMesh.Triangle(tri)
		triShape := &Shape{Type: ShapeHull, Hull: buildHull([]lin.V3{a, b, c, a, b, c}, []uint32{0, 1, 2, 2, 1, 0})}

		var m Manifold
		if meshIsA {
			m = ContactManifold(triShape, meshT, other, otherT, margin)
		} else {
			m = ContactManifold(other, otherT, triShape, meshT, margin)
		}
		all.Points = append(all.Points, m.Points...)
	}
	return all
}

func inverseTransform(t *lin.T) *lin.T {
	inv := lin.NewT()
	inv.Rot.Inv(t.Rot)
	negLoc := lin.NewV3().Neg(t.Loc)
	rx, ry, rz := lin.MultSQ(negLoc.X, negLoc.Y, negLoc.Z, inv.Rot)
	inv.Loc.X, inv.Loc.Y, inv.Loc.Z = rx, ry, rz
	return inv
}

func transformAabbInto(box Aabb, into *lin.T) Aabb {
	return box.Transform(into)
}
