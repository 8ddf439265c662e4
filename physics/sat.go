// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/gazed/rbcore/lin"
)

// sat.go implements the Separating Axis Theorem face and edge queries used
// for hull-vs-hull contact generation (spec §4.2). No file in the example
// pack implements SAT (the teacher's hull-vs-hull path in collision.go
// dispatches straight to a cgo box-box routine, see DESIGN.md's "dropped
// teacher code" entry), so this file is new code: written in dcel.go's own
// plain-function, index-addressed style, against the textbook formulation
// (face normals of A against B's support, then A's edges crossed with B's
// edges) that spec §4.2 names explicitly.

// satAxisKind tags which kind of separating axis a satQuery result names.
type satAxisKind uint8

const (
	satAxisNone satAxisKind = iota
	satAxisFaceA
	satAxisFaceB
	satAxisEdge
)

// satResult is the outcome of a SAT query: the best (least-penetrating, or
// first-found-positive) separating axis, tagged by kind, plus the feature
// indices that produced it.
type satResult struct {
	kind         satAxisKind
	separation   float64
	faceIndex    uint32 // valid for satAxisFaceA/satAxisFaceB
	edgeA, edgeB uint32 // valid for satAxisEdge
	axis         lin.V3 // world-space axis, valid for satAxisEdge
}

// satFaceQuery returns the face of hull hA (posed by tA) whose outward
// normal, tested against hB's (posed by tB) deepest vertex, yields the
// largest (least negative / most positive) separation — the face most
// likely to be a separating axis, or the shallowest-penetration face if
// none separates.
func satFaceQuery(hA *Hull, tA *lin.T, hB *Hull, tB *lin.T) (bestFace uint32, bestSep float64) {
	bestSep = -math.MaxFloat64
	for fi := range hA.faces {
		localN := hA.faceNormal(uint32(fi))
		wx, wy, wz := tA.AppR(localN.X, localN.Y, localN.Z)
		worldN := lin.V3{X: wx, Y: wy, Z: wz}

		e := hA.edges[hA.faces[fi].first]
		planePoint := *tA.App(&hA.vertices[e.origin])

		sep := hB.deepestVertexDistance(tB, worldN, planePoint)
		if sep > bestSep {
			bestSep = sep
			bestFace = uint32(fi)
		}
	}
	return bestFace, bestSep
}

// satEdgeQuery returns the pair of edges (one from hA, one from hB) whose
// cross product, used as a candidate separating axis, yields the largest
// separation, skipping axes that degenerate to (near-)zero length.
func satEdgeQuery(hA *Hull, tA *lin.T, hB *Hull, tB *lin.T) (edgeA, edgeB uint32, axis lin.V3, bestSep float64) {
	bestSep = -math.MaxFloat64
	centerA := *tA.App(&lin.V3{})

	for ea := range hA.edges {
		dA := hA.edgeDirection(uint32(ea))
		wax, way, waz := tA.AppR(dA.X, dA.Y, dA.Z)
		worldDA := lin.V3{X: wax, Y: way, Z: waz}

		for eb := range hB.edges {
			dB := hB.edgeDirection(uint32(eb))
			wbx, wby, wbz := tB.AppR(dB.X, dB.Y, dB.Z)
			worldDB := lin.V3{X: wbx, Y: wby, Z: wbz}

			cross := lin.NewV3().Cross(&worldDA, &worldDB)
			lenSq := cross.Dot(cross)
			if lenSq < 1e-10 {
				continue
			}
			n := cross.Scale(cross, 1.0/math.Sqrt(lenSq))

			pa := *tA.App(&hA.vertices[hA.edges[ea].origin])
			toCenter := lin.NewV3().Sub(&centerA, &pa)
			if n.Dot(toCenter) > 0 {
				n.Neg(n)
			}

			sep := hB.deepestVertexDistance(tB, *n, pa)
			if sep > bestSep {
				bestSep = sep
				edgeA, edgeB = uint32(ea), uint32(eb)
				axis = *n
			}
		}
	}
	return edgeA, edgeB, axis, bestSep
}

// satQuery runs the face queries on both hulls plus the edge query and
// picks the axis of largest separation, biasing towards face axes (a small
// tolerance favors face contacts, which clip into stable manifolds, over
// edge contacts, which only ever produce a single point) as is standard
// practice for SAT-based manifold generation (Dirk Gregorius's GDC talks).
func satQuery(hA *Hull, tA *lin.T, hB *Hull, tB *lin.T) satResult {
	const faceBias = 0.05

	faceA, sepA := satFaceQuery(hA, tA, hB, tB)
	if sepA > 0 {
		return satResult{kind: satAxisFaceA, separation: sepA, faceIndex: faceA}
	}
	faceB, sepB := satFaceQuery(hB, tB, hA, tA)
	if sepB > 0 {
		return satResult{kind: satAxisFaceB, separation: sepB, faceIndex: faceB}
	}
	edgeA, edgeB, axis, sepE := satEdgeQuery(hA, tA, hB, tB)
	if sepE > 0 {
		return satResult{kind: satAxisEdge, separation: sepE, edgeA: edgeA, edgeB: edgeB, axis: axis}
	}

	best := satResult{kind: satAxisFaceA, separation: sepA, faceIndex: faceA}
	if sepB > best.separation+faceBias {
		best = satResult{kind: satAxisFaceB, separation: sepB, faceIndex: faceB}
	}
	if sepE > best.separation+faceBias {
		best = satResult{kind: satAxisEdge, separation: sepE, edgeA: edgeA, edgeB: edgeB, axis: axis}
	}
	return best
}
