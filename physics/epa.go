// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/gazed/rbcore/lin"
)

// epa.go implements the Expanding Polytope Algorithm that turns a GJK hit
// (an overlapping tetrahedron) into a penetration normal and depth (spec
// §4.2's "GJK/EPA for distance and penetration queries"). Grounded directly
// on gazed-vu/physics/epa.go; ported to operate on Shape/lin.T pairs and
// renamed to the module's camelCase convention instead of the teacher's
// C-derived snake_case (the teacher itself mixes both conventions across
// gjk.go/epa.go since these two files were ported straight from the
// original engine's C; this module keeps the algorithm but normalizes the
// naming it introduces).

type epaFace struct{ a, b, c uint32 }
type epaEdge struct{ a, b uint32 }

func epaPolytopeFromSimplex(s *gjkSimplex) ([]lin.V3, []epaFace) {
	polytope := []lin.V3{s.a, s.b, s.c, s.d}
	faces := []epaFace{
		{0, 1, 2},
		{0, 2, 3},
		{0, 3, 1},
		{1, 2, 3},
	}
	return polytope, faces
}

func epaFaceNormalAndDistance(face epaFace, polytope []lin.V3) (normal lin.V3, distance float64) {
	a, b, c := polytope[face.a], polytope[face.b], polytope[face.c]
	ab := lin.NewV3().Sub(&b, &a)
	ac := lin.NewV3().Sub(&c, &a)
	n := lin.NewV3().Cross(ab, ac).Unit()

	d := n.Dot(&a)
	if d < 0 {
		n.Neg(n)
		d = -d
	}
	return *n, d
}

func epaAddEdge(edges []epaEdge, e epaEdge) []epaEdge {
	for i, cur := range edges {
		if (cur.a == e.a && cur.b == e.b) || (cur.a == e.b && cur.b == e.a) {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return append(edges, e)
}

// epa expands the GJK terminating simplex into the Minkowski difference's
// boundary polytope until the closest face to the origin is also the
// farthest the Minkowski support function can reach in that direction,
// which is then the contact normal and penetration depth.
func epa(s1 *Shape, t1 *lin.T, s2 *Shape, t2 *lin.T, simplex *gjkSimplex) (normal lin.V3, penetration float64, ok bool) {
	const epsilon = 1e-4
	polytope, faces := epaPolytopeFromSimplex(simplex)

	normals := make([]lin.V3, len(faces))
	dists := make([]float64, len(faces))
	minIdx := 0
	minDist := math.MaxFloat64
	for i, f := range faces {
		normals[i], dists[i] = epaFaceNormalAndDistance(f, polytope)
		if dists[i] < minDist {
			minDist = dists[i]
			minIdx = i
		}
	}

	for iter := 0; iter < 64; iter++ {
		minNormal := normals[minIdx]
		support := supportOfMinkowskiDifference(s1, t1, s2, t2, minNormal)
		d := minNormal.Dot(&support)

		if math.Abs(d-minDist) < epsilon {
			return minNormal, minDist, true
		}

		newIdx := uint32(len(polytope))
		polytope = append(polytope, support)

		var edges []epaEdge
		keptFaces := faces[:0]
		keptNormals := normals[:0]
		keptDists := dists[:0]
		for i, f := range faces {
			if normals[i].Dot(&support) > dists[i] {
				edges = epaAddEdge(edges, epaEdge{f.a, f.b})
				edges = epaAddEdge(edges, epaEdge{f.b, f.c})
				edges = epaAddEdge(edges, epaEdge{f.c, f.a})
				continue
			}
			keptFaces = append(keptFaces, f)
			keptNormals = append(keptNormals, normals[i])
			keptDists = append(keptDists, dists[i])
		}
		faces, normals, dists = keptFaces, keptNormals, keptDists

		for _, e := range edges {
			f := epaFace{e.a, e.b, newIdx}
			n, d := epaFaceNormalAndDistance(f, polytope)
			faces = append(faces, f)
			normals = append(normals, n)
			dists = append(dists, d)
		}

		if len(faces) == 0 {
			return lin.V3{}, 0, false
		}
		minIdx = 0
		minDist = math.MaxFloat64
		for i := range faces {
			if dists[i] < minDist {
				minDist = dists[i]
				minIdx = i
			}
		}
	}
	return normals[minIdx], dists[minIdx], true
}
