// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"log/slog"
	"math"

	"github.com/gazed/rbcore/lin"
)

// dcel.go builds and queries the explicit half-edge representation (DCEL)
// spec §3/§9 asks for: vertices, half-edges with twins, faces addressed by
// a first-edge + count.
//
// Grounded on original_source/include/geometry.h's struct dcel/dcelEdge/
// dcelFace (vertex index + twin + face_ccw per edge, first-edge + count
// per face). The planar-face merge that turns a triangulated input mesh
// into n-gon faces is adapted from gazed-vu/physics/collider.go's
// collect_faces_planar_to / do_triangles_share_same_vertex /
// create_convex_hull_face, generalized to emit explicit twin-linked
// half-edges instead of a vertex/face adjacency-map.

// hullEdge is one half-edge: origin vertex, twin half-edge index, and the
// face to its CCW side. Mirrors original_source's dcelEdge exactly.
type hullEdge struct {
	origin  uint32
	twin    uint32
	faceCCW uint32
}

// hullFace names its boundary loop by a first half-edge and edge count,
// mirroring original_source's dcelFace.
type hullFace struct {
	first uint32
	count uint32
	// normal/plane distance are cached in the shape's local frame; combined
	// with a body transform at query time (sat.go/clipping.go).
	normal lin.V3
}

// Hull is a convex polyhedron represented as a DCEL.
type Hull struct {
	vertices []lin.V3
	edges    []hullEdge
	faces    []hullFace

	localAabb Aabb
}

const hullPlanarTolerance = 1e-5

// hullTri is a triangle of vertex indices used only while building a Hull's
// DCEL from an input triangulated mesh.
type hullTri struct{ a, b, c uint32 }

// buildHull constructs a Hull's DCEL from a triangulated convex mesh.
func buildHull(vertices []lin.V3, indices []uint32) *Hull {
	// Dedupe vertices (teacher: collider_convex_hull_create's vertex_to_idx_map).
	dedupIndex := map[lin.V3]uint32{}
	verts := make([]lin.V3, 0, len(vertices))
	remap := make([]uint32, len(vertices))
	for i, v := range vertices {
		if idx, ok := dedupIndex[v]; ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(verts))
		verts = append(verts, v)
		dedupIndex[v] = idx
		remap[i] = idx
	}

	tris := make([]hullTri, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		tris = append(tris, hullTri{remap[indices[i]], remap[indices[i+1]], remap[indices[i+2]]})
	}

	triShareVertex := func(a, b hullTri) bool {
		as := [3]uint32{a.a, a.b, a.c}
		bs := [3]uint32{b.a, b.b, b.c}
		for _, x := range as {
			for _, y := range bs {
				if x == y {
					return true
				}
			}
		}
		return false
	}
	triNormal := func(t hullTri) lin.V3 {
		v1, v2, v3 := verts[t.a], verts[t.b], verts[t.c]
		e1 := lin.NewV3().Sub(&v2, &v1)
		e2 := lin.NewV3().Sub(&v3, &v1)
		n := lin.NewV3().Cross(e1, e2)
		return *n.Unit()
	}

	// adjacency among triangles sharing a vertex, used to flood-fill
	// coplanar groups (collect_faces_planar_to).
	adj := make([][]int, len(tris))
	for i := range tris {
		for j := range tris {
			if i != j && triShareVertex(tris[i], tris[j]) {
				adj[i] = append(adj[i], j)
			}
		}
	}

	visited := make([]bool, len(tris))
	var faceLoops [][]uint32 // each is an ordered boundary vertex loop.
	var faceNormals []lin.V3

	for i := range tris {
		if visited[i] {
			continue
		}
		n := triNormal(tris[i])
		group := []int{i}
		visited[i] = true
		for k := 0; k < len(group); k++ {
			for _, nb := range adj[group[k]] {
				if visited[nb] {
					continue
				}
				nbN := triNormal(tris[nb])
				if nbN.Dot(&n) > 1.0-hullPlanarTolerance {
					visited[nb] = true
					group = append(group, nb)
				}
			}
		}
		loop := orderedBoundaryLoop(tris, group)
		if len(loop) >= 3 {
			faceLoops = append(faceLoops, loop)
			faceNormals = append(faceNormals, n)
		}
	}

	return assembleDCEL(verts, faceLoops, faceNormals)
}

// orderedBoundaryLoop returns the ordered vertex loop bounding the union of
// the given coplanar triangles: any directed edge appearing exactly once
// across the group (its reverse does not appear) is a boundary edge; these
// are chained head-to-tail into a polygon.
func orderedBoundaryLoop(tris []hullTri, group []int) []uint32 {
	type edge struct{ u, v uint32 }
	count := map[edge]int{}
	for _, gi := range group {
		t := tris[gi]
		es := [3]edge{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}}
		for _, e := range es {
			count[e]++
			count[edge{e.v, e.u}]-- // cancel shared interior edges traversed both ways
		}
	}
	next := map[uint32]uint32{}
	for e, c := range count {
		if c > 0 {
			next[e.u] = e.v
		}
	}
	if len(next) == 0 {
		return nil
	}
	var start uint32
	for k := range next {
		start = k
		break
	}
	loop := []uint32{start}
	cur := next[start]
	for cur != start && len(loop) <= len(next) {
		loop = append(loop, cur)
		nv, ok := next[cur]
		if !ok {
			slog.Warn("dcel: incomplete boundary loop")
			break
		}
		cur = nv
	}
	return loop
}

// assembleDCEL builds the twin-linked half-edge list from ordered face
// loops, per original_source's dcelEdge{origin,twin,face_ccw} layout.
func assembleDCEL(verts []lin.V3, loops [][]uint32, normals []lin.V3) *Hull {
	h := &Hull{vertices: verts}
	type edgeKey struct{ u, v uint32 }
	halfOf := map[edgeKey]uint32{}

	for fi, loop := range loops {
		first := uint32(len(h.edges))
		n := uint32(len(loop))
		for i := uint32(0); i < n; i++ {
			u, v := loop[i], loop[(i+1)%n]
			ei := uint32(len(h.edges))
			h.edges = append(h.edges, hullEdge{origin: u, faceCCW: uint32(fi), twin: invalidEdge})
			halfOf[edgeKey{u, v}] = ei
		}
		h.faces = append(h.faces, hullFace{first: first, count: n, normal: normals[fi]})
	}
	for k, ei := range halfOf {
		if t, ok := halfOf[edgeKey{k.v, k.u}]; ok {
			h.edges[ei].twin = t
		}
	}

	min, max := verts[0], verts[0]
	for _, v := range verts[1:] {
		min = *lin.NewV3().Min(&min, &v)
		max = *lin.NewV3().Max(&max, &v)
	}
	h.localAabb = Aabb{Min: min, Max: max}
	return h
}

const invalidEdge = ^uint32(0)

// support returns the hull vertex farthest along dir (local space).
func (h *Hull) support(dir lin.V3) lin.V3 {
	best := 0
	bestDot := h.vertices[0].Dot(&dir)
	for i := 1; i < len(h.vertices); i++ {
		d := h.vertices[i].Dot(&dir)
		if d > bestDot {
			bestDot = d
			best = i
		}
	}
	return h.vertices[best]
}

// faceNormal returns face fi's outward unit normal, in local space.
func (h *Hull) faceNormal(fi uint32) lin.V3 { return h.faces[fi].normal }

// facePlaneOffset returns n·v for any vertex v on face fi (the plane's
// signed distance term), local space.
func (h *Hull) facePlaneOffset(fi uint32) float64 {
	e := h.edges[h.faces[fi].first]
	v := h.vertices[e.origin]
	n := h.faces[fi].normal
	return n.Dot(&v)
}

// faceVertices returns the ordered vertex loop bounding face fi, local space.
func (h *Hull) faceVertices(fi uint32) []lin.V3 {
	f := h.faces[fi]
	out := make([]lin.V3, 0, f.count)
	ei := f.first
	for i := uint32(0); i < f.count; i++ {
		out = append(out, h.vertices[h.edges[ei].origin])
		ei = h.nextEdge(ei)
	}
	return out
}

// nextEdge returns the next half-edge around ei's face.
func (h *Hull) nextEdge(ei uint32) uint32 {
	f := h.edges[ei].faceCCW
	face := h.faces[f]
	local := ei - face.first
	return face.first + (local+1)%face.count
}

// edgeDirection returns the unit direction of half-edge ei, local space.
func (h *Hull) edgeDirection(ei uint32) lin.V3 {
	a := h.vertices[h.edges[ei].origin]
	b := h.vertices[h.edges[h.nextEdge(ei)].origin]
	d := lin.NewV3().Sub(&b, &a)
	return *d.Unit()
}

// deepestVertexDistance returns the minimum signed distance (along
// worldNormal, from worldPlanePoint) over all of the hull's vertices as
// seen from body transform t — i.e. the depth of the hull's deepest point
// below a given plane, used by sat.go's face-vertex queries.
func (h *Hull) deepestVertexDistance(t *lin.T, worldNormal lin.V3, worldPlanePoint lin.V3) float64 {
	min := math.MaxFloat64
	for _, v := range h.vertices {
		wv := t.App(&v)
		d := lin.NewV3().Sub(wv, &worldPlanePoint).Dot(&worldNormal)
		if d < min {
			min = d
		}
	}
	return min
}
