// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// trimesh.go implements the static triangle-mesh shape variant named in
// spec §3/§4.1: an immutable vertex/index buffer with its own internal BVH
// (the same dynamic-tree type bvh.go implements for the broadphase),
// queried instead of iterated linearly per spec §4.1's "triangle-mesh
// variants traverse the mesh's internal BVH". Grounded on
// original_source/include/collision.h's c_TriMesh, which likewise pairs a
// flat vertex/index buffer with a bvh built once at load time.

// TriMesh is an immutable static collision mesh.
type TriMesh struct {
	vertices []lin.V3
	indices  []uint32
	bounds   Aabb
	tree     *Bvh // leaf payload is the triangle's first-index/3.
}

// buildTriMesh constructs a TriMesh and its internal BVH over per-triangle
// tight bounding boxes (margin 0: static meshes never move, so there is
// nothing for a fattening margin to absorb).
func buildTriMesh(vertices []lin.V3, indices []uint32) *TriMesh {
	m := &TriMesh{vertices: vertices, indices: indices, tree: NewBvh(0)}
	if len(vertices) == 0 {
		return m
	}
	m.bounds = Aabb{Min: vertices[0], Max: vertices[0]}
	for _, v := range vertices[1:] {
		m.bounds = m.bounds.Union(Aabb{Min: v, Max: v})
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]
		box := triAabb(a, b, c)
		m.tree.Insert(box, uint32(i/3))
	}
	return m
}

func triAabb(a, b, c lin.V3) Aabb {
	box := Aabb{Min: a, Max: a}
	box = box.Union(Aabb{Min: b, Max: b})
	box = box.Union(Aabb{Min: c, Max: c})
	return box
}

// Triangle returns triangle i's three vertices, local space.
func (m *TriMesh) Triangle(i uint32) (a, b, c lin.V3) {
	base := i * 3
	return m.vertices[m.indices[base]], m.vertices[m.indices[base+1]], m.vertices[m.indices[base+2]]
}

// TriangleCount returns the number of triangles in the mesh.
func (m *TriMesh) TriangleCount() int { return len(m.indices) / 3 }

// QueryOverlapping appends the index (Triangle(i)) of every triangle whose
// box overlaps box to out.
func (m *TriMesh) QueryOverlapping(box Aabb, out []uint32) []uint32 {
	return m.tree.Query(box, out)
}
