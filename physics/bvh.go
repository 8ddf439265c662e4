// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// bvh.go implements the dynamic AABB tree used both as the broadphase (C3)
// over body shape-instances and as a static triangle-mesh's internal tree
// (spec §4.1/§4.3). Grounded on original_source/include/collision.h's
// bvh/DbvhInsert/DbvhRemove/DbvhPushOverlapPairs/BvhRaycastInit: a binary
// tree of fattened AABBs, leaves carry an opaque payload handle, internal
// nodes carry only the union box of their two children.

const bvhNullNode = ^uint32(0)

// bvhNode is one tree node: leaves have child0==child1==bvhNullNode and a
// valid payload; internal nodes have both children set and payload unused.
type bvhNode struct {
	box      Aabb
	parent   uint32
	child0   uint32
	child1   uint32
	height   int32 // leaf height is 0; bvhNullNode-height sentinel is -1 for free nodes.
	payload  uint32
	isLeaf   bool
}

// Bvh is a dynamic, incrementally-balanced AABB tree. Fattened leaf boxes
// (by margin) absorb small motion without a reinsert, matching spec §4.1's
// "margin-inflated refit, reinsert only on margin violation".
type Bvh struct {
	nodes  []bvhNode
	freeTop uint32
	root   uint32
	margin float64
}

// NewBvh returns an empty dynamic tree that fattens leaf boxes by margin.
func NewBvh(margin float64) *Bvh {
	return &Bvh{root: bvhNullNode, freeTop: bvhNullNode, margin: margin}
}

func (t *Bvh) allocNode() uint32 {
	if t.freeTop != bvhNullNode {
		i := t.freeTop
		t.freeTop = t.nodes[i].child0
		t.nodes[i] = bvhNode{child0: bvhNullNode, child1: bvhNullNode, parent: bvhNullNode}
		return i
	}
	t.nodes = append(t.nodes, bvhNode{child0: bvhNullNode, child1: bvhNullNode, parent: bvhNullNode})
	return uint32(len(t.nodes) - 1)
}

func (t *Bvh) freeNode(i uint32) {
	t.nodes[i].child0 = t.freeTop
	t.nodes[i].height = -1
	t.freeTop = i
}

// Insert adds a leaf with the given tight (unfattened) box and payload,
// returning the tree node index that addresses it (stable until Remove).
func (t *Bvh) Insert(box Aabb, payload uint32) uint32 {
	leaf := t.allocNode()
	t.nodes[leaf] = bvhNode{
		box:     box.Expand(t.margin),
		child0:  bvhNullNode,
		child1:  bvhNullNode,
		parent:  bvhNullNode,
		height:  0,
		payload: payload,
		isLeaf:  true,
	}
	t.insertLeaf(leaf)
	return leaf
}

// insertLeaf walks from the root choosing, at each internal node, the child
// whose union-box surface-area increase from absorbing the leaf is
// smallest (branch-and-bound cost heuristic), then splits that child into a
// new internal node paired with the leaf, and refits ancestor boxes/heights
// up to the root.
func (t *Bvh) insertLeaf(leaf uint32) {
	if t.root == bvhNullNode {
		t.root = leaf
		t.nodes[leaf].parent = bvhNullNode
		return
	}
	leafBox := t.nodes[leaf].box
	cur := t.root
	for !t.nodes[cur].isLeaf {
		c0, c1 := t.nodes[cur].child0, t.nodes[cur].child1
		area := t.nodes[cur].box.SurfaceArea()
		combined := t.nodes[cur].box.Union(leafBox)
		combinedArea := combined.SurfaceArea()

		cost := 2 * combinedArea
		inheritCost := 2 * (combinedArea - area)

		cost0 := t.childDescendCost(c0, leafBox, inheritCost)
		cost1 := t.childDescendCost(c1, leafBox, inheritCost)

		if cost < cost0 && cost < cost1 {
			break
		}
		if cost0 < cost1 {
			cur = c0
		} else {
			cur = c1
		}
	}

	sibling := cur
	oldParent := t.nodes[sibling].parent
	newParent := t.allocNode()
	t.nodes[newParent] = bvhNode{
		parent: oldParent,
		box:    t.nodes[sibling].box.Union(leafBox),
		height: t.nodes[sibling].height + 1,
	}
	if oldParent != bvhNullNode {
		if t.nodes[oldParent].child0 == sibling {
			t.nodes[oldParent].child0 = newParent
		} else {
			t.nodes[oldParent].child1 = newParent
		}
		t.nodes[newParent].child0 = sibling
		t.nodes[newParent].child1 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
	} else {
		t.nodes[newParent].child0 = sibling
		t.nodes[newParent].child1 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
		t.root = newParent
	}

	t.refitAncestors(t.nodes[leaf].parent)
}

func (t *Bvh) childDescendCost(child uint32, leafBox Aabb, inheritCost float64) float64 {
	if t.nodes[child].isLeaf {
		return t.nodes[child].box.Union(leafBox).SurfaceArea() + inheritCost
	}
	oldArea := t.nodes[child].box.SurfaceArea()
	newArea := t.nodes[child].box.Union(leafBox).SurfaceArea()
	return (newArea - oldArea) + inheritCost
}

func (t *Bvh) refitAncestors(i uint32) {
	for i != bvhNullNode {
		i = t.balance(i)
		c0, c1 := t.nodes[i].child0, t.nodes[i].child1
		t.nodes[i].height = 1 + maxI32(t.nodes[c0].height, t.nodes[c1].height)
		t.nodes[i].box = t.nodes[c0].box.Union(t.nodes[c1].box)
		i = t.nodes[i].parent
	}
}

// balance performs a single AVL-style rotation at node i if its children's
// heights differ by more than one, returning the node that now occupies i's
// former position (the new subtree root).
func (t *Bvh) balance(i uint32) uint32 {
	if t.nodes[i].isLeaf || t.nodes[i].height < 2 {
		return i
	}
	c0, c1 := t.nodes[i].child0, t.nodes[i].child1
	balanceFactor := t.nodes[c1].height - t.nodes[c0].height

	if balanceFactor > 1 {
		return t.rotate(i, c1, c0)
	}
	if balanceFactor < -1 {
		return t.rotate(i, c0, c1)
	}
	return i
}

// rotate promotes heavy (the taller child of i) to i's position, demoting i
// to become heavy's child, matching the standard AVL double-rotation used
// by dynamic-tree broadphases (Box2D's b2DynamicTree.Balance).
func (t *Bvh) rotate(i, heavy, light uint32) uint32 {
	hc0, hc1 := t.nodes[heavy].child0, t.nodes[heavy].child1
	var heavyInner, heavyOuter uint32
	if t.nodes[hc0].height > t.nodes[hc1].height {
		heavyInner, heavyOuter = hc1, hc0
	} else {
		heavyInner, heavyOuter = hc0, hc1
	}

	parent := t.nodes[i].parent
	t.nodes[heavy].parent = parent
	if parent != bvhNullNode {
		if t.nodes[parent].child0 == i {
			t.nodes[parent].child0 = heavy
		} else {
			t.nodes[parent].child1 = heavy
		}
	} else {
		t.root = heavy
	}

	if t.nodes[heavy].child0 == heavyOuter {
		t.nodes[heavy].child1 = i
	} else {
		t.nodes[heavy].child0 = i
	}
	t.nodes[i].parent = heavy
	if t.nodes[i].child0 == light {
		t.nodes[i].child1 = heavyInner
	} else {
		t.nodes[i].child0 = heavyInner
	}
	t.nodes[heavyInner].parent = i

	t.nodes[i].box = t.nodes[light].box.Union(t.nodes[heavyInner].box)
	t.nodes[i].height = 1 + maxI32(t.nodes[light].height, t.nodes[heavyInner].height)
	t.nodes[heavy].box = t.nodes[i].box.Union(t.nodes[heavyOuter].box)
	t.nodes[heavy].height = 1 + maxI32(t.nodes[i].height, t.nodes[heavyOuter].height)
	return heavy
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Remove detaches the leaf at node i, collapsing its former sibling into
// its parent's slot and refitting ancestors.
func (t *Bvh) Remove(i uint32) {
	if i == t.root {
		t.root = bvhNullNode
		t.freeNode(i)
		return
	}
	parent := t.nodes[i].parent
	grandparent := t.nodes[parent].parent
	var sibling uint32
	if t.nodes[parent].child0 == i {
		sibling = t.nodes[parent].child1
	} else {
		sibling = t.nodes[parent].child0
	}

	if grandparent != bvhNullNode {
		if t.nodes[grandparent].child0 == parent {
			t.nodes[grandparent].child0 = sibling
		} else {
			t.nodes[grandparent].child1 = sibling
		}
		t.nodes[sibling].parent = grandparent
		t.freeNode(parent)
		t.refitAncestors(grandparent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = bvhNullNode
		t.freeNode(parent)
	}
	t.freeNode(i)
}

// Refit updates leaf i's fattened box if the tight box no longer fits
// within it, reinserting the leaf; it reports whether a reinsert happened
// (spec §4.1: refit on motion, reinsert only on margin violation).
func (t *Bvh) Refit(i uint32, tight Aabb, displacement lin.V3) bool {
	if t.nodes[i].box.Contains(tight) {
		return false
	}
	payload := t.nodes[i].payload
	t.Remove(i)
	// Remove always ends by freeing i itself (freeTop now == i, with
	// nodes[i].child0 pointing at the rest of the free chain); since we
	// reuse index i directly below instead of going through allocNode,
	// pop it back off the free list first or the next allocNode call
	// would hand out this same, still-live slot a second time.
	t.freeTop = t.nodes[i].child0

	fat := tight.Expand(t.margin)
	// predictive fattening along the displacement, matching Box2D's
	// b2DynamicTree::MoveProxy velocity-prediction AABB.
	const predictiveFactor = 4.0
	if displacement.X > 0 {
		fat.Max.X += predictiveFactor * displacement.X
	} else {
		fat.Min.X += predictiveFactor * displacement.X
	}
	if displacement.Y > 0 {
		fat.Max.Y += predictiveFactor * displacement.Y
	} else {
		fat.Min.Y += predictiveFactor * displacement.Y
	}
	if displacement.Z > 0 {
		fat.Max.Z += predictiveFactor * displacement.Z
	} else {
		fat.Min.Z += predictiveFactor * displacement.Z
	}

	t.nodes[i] = bvhNode{box: fat, child0: bvhNullNode, child1: bvhNullNode, parent: bvhNullNode, isLeaf: true, payload: payload}
	t.insertLeaf(i)
	return true
}

// Box returns the fattened box currently stored at leaf i.
func (t *Bvh) Box(i uint32) Aabb { return t.nodes[i].box }

// Payload returns the opaque payload stored at leaf i.
func (t *Bvh) Payload(i uint32) uint32 { return t.nodes[i].payload }

// Query appends the payload of every leaf whose fattened box overlaps box
// to out, returning the extended slice (spec §4.1's overlap-pair query).
func (t *Bvh) Query(box Aabb, out []uint32) []uint32 {
	if t.root == bvhNullNode {
		return out
	}
	stack := []uint32{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !t.nodes[n].box.Overlaps(box) {
			continue
		}
		if t.nodes[n].isLeaf {
			out = append(out, t.nodes[n].payload)
			continue
		}
		stack = append(stack, t.nodes[n].child0, t.nodes[n].child1)
	}
	return out
}

// Pairs appends every overlapping leaf-pair (as payload, payload) to out.
// Grounded on original_source's DbvhPushOverlapPairs: walk the tree once,
// and for each leaf query the tree for overlaps, only emitting pairs once
// by requiring the found leaf's node index exceed the query leaf's.
func (t *Bvh) Pairs(out [][2]uint32) [][2]uint32 {
	if t.root == bvhNullNode {
		return out
	}
	var walk func(n uint32)
	walk = func(n uint32) {
		if t.nodes[n].isLeaf {
			var found []uint32
			found = t.queryAbove(t.nodes[n].box, n, found)
			for _, p := range found {
				out = append(out, [2]uint32{t.nodes[n].payload, p})
			}
			return
		}
		walk(t.nodes[n].child0)
		walk(t.nodes[n].child1)
	}
	walk(t.root)
	return out
}

func (t *Bvh) queryAbove(box Aabb, selfIdx uint32, out []uint32) []uint32 {
	stack := []uint32{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !t.nodes[n].box.Overlaps(box) {
			continue
		}
		if t.nodes[n].isLeaf {
			if n > selfIdx {
				out = append(out, t.nodes[n].payload)
			}
			continue
		}
		stack = append(stack, t.nodes[n].child0, t.nodes[n].child1)
	}
	return out
}

// rayStackEntry is one frame of the priority-ordered raycast descent.
type rayStackEntry struct {
	node uint32
	t    float64
}

// Raycast walks the tree in nearest-first order (original_source's
// BvhRaycastInit/BvhRaycastNext priority traversal), invoking visit for
// every leaf whose box the segment origin+dir*[0,maxT] intersects; visit
// returns an updated maxT to shrink the search once a hit is found.
func (t *Bvh) Raycast(origin, dir lin.V3, maxT float64, visit func(payload uint32, tEnter float64) float64) {
	if t.root == bvhNullNode {
		return
	}
	invDir := lin.V3{X: safeInv(dir.X), Y: safeInv(dir.Y), Z: safeInv(dir.Z)}
	stack := make([]rayStackEntry, 0, 64)
	if tEnter, ok := rayAabb(t.nodes[t.root].box, origin, invDir, maxT); ok {
		stack = append(stack, rayStackEntry{t.root, tEnter})
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.t > maxT {
			continue
		}
		n := t.nodes[e.node]
		if n.isLeaf {
			maxT = visit(n.payload, e.t)
			continue
		}
		for _, c := range [2]uint32{n.child0, n.child1} {
			if tEnter, ok := rayAabb(t.nodes[c].box, origin, invDir, maxT); ok {
				stack = append(stack, rayStackEntry{c, tEnter})
			}
		}
	}
}

func safeInv(x float64) float64 {
	if lin.AeqZ(x) {
		if x < 0 {
			return -1e30
		}
		return 1e30
	}
	return 1.0 / x
}

func rayAabb(b Aabb, origin, invDir lin.V3, maxT float64) (float64, bool) {
	tmin, tmax := 0.0, maxT
	axes := [3]struct{ o, invd, lo, hi float64 }{
		{origin.X, invDir.X, b.Min.X, b.Max.X},
		{origin.Y, invDir.Y, b.Min.Y, b.Max.Y},
		{origin.Z, invDir.Z, b.Min.Z, b.Max.Z},
	}
	for _, a := range axes {
		t0 := (a.lo - a.o) * a.invd
		t1 := (a.hi - a.o) * a.invd
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
