// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/gazed/rbcore/lin"
)

// Aabb is an axis-aligned bounding box. The core treats AABB, ray, plane,
// segment, capsule/sphere/hull/triangle-mesh-BVH geometry as interfaces
// consumed from outside per spec §1 — this minimal Aabb is the one piece
// kept in-package because bvh.go, shape.go and contact.go all need it at
// the hot path and no external geometry package is part of this retrieval.
type Aabb struct {
	Min, Max lin.V3
}

// Expand returns the box grown by margin on every side.
func (b Aabb) Expand(margin float64) Aabb {
	m := lin.V3{X: margin, Y: margin, Z: margin}
	return Aabb{
		Min: lin.V3{X: b.Min.X - m.X, Y: b.Min.Y - m.Y, Z: b.Min.Z - m.Z},
		Max: lin.V3{X: b.Max.X + m.X, Y: b.Max.Y + m.Y, Z: b.Max.Z + m.Z},
	}
}

// Union returns the smallest box containing both b and o.
func (b Aabb) Union(o Aabb) Aabb {
	return Aabb{
		Min: lin.V3{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: lin.V3{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Contains reports whether o is fully contained within b.
func (b Aabb) Contains(o Aabb) bool {
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y && b.Min.Z <= o.Min.Z &&
		b.Max.X >= o.Max.X && b.Max.Y >= o.Max.Y && b.Max.Z >= o.Max.Z
}

// Overlaps reports whether b and o intersect.
func (b Aabb) Overlaps(o Aabb) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// SurfaceArea returns the box's surface area, used by the dynamic BVH's
// insertion cost heuristic.
func (b Aabb) SurfaceArea() float64 {
	d := lin.V3{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

// Center returns the box's midpoint.
func (b Aabb) Center() lin.V3 {
	return lin.V3{X: (b.Min.X + b.Max.X) * 0.5, Y: (b.Min.Y + b.Max.Y) * 0.5, Z: (b.Min.Z + b.Max.Z) * 0.5}
}

// Transform returns the world-space AABB of a local-space box under
// transform t, by projecting the box's half-extents through |R| (the
// element-wise absolute rotation matrix), matching shape.go's box/sphere
// Aabb pattern from gazed-vu/physics/shape.go.
func (b Aabb) Transform(t *lin.T) Aabb {
	c := b.Center()
	h := lin.V3{X: b.Max.X - c.X, Y: b.Max.Y - c.Y, Z: b.Max.Z - c.Z}

	m := lin.NewM3().SetQ(t.Rot)
	wc := t.App(&c)
	ex := math.Abs(m.Xx)*h.X + math.Abs(m.Yx)*h.Y + math.Abs(m.Zx)*h.Z
	ey := math.Abs(m.Xy)*h.X + math.Abs(m.Yy)*h.Y + math.Abs(m.Zy)*h.Z
	ez := math.Abs(m.Xz)*h.X + math.Abs(m.Yz)*h.Y + math.Abs(m.Zz)*h.Z
	return Aabb{
		Min: lin.V3{X: wc.X - ex, Y: wc.Y - ey, Z: wc.Z - ez},
		Max: lin.V3{X: wc.X + ex, Y: wc.Y + ey, Z: wc.Z + ez},
	}
}
