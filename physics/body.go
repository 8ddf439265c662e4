// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// body.go implements the rigid body and its attached shape instances (spec
// §3/§4.1). Grounded on gazed-vu/physics/physics.go's Body (world_position,
// world_rotation, inverse_mass, lvel/avel velocity pair, iit/iitw inverse
// inertia) generalized from a single-collider struct to a body that owns a
// list of ShapeInstances (so a body's combined mass/inertia is the
// parallel-axis aggregate spec §3 asks for), and from the teacher's plain
// []Body slice to a generational handle pool (pool.go/handles.go's handle
// type) so bodies can be removed without invalidating every other index.

// bodyFlags bitset values, named the way original_source/include/physics.h
// names its own body state flags.
type bodyFlags uint32

const (
	bodyDynamic bodyFlags = 1 << iota
	bodyAwake
	bodySleepCandidate // accumulating time below the sleep velocity threshold.
)

// IslandRefKind tags which variant an IslandRef union currently holds.
type IslandRefKind uint8

const (
	IslandRefNone IslandRefKind = iota
	IslandRefStatic
	IslandRefHandle
)

// IslandRef is a tagged union over "not in any island" / "the shared static
// anchor" / "a specific island handle", modeling original_source's
// tri-state island reference without resorting to a sentinel integer.
type IslandRef struct {
	Kind   IslandRefKind
	Handle uint32 // valid only when Kind == IslandRefHandle.
}

// ShapeInstance attaches a registered shape to a body at a local-frame
// offset, per spec §3's "a body owns a list of shape instances".
type ShapeInstance struct {
	Shape  uint32 // ShapeDatabase handle.
	Offset lin.T  // local-frame placement of the shape relative to the body.
}

// Body is a single rigid body in the simulation: its world transform,
// velocities, aggregated mass properties, and material parameters.
type Body struct {
	flags bodyFlags
	world lin.T

	shapes []ShapeInstance

	imass      float64 // inverse mass; 0 for static/kinematic bodies.
	invInertia lin.V3  // diagonal inverse inertia tensor, body-local frame.
	invInertiaWorld lin.M3

	lvel lin.V3 // linear velocity.
	avel lin.V3 // angular velocity.

	friction    float64
	restitution float64

	linearDampening  float64
	angularDampening float64

	island IslandRef

	sleepTimer float64 // seconds spent below the sleep thresholds.

	bvhLeaf   uint32 // this body's leaf node in the pipeline's broadphase Bvh.
	worldAabb Aabb
}

// NewBody returns a static (zero-mass, non-dynamic) body at the identity
// transform with no attached shapes; use AddShapeInstance and SetDynamic to
// configure it before it is added to a Pipeline.
func NewBody() *Body {
	b := &Body{world: lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()}, friction: 0.5, restitution: 0.0}
	return b
}

// SetDynamic marks the body dynamic (movable, affected by gravity and
// solver impulses) or static, and recomputes the aggregate mass properties
// against shapeDB when dynamic.
func (b *Body) SetDynamic(dynamic bool, density float64, shapeDB *ShapeDatabase) {
	if !dynamic {
		b.flags &^= bodyDynamic
		b.imass = 0
		b.invInertia = lin.V3{}
		return
	}
	b.flags |= bodyDynamic | bodyAwake
	b.recomputeMass(density, shapeDB)
}

// AddShapeInstance attaches shape (already registered in shapeDB) to the
// body at the given local offset.
func (b *Body) AddShapeInstance(shape uint32, offset lin.T) {
	b.shapes = append(b.shapes, ShapeInstance{Shape: shape, Offset: offset})
}

// recomputeMass aggregates each shape instance's mass/inertia into the
// body's combined inverse mass and inverse inertia tensor, via the
// parallel-axis theorem: each instance's own inertia (about its own COM) is
// shifted to the body's origin by its offset before summing.
func (b *Body) recomputeMass(density float64, shapeDB *ShapeDatabase) {
	var totalMass float64
	var ixx, iyy, izz float64

	for _, inst := range b.shapes {
		s := shapeDB.Address(inst.Shape)
		if s == nil {
			continue
		}
		m := density * s.Volume()
		totalMass += m
		localCom := s.CenterOfMass()
		worldCom := *inst.Offset.App(&localCom)
		in := s.Inertia(density)
		ixx += in.X + m*(worldCom.Y*worldCom.Y+worldCom.Z*worldCom.Z)
		iyy += in.Y + m*(worldCom.Z*worldCom.Z+worldCom.X*worldCom.X)
		izz += in.Z + m*(worldCom.X*worldCom.X+worldCom.Y*worldCom.Y)
	}
	if totalMass <= 0 {
		b.imass = 0
		b.invInertia = lin.V3{}
		return
	}
	b.imass = 1.0 / totalMass
	b.invInertia = *lin.NewV3().RecipNz(&lin.V3{X: ixx, Y: iyy, Z: izz})
}

// updateInvInertiaWorld recomputes the world-space inverse inertia tensor
// from the body-local diagonal tensor and its current orientation:
// I_world^-1 = R * I_local^-1 * R^T.
func (b *Body) updateInvInertiaWorld() {
	r := lin.NewM3().SetQ(b.world.Rot)
	diag := lin.NewM3().SetS(
		b.invInertia.X, 0, 0,
		0, b.invInertia.Y, 0,
		0, 0, b.invInertia.Z,
	)
	b.invInertiaWorld = *lin.NewM3().Conjugate(r, diag)
}

// IsDynamic reports whether the body participates in the solver.
func (b *Body) IsDynamic() bool { return b.flags&bodyDynamic != 0 }

// IsAwake reports whether the body is currently simulated (dynamic bodies
// past their sleep threshold stop being integrated/solved).
func (b *Body) IsAwake() bool { return !b.IsDynamic() || b.flags&bodyAwake != 0 }

// Island returns which island the body currently belongs to, as last
// synced by the owning Pipeline at the end of its island-reconciliation
// step; static bodies report IslandRefStatic.
func (b *Body) Island() IslandRef { return b.island }

// Wake marks the body awake and resets its sleep timer.
func (b *Body) Wake() {
	b.flags |= bodyAwake
	b.sleepTimer = 0
}

// World returns the body's current world transform.
func (b *Body) World() lin.T { return b.world }

// SetWorld overwrites the body's world transform directly (teleport).
func (b *Body) SetWorld(t lin.T) { b.world = t }

// Velocity returns the body's current linear and angular velocity.
func (b *Body) Velocity() (linear, angular lin.V3) { return b.lvel, b.avel }

// SetVelocity overwrites the body's linear and angular velocity.
func (b *Body) SetVelocity(linear, angular lin.V3) { b.lvel, b.avel = linear, angular }

// velocityAtLocalPoint returns the body's linear velocity at the given
// point expressed relative to the body's center of mass (world space):
// v + ω × r, the same composition every contact-constraint setup needs.
func (b *Body) velocityAtLocalPoint(r lin.V3) lin.V3 {
	cross := lin.NewV3().Cross(&b.avel, &r)
	return lin.V3{X: b.lvel.X + cross.X, Y: b.lvel.Y + cross.Y, Z: b.lvel.Z + cross.Z}
}

// worldAabbFor returns the union AABB (inflated by margin) of every shape
// instance the body owns, posed at the body's current world transform.
func (b *Body) worldAabbFor(shapeDB *ShapeDatabase, margin float64) Aabb {
	var box Aabb
	first := true
	for _, inst := range b.shapes {
		s := shapeDB.Address(inst.Shape)
		if s == nil {
			continue
		}
		instT := lin.NewT()
		instT.Mult(&b.world, &inst.Offset)
		b := s.LocalAabb(margin).Transform(instT)
		if first {
			box = b
			first = false
		} else {
			box = box.Union(b)
		}
	}
	return box
}
