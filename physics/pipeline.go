// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// pipeline.go implements the Pipeline orchestrator (spec §4.7): the fixed
// ten-step per-tick sequence that drives every other subsystem in this
// package. Generalizes gazed-vu/physics/physics.go's Simulate(bods []Body,
// timestep float64) — a single free function closing over one package-level
// slice — into a struct holding every database this module needs (bodies,
// shapes, broadphase tree, contacts, SAT cache, islands, solver, events),
// so more than one simulation can exist in a process and bodies can be
// added/removed without invalidating external handles.

const bvhMargin = 0.1

// Pipeline is the top-level simulation: every database named in spec §3
// plus the Config that tunes them.
type Pipeline struct {
	cfg Config

	shapes *ShapeDatabase
	bodies map[uint32]*Body
	nextBody uint32
	pendingRemoval []uint32

	tree     *Bvh
	contacts *ContactDatabase
	satCache *SatCache
	islands  *IslandDatabase
	solver   *Solver
	events   *EventStream
	sched    Scheduler

	tickNanos  int64
	tickNsStep int64
}

// NewPipeline returns a Pipeline configured with cfg and backed by shapes
// (shared ownership: the caller may keep registering shapes into the same
// database across multiple Pipelines).
func NewPipeline(cfg Config, shapes *ShapeDatabase) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		shapes:   shapes,
		bodies:   map[uint32]*Body{},
		tree:     NewBvh(bvhMargin),
		contacts: NewContactDatabase(),
		satCache: NewSatCache(),
		islands:  NewIslandDatabase(),
		solver:   NewSolver(),
		events:   NewEventStream(),
		sched:    NewWorkerPool(4),
	}
}

// Configure replaces the pipeline's tunables; takes effect at the start of
// the next tick (step 2), never mid-tick.
func (p *Pipeline) Configure(cfg Config) { p.cfg = cfg }

// SetScheduler overrides the pipeline's parallel-for implementation (e.g.
// SerialScheduler{} for deterministic single-threaded runs, per spec §5's
// determinism guarantee).
func (p *Pipeline) SetScheduler(s Scheduler) { p.sched = s }

// AddBody inserts body into the simulation and returns its handle. The
// body's shape instances (added via Body.AddShapeInstance before this
// call) are registered with the broadphase tree immediately.
func (p *Pipeline) AddBody(b *Body) uint32 {
	h := p.nextBody
	p.nextBody++
	p.bodies[h] = b
	box := b.worldAabbFor(p.shapes, bvhMargin)
	b.worldAabb = box
	b.bvhLeaf = p.tree.Insert(box, h)
	if b.IsDynamic() {
		if idx, created := p.islands.EnsureBody(h); created {
			p.events.islandLifecycle(p.tickNanos, EventIslandNew, idx)
		}
	}
	p.events.bodyNew(p.tickNanos, h)
	return h
}

// TagForRemoval defers destruction of the body addressed by h until the
// start of the next tick (spec §4.7 step 1 / §2's "all body destruction
// defers" invariant), so the tick that just ran may still name the body in
// its event stream before it disappears.
func (p *Pipeline) TagForRemoval(h uint32) {
	if _, ok := p.bodies[h]; ok {
		p.pendingRemoval = append(p.pendingRemoval, h)
	}
}

// AddShape registers shape under name in the pipeline's shared shape
// database and returns its handle.
func (p *Pipeline) AddShape(name string, shape *Shape) uint32 {
	return p.shapes.Register(name, shape)
}

// EnableSleep / DisableSleep toggle the sleep subsystem; takes effect at
// the start of the next tick, per Configure's contract.
func (p *Pipeline) EnableSleep(enabled bool) { p.cfg.SleepEnabled = enabled }

// Events returns every lifecycle event recorded during the most recently
// completed tick. The returned slice is only valid until the next Tick
// call.
func (p *Pipeline) Events() []Event { return p.events.Drain() }

// Tick advances the simulation by dt seconds, running the fixed ten-step
// sequence spec §4.7 names.
func (p *Pipeline) Tick(dt float64) {
	p.events.Reset()
	p.tickNsStep = int64(dt * 1e9)

	p.stepRemoval()               // 1.
	// step 2 (apply pending config) happens implicitly: Configure/EnableSleep
	// write directly into p.cfg, and every step below reads p.cfg fresh.
	p.integrateForces(dt)
	p.stepRefit()                 // 3.
	pairs := p.stepOverlap()          // 4.
	newPairs := p.stepNarrowphase(pairs, dt) // 5.
	p.stepIslandMerge(newPairs)       // 6.
	broken := p.contacts.EndTick()
	p.stepContactRemoval(broken)  // 7.
	for _, idx := range p.islands.Reconcile(broken, p.contacts) { // 8.
		p.events.islandLifecycle(p.tickNanos, EventIslandNew, idx)
	}
	p.syncBodyIslandRefs()
	p.stepSolve(dt)               // 9.
	for _, idx := range p.islands.UpdateSleep(dt, &p.cfg, p.bodies) {
		p.events.islandLifecycle(p.tickNanos, EventIslandAsleep, idx)
	}
	p.stepIntegratePose(dt)
	p.stepEmitOrientation()
	p.satCache.EndTick()

	p.tickNanos += p.tickNsStep   // 10.
}

// syncBodyIslandRefs mirrors the island database's authoritative
// body->island mapping onto each dynamic body's own IslandRef, so callers
// that only hold a *Body (no Pipeline in hand) can still read which island
// it belongs to via Body.Island.
func (p *Pipeline) syncBodyIslandRefs() {
	for h, b := range p.bodies {
		if !b.IsDynamic() {
			b.island = IslandRef{Kind: IslandRefStatic}
			continue
		}
		if idx, ok := p.islands.bodyIsland[h]; ok {
			b.island = IslandRef{Kind: IslandRefHandle, Handle: idx}
		} else {
			b.island = IslandRef{Kind: IslandRefNone}
		}
	}
}

// stepRemoval frees every body tagged for removal last tick: drops its
// BVH proxy, removes any contacts naming it, and removes it from its
// island.
func (p *Pipeline) stepRemoval() {
	if len(p.pendingRemoval) == 0 {
		return
	}
	for _, h := range p.pendingRemoval {
		b, ok := p.bodies[h]
		if !ok {
			continue
		}
		p.tree.Remove(b.bvhLeaf)
		if idx, emptied := p.islands.RemoveBody(h); emptied {
			p.events.islandLifecycle(p.tickNanos, EventIslandRemoved, idx)
		}
		for key, c := range p.contacts.byKey {
			if c2 := &p.contacts.slots[c]; c2.BodyA == h || c2.BodyB == h {
				delete(p.contacts.byKey, key)
			}
		}
		delete(p.bodies, h)
		p.events.bodyRemoved(p.tickNanos, h)
	}
	p.pendingRemoval = p.pendingRemoval[:0]
}

// integrateForces applies gravity (and configured dampening) to every
// awake dynamic body's velocity, ahead of the broadphase/narrowphase/solve
// passes that consume it this tick.
func (p *Pipeline) integrateForces(dt float64) {
	for _, b := range p.bodies {
		if !b.IsDynamic() || !b.IsAwake() {
			continue
		}
		b.lvel.X += p.cfg.Gravity.X * dt
		b.lvel.Y += p.cfg.Gravity.Y * dt
		b.lvel.Z += p.cfg.Gravity.Z * dt

		damp := 1.0 / (1.0 + dt*p.cfg.LinearDampening)
		b.lvel.X *= damp
		b.lvel.Y *= damp
		b.lvel.Z *= damp
		adamp := 1.0 / (1.0 + dt*p.cfg.AngularDampening)
		b.avel.X *= adamp
		b.avel.Y *= adamp
		b.avel.Z *= adamp

		// Cap rotation to a quarter turn per step: faster and a body can
		// tunnel past a tracked collision feature before narrowphase ever
		// sees it, invalidating the SAT cache's assumption of bounded
		// motion between ticks.
		if dt > 0 {
			b.avel.ClampLen(&b.avel, lin.HalfPi/dt)
		}

		b.updateInvInertiaWorld()
	}
}

// stepRefit re-poses every awake dynamic body's world AABB and refits its
// BVH proxy (spec §4.7 step 3), predicting displacement from this tick's
// linear velocity so Refit's margin absorbs the upcoming motion.
func (p *Pipeline) stepRefit() {
	for _, b := range p.bodies {
		if !b.IsDynamic() || !b.IsAwake() {
			continue
		}
		tight := b.worldAabbFor(p.shapes, 0)
		disp := lin.V3{X: b.lvel.X * p.dtSeconds(), Y: b.lvel.Y * p.dtSeconds(), Z: b.lvel.Z * p.dtSeconds()}
		if p.tree.Refit(b.bvhLeaf, tight, disp) {
			b.worldAabb = p.tree.Box(b.bvhLeaf)
		}
	}
}

func (p *Pipeline) dtSeconds() float64 { return float64(p.tickNsStep) / 1e9 }

// stepOverlap pushes every broadphase-overlapping leaf pair into a
// per-tick array (spec §4.7 step 4).
func (p *Pipeline) stepOverlap() [][2]uint32 {
	return p.tree.Pairs(nil)
}

// stepNarrowphase runs narrowphase over pairs (range-split across
// p.sched's workers per spec §4.7 step 5), merging every resulting
// manifold into the contact database and SAT cache on the calling
// goroutine once every worker range completes (the merge itself is not
// parallel: spec §5 reserves database writes to the master).
func (p *Pipeline) stepNarrowphase(pairs [][2]uint32, dt float64) [][2]uint32 {
	p.satCache.BeginTick()
	p.contacts.BeginTick()

	type result struct {
		bodyA, bodyB uint32
		manifold     Manifold
	}
	results := make([]result, len(pairs))

	p.sched.ParallelFor(len(pairs), func(i int) {
		bodyA, bodyB := pairs[i][0], pairs[i][1] // Bvh.Pairs yields payloads (body handles).
		ba, bb := p.bodies[bodyA], p.bodies[bodyB]
		if ba == nil || bb == nil || (!ba.IsDynamic() && !bb.IsDynamic()) {
			return
		}
		if !ba.IsAwake() && !bb.IsAwake() {
			return
		}
		m := p.narrowphasePair(bodyA, ba, bodyB, bb)
		results[i] = result{bodyA: bodyA, bodyB: bodyB, manifold: m}
	})

	var newPairs [][2]uint32
	for i := range results {
		r := &results[i]
		if len(r.manifold.Points) == 0 {
			continue
		}
		ba, bb := p.bodies[r.bodyA], p.bodies[r.bodyB]
		wasNew := p.contacts.Get(r.bodyA, r.bodyB) == nil
		worldA := ba.World()
		worldB := bb.World()
		p.contacts.Upsert(r.bodyA, r.bodyB, &worldA, &worldB, r.manifold)
		if wasNew {
			p.events.contactLifecycle(p.tickNanos, EventContactNew, r.bodyA, r.bodyB)
			newPairs = append(newPairs, [2]uint32{r.bodyA, r.bodyB})
		}
	}
	return newPairs
}

// narrowphasePair runs ContactManifold (and, for hull-hull pairs, the SAT
// cache) over every shape instance pair between bodyA and bodyB, returning
// the union of every instance pair's manifold points.
func (p *Pipeline) narrowphasePair(bodyAHandle uint32, bodyA *Body, bodyBHandle uint32, bodyB *Body) Manifold {
	var out Manifold
	margin := bvhMargin
	for _, ia := range bodyA.shapes {
		sa := p.shapes.Address(ia.Shape)
		if sa == nil {
			continue
		}
		worldA := bodyA.World()
		ta := lin.NewT()
		ta.Mult(&worldA, &ia.Offset)
		for _, ib := range bodyB.shapes {
			sb := p.shapes.Address(ib.Shape)
			if sb == nil {
				continue
			}
			worldB := bodyB.World()
			tb := lin.NewT()
			tb.Mult(&worldB, &ib.Offset)

			if sa.Type == ShapeHull && sb.Type == ShapeHull {
				p.satCache.Query(bodyAHandle, bodyBHandle, sa.Hull, ta, sb.Hull, tb)
			}
			m := ContactManifold(sa, ta, sb, tb, margin)
			out.Points = append(out.Points, m.Points...)
		}
	}
	return out
}

// stepIslandMerge folds the two bodies of every newly-formed contact this
// tick into the same island, waking the result (spec §4.7 step 6). Only
// genuinely new pairs are considered: re-running Merge/wake over every
// contact still alive from a prior tick — including a body resting on a
// static plane, or a settled stack, which carries a live contact every
// single tick — would reset that island's sleep timer every tick and the
// island could never reach SleepTimeThreshold.
func (p *Pipeline) stepIslandMerge(newPairs [][2]uint32) {
	for _, pair := range newPairs {
		bodyA, bodyB := pair[0], pair[1]
		ba, bb := p.bodies[bodyA], p.bodies[bodyB]
		if ba == nil || bb == nil {
			continue
		}
		if ba.IsDynamic() && bb.IsDynamic() {
			survivor, merged, woke := p.islands.Merge(bodyA, bodyB)
			if merged {
				p.events.islandLifecycle(p.tickNanos, EventIslandExpanded, survivor)
			}
			if woke {
				p.events.islandLifecycle(p.tickNanos, EventIslandAwake, survivor)
			}
		} else if ba.IsDynamic() {
			if idx := p.islands.bodyIsland[bodyA]; p.islands.wake(idx) {
				p.events.islandLifecycle(p.tickNanos, EventIslandAwake, idx)
			}
		} else if bb.IsDynamic() {
			if idx := p.islands.bodyIsland[bodyB]; p.islands.wake(idx) {
				p.events.islandLifecycle(p.tickNanos, EventIslandAwake, idx)
			}
		}
	}
}

// stepContactRemoval emits a contact-removed event for every pair the
// contact database dropped this tick (spec §4.7 step 7).
func (p *Pipeline) stepContactRemoval(broken [][2]uint32) {
	for _, pair := range broken {
		p.events.contactLifecycle(p.tickNanos, EventContactRemoved, pair[0], pair[1])
	}
}

// stepSolve runs the sequential-impulse solver once per awake island
// (spec §4.7 step 9), dispatched across p.sched's workers since islands
// share no writable state.
func (p *Pipeline) stepSolve(dt float64) {
	islandList := p.islands.Islands()
	solvers := make([]*Solver, len(islandList))
	for i := range solvers {
		solvers[i] = NewSolver()
	}

	p.sched.ParallelFor(len(islandList), func(i int) {
		isl := islandList[i]
		if isl.state == islandSleeping {
			return
		}
		contacts := p.islandContacts(isl)
		solvers[i].Solve(isl.members, p.bodies, contacts, &p.cfg, dt)
	})
}

// islandContacts returns every live contact touching at least one member
// of isl.
func (p *Pipeline) islandContacts(isl *island) []*Contact {
	members := map[uint32]bool{}
	for _, m := range isl.members {
		members[m] = true
	}
	var out []*Contact
	for _, c := range p.contacts.All() {
		if members[c.BodyA] || members[c.BodyB] {
			out = append(out, c)
		}
	}
	return out
}

// stepIntegratePose advances every awake dynamic body's world transform
// by its solved velocity (spec §4.7 step 9's "integrate" tail).
func (p *Pipeline) stepIntegratePose(dt float64) {
	for _, b := range p.bodies {
		if !b.IsDynamic() || !b.IsAwake() {
			continue
		}
		world := b.World()
		world.Integrate(&world, &b.lvel, &b.avel, dt)
		b.SetWorld(world)
	}
}

// stepEmitOrientation emits a body-orientation event for every awake
// dynamic body, per spec §4.6's "emit a body-orientation event per body in
// the island" output contract.
func (p *Pipeline) stepEmitOrientation() {
	for h, b := range p.bodies {
		if !b.IsDynamic() || !b.IsAwake() {
			continue
		}
		p.events.bodyOrientation(p.tickNanos, h, b.World())
	}
}

// Raycast finds the closest body hit by the ray (origin, dir, maxT),
// returning its handle and hit distance, or (NoHit, 0) on a miss.
func (p *Pipeline) Raycast(origin, dir lin.V3, maxT float64) (hit uint32, dist float64) {
	hit, dist = NoHit, maxT
	p.tree.Raycast(origin, dir, maxT, func(payload uint32, tEnter float64) float64 {
		if tEnter < dist {
			dist = tEnter
			hit = payload
		}
		return dist
	})
	if hit == NoHit {
		return NoHit, 0
	}
	return hit, dist
}
