// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/gazed/rbcore/lin"
)

// Basic test to check that a sphere comes to rest on a slab, mirroring the
// teacher's TestSphereAt: a ball dropped above a static slab should settle
// near the slab's surface instead of tunneling through or hovering.
func TestPipelineSphereSettlesOnSlab(t *testing.T) {
	shapes := NewShapeDatabase()
	boxShape := shapes.Register("slab", NewBoxHull(50, 25, 50))
	sphereShape := shapes.Register("ball", NewSphereShape(1))

	cfg := DefaultConfig()
	cfg.SleepEnabled = false
	p := NewPipeline(cfg, shapes)
	p.SetScheduler(SerialScheduler{})

	slab := NewBody()
	slab.AddShapeInstance(boxShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	slab.SetWorld(lin.T{Loc: lin.NewV3S(0, -25, 0), Rot: lin.NewQI()})
	p.AddBody(slab)

	ball := NewBody()
	ball.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	ball.SetWorld(lin.T{Loc: lin.NewV3S(0, 5, 0), Rot: lin.NewQI()})
	ball.SetDynamic(true, 1.0, shapes)
	ballHandle := p.AddBody(ball)

	for i := 0; i < 300; i++ {
		p.Tick(1.0 / 60.0)
	}

	settled := p.bodies[ballHandle].World()
	if settled.Loc.Y < 0.9 || settled.Loc.Y > 1.3 {
		t.Errorf("expected the ball to settle near y=1 on the slab surface, got y=%f", settled.Loc.Y)
	}
}

func TestPipelineAddBodyEmitsEventAndBvhLeaf(t *testing.T) {
	shapes := NewShapeDatabase()
	sphereShape := shapes.Register("ball", NewSphereShape(1))
	p := NewPipeline(DefaultConfig(), shapes)

	b := NewBody()
	b.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	h := p.AddBody(b)

	events := p.Events()
	if len(events) != 1 || events[0].Kind != EventBodyNew || events[0].Body != h {
		t.Fatalf("expected a single body-new event for handle %d, got %+v", h, events)
	}
}

func TestPipelineTagForRemovalDefersToNextTick(t *testing.T) {
	shapes := NewShapeDatabase()
	sphereShape := shapes.Register("ball", NewSphereShape(1))
	p := NewPipeline(DefaultConfig(), shapes)
	p.SetScheduler(SerialScheduler{})

	b := NewBody()
	b.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	h := p.AddBody(b)

	p.TagForRemoval(h)
	if _, ok := p.bodies[h]; !ok {
		t.Fatal("body should still exist until the next tick processes the removal")
	}

	p.Tick(1.0 / 60.0)
	if _, ok := p.bodies[h]; ok {
		t.Error("body should be gone after the tick that processes its removal")
	}
}

func TestPipelineRaycastHitsNearestBody(t *testing.T) {
	shapes := NewShapeDatabase()
	sphereShape := shapes.Register("ball", NewSphereShape(1))
	p := NewPipeline(DefaultConfig(), shapes)

	near := NewBody()
	near.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	near.SetWorld(lin.T{Loc: lin.NewV3S(0, 0, 5), Rot: lin.NewQI()})
	nearHandle := p.AddBody(near)

	far := NewBody()
	far.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	far.SetWorld(lin.T{Loc: lin.NewV3S(0, 0, 10), Rot: lin.NewQI()})
	p.AddBody(far)

	hit, dist := p.Raycast(lin.V3{X: 0, Y: 0, Z: 0}, lin.V3{X: 0, Y: 0, Z: 1}, 100)
	if hit != nearHandle {
		t.Fatalf("expected the ray to hit the nearer body %d, got %d", nearHandle, hit)
	}
	if dist < 3.5 || dist > 4.5 {
		t.Errorf("expected a hit distance near 4 (5 - radius 1), got %f", dist)
	}
}

// TestPipelineRestingBodySleepsWithinTimeThreshold is a regression test for
// a bug where re-running island merge/wake over every persisting contact
// (not just newly-formed ones) reset a resting body's sleep timer every
// tick, before UpdateSleep's dt addition could ever reach
// SleepTimeThreshold — so a ball resting on a static slab could never go
// to sleep.
func TestPipelineRestingBodySleepsWithinTimeThreshold(t *testing.T) {
	shapes := NewShapeDatabase()
	boxShape := shapes.Register("slab", NewBoxHull(50, 25, 50))
	sphereShape := shapes.Register("ball", NewSphereShape(1))

	cfg := DefaultConfig()
	p := NewPipeline(cfg, shapes)
	p.SetScheduler(SerialScheduler{})

	slab := NewBody()
	slab.AddShapeInstance(boxShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	slab.SetWorld(lin.T{Loc: lin.NewV3S(0, -25, 0), Rot: lin.NewQI()})
	p.AddBody(slab)

	ball := NewBody()
	ball.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	ball.SetWorld(lin.T{Loc: lin.NewV3S(0, 1.01, 0), Rot: lin.NewQI()})
	ball.SetDynamic(true, 1.0, shapes)
	ballHandle := p.AddBody(ball)

	sawAsleep := false
	for i := 0; i < 180; i++ {
		p.Tick(1.0 / 60.0)
		for _, e := range p.Events() {
			if e.Kind == EventIslandAsleep {
				sawAsleep = true
			}
		}
	}
	if !sawAsleep {
		t.Error("expected a ball resting on a static slab to emit island-asleep within 180 ticks (3s)")
	}
	if p.bodies[ballHandle].IsAwake() {
		t.Error("expected the resting ball to be asleep after settling")
	}
}

func TestPipelineIslandEventsOnAddAndMerge(t *testing.T) {
	shapes := NewShapeDatabase()
	sphereShape := shapes.Register("ball", NewSphereShape(1))
	cfg := DefaultConfig()
	cfg.SleepEnabled = false
	p := NewPipeline(cfg, shapes)
	p.SetScheduler(SerialScheduler{})

	a := NewBody()
	a.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	a.SetDynamic(true, 1.0, shapes)
	a.SetWorld(lin.T{Loc: lin.NewV3S(0, 0, 0), Rot: lin.NewQI()})
	p.AddBody(a)

	b := NewBody()
	b.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(true, 1.0, shapes)
	b.SetWorld(lin.T{Loc: lin.NewV3S(0, 1.5, 0), Rot: lin.NewQI()})
	p.AddBody(b)

	// AddBody emits its island-new event immediately, before any Tick (whose
	// first step resets the event stream) has a chance to run.
	sawNew := 0
	for _, e := range p.Events() {
		if e.Kind == EventIslandNew {
			sawNew++
		}
	}
	if sawNew != 2 {
		t.Errorf("expected an island-new event for each body added, got %d", sawNew)
	}

	sawExpanded := 0
	for i := 0; i < 2; i++ {
		p.Tick(1.0 / 60.0)
		for _, e := range p.Events() {
			if e.Kind == EventIslandExpanded {
				sawExpanded++
			}
		}
	}
	if sawExpanded == 0 {
		t.Error("expected an island-expanded event when the overlapping spheres merged islands")
	}
}

func TestPipelineSyncsBodyIslandRefs(t *testing.T) {
	shapes := NewShapeDatabase()
	sphereShape := shapes.Register("ball", NewSphereShape(1))
	p := NewPipeline(DefaultConfig(), shapes)
	p.SetScheduler(SerialScheduler{})

	slab := NewBody()
	slab.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	p.AddBody(slab)

	a := NewBody()
	a.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	a.SetDynamic(true, 1.0, shapes)
	a.SetWorld(lin.T{Loc: lin.NewV3S(0, 0, 0), Rot: lin.NewQI()})
	hA := p.AddBody(a)

	b := NewBody()
	b.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetDynamic(true, 1.0, shapes)
	b.SetWorld(lin.T{Loc: lin.NewV3S(0, 1.5, 0), Rot: lin.NewQI()})
	hB := p.AddBody(b)

	p.Tick(1.0 / 60.0)

	if slab.Island().Kind != IslandRefStatic {
		t.Errorf("expected a static body to report IslandRefStatic, got %+v", slab.Island())
	}

	ra, rb := p.bodies[hA].Island(), p.bodies[hB].Island()
	if ra.Kind != IslandRefHandle || rb.Kind != IslandRefHandle || ra.Handle != rb.Handle {
		t.Errorf("expected overlapping dynamic bodies to share one island handle, got %+v / %+v", ra, rb)
	}
}

func TestPipelineRaycastMissReturnsNoHit(t *testing.T) {
	shapes := NewShapeDatabase()
	sphereShape := shapes.Register("ball", NewSphereShape(1))
	p := NewPipeline(DefaultConfig(), shapes)

	b := NewBody()
	b.AddShapeInstance(sphereShape, lin.T{Loc: lin.NewV3(), Rot: lin.NewQI()})
	b.SetWorld(lin.T{Loc: lin.NewV3S(100, 100, 100), Rot: lin.NewQI()})
	p.AddBody(b)

	hit, _ := p.Raycast(lin.V3{X: 0, Y: 0, Z: 0}, lin.V3{X: 0, Y: 0, Z: 1}, 10)
	if hit != NoHit {
		t.Errorf("expected a miss to report NoHit, got %d", hit)
	}
}
