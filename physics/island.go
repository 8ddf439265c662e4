// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// island.go implements the persistent island/connectivity database (spec
// §4.5): dynamic bodies connected by a live contact are tracked together so
// the solver can iterate per-island and so sleep state is decided for a
// whole connected group at once rather than body-by-body.
//
// Generalizes gazed-vu/physics/broad.go's uf_find/uf_union/
// broad_collect_simulation_islands — which rebuilds the whole forest from
// the current collision-pair list every tick — into the persistent,
// incrementally-maintained structure spec §4.5 and
// original_source/include/dynamics.h's island section
// (ISLAND_AWAKE/ISLAND_SLEEP_RESET/ISLAND_SPLIT/ISLAND_TRY_SLEEP) ask for:
// new contacts merge islands in place (uf_union, unchanged), but a broken
// contact can only ever shrink an island, so a split is deferred to an
// explicit, once-per-tick DFS reconnection pass instead of a union-find
// rebuild. Sleep-timer bookkeeping is new code; the teacher has no sleep
// system at all.

// islandState is the per-island sleep state machine named in
// original_source's ISLAND_* constants.
type islandState uint8

const (
	islandAwake islandState = iota
	islandSleeping
)

// island is one persistent connected component of dynamic bodies joined by
// live contacts.
type island struct {
	members []uint32 // body handles, in no particular order.
	state   islandState
	timer   float64 // seconds every member has spent below the sleep thresholds.
}

// IslandDatabase tracks which dynamic bodies are connected via live
// contacts, merging incrementally as contacts form and splitting via a
// deferred reconnection pass when contacts break.
type IslandDatabase struct {
	islands  []island
	bodyIsland map[uint32]uint32 // body handle -> index into islands.
	free     []uint32
}

// NewIslandDatabase returns an empty island database.
func NewIslandDatabase() *IslandDatabase {
	return &IslandDatabase{bodyIsland: map[uint32]uint32{}}
}

// EnsureBody registers body (if not already tracked) as its own
// single-member island, called when a dynamic body is added to the
// pipeline. Returns the island's index and whether a new island was
// actually allocated (false if body was already tracked), so the caller
// can emit an island-new event exactly when one is warranted.
func (db *IslandDatabase) EnsureBody(bodyHandle uint32) (idx uint32, created bool) {
	if idx, ok := db.bodyIsland[bodyHandle]; ok {
		return idx, false
	}
	idx = db.alloc()
	db.islands[idx] = island{members: []uint32{bodyHandle}, state: islandAwake}
	db.bodyIsland[bodyHandle] = idx
	return idx, true
}

// RemoveBody drops body from its island's member list (called when a
// body is removed from the pipeline); does not trigger a split, since
// removal only ever shrinks membership and the next broken-contact pass
// will reconcile anything that needed to split anyway. Returns the
// island's index and whether that island became empty (and was freed) as
// a result, so the caller can emit an island-removed event.
func (db *IslandDatabase) RemoveBody(bodyHandle uint32) (idx uint32, emptied bool) {
	idx, ok := db.bodyIsland[bodyHandle]
	if !ok {
		return 0, false
	}
	delete(db.bodyIsland, bodyHandle)
	members := db.islands[idx].members
	for i, m := range members {
		if m == bodyHandle {
			members[i] = members[len(members)-1]
			db.islands[idx].members = members[:len(members)-1]
			break
		}
	}
	if len(db.islands[idx].members) == 0 {
		db.free = append(db.free, idx)
		return idx, true
	}
	return idx, false
}

// Merge joins the islands containing bodyA and bodyB on a newly-formed
// contact between them, waking the merged island. Both bodies must already
// be tracked via EnsureBody. Callers must only invoke this for a contact
// that did not exist last tick: Merge always wakes, even when bodyA and
// bodyB already share an island, so re-running it for a contact that's
// simply still alive from a prior tick would keep re-waking a settled
// island and it could never reach its sleep timer.
//
// Returns the surviving island's index, whether two distinct islands were
// actually folded together (for an island-expanded event), and whether
// this call woke a previously-sleeping island (for an island-awake event).
func (db *IslandDatabase) Merge(bodyA, bodyB uint32) (survivor uint32, merged bool, woke bool) {
	ia, okA := db.bodyIsland[bodyA]
	ib, okB := db.bodyIsland[bodyB]
	if !okA || !okB || ia == ib {
		if okA {
			woke = db.wake(ia)
		}
		return ia, false, woke
	}
	// Fold the smaller island into the larger, keeping the merge O(min).
	if len(db.islands[ia].members) < len(db.islands[ib].members) {
		ia, ib = ib, ia
	}
	db.islands[ia].members = append(db.islands[ia].members, db.islands[ib].members...)
	for _, m := range db.islands[ib].members {
		db.bodyIsland[m] = ia
	}
	db.islands[ib].members = nil
	db.free = append(db.free, ib)
	woke = db.wake(ia)
	return ia, true, woke
}

// wake marks island idx awake and resets its sleep timer, reporting
// whether this call actually transitioned it from sleeping to awake.
func (db *IslandDatabase) wake(idx uint32) bool {
	wasAsleep := db.islands[idx].state == islandSleeping
	db.islands[idx].state = islandAwake
	db.islands[idx].timer = 0
	return wasAsleep
}

// Reconcile takes the list of body pairs whose contact just broke this
// tick (ContactDatabase.EndTick's return) and, for every island touched by
// a break, re-derives connectivity from the surviving live contacts via a
// fresh DFS over that island's members only — the frame-deferred split
// spec §4.5 calls for, bounded to the islands actually affected rather
// than a whole-world rebuild. Returns the indices of every new island
// created by a split this call, for the caller to emit island-new events
// against (the original index keeps the component holding the island's
// first listed member and is not itself reported, since it never stopped
// existing).
func (db *IslandDatabase) Reconcile(broken [][2]uint32, contacts *ContactDatabase) []uint32 {
	touched := map[uint32]bool{}
	for _, pair := range broken {
		if idx, ok := db.bodyIsland[pair[0]]; ok {
			touched[idx] = true
		}
		if idx, ok := db.bodyIsland[pair[1]]; ok {
			touched[idx] = true
		}
	}
	var created []uint32
	for idx := range touched {
		if int(idx) >= len(db.islands) || len(db.islands[idx].members) == 0 {
			continue
		}
		created = append(created, db.splitIsland(idx, contacts)...)
	}
	return created
}

// splitIsland re-derives connected components within a single island's
// current members by DFS over live contacts, replacing the one island
// slot with as many islands as the island actually decomposes into, and
// returns the indices of any newly-allocated islands.
func (db *IslandDatabase) splitIsland(idx uint32, contacts *ContactDatabase) []uint32 {
	members := db.islands[idx].members
	adjacency := map[uint32][]uint32{}
	for _, m := range members {
		adjacency[m] = nil
	}
	for _, c := range contacts.All() {
		if _, ok := adjacency[c.BodyA]; !ok {
			continue
		}
		if _, ok := adjacency[c.BodyB]; !ok {
			continue
		}
		adjacency[c.BodyA] = append(adjacency[c.BodyA], c.BodyB)
		adjacency[c.BodyB] = append(adjacency[c.BodyB], c.BodyA)
	}

	visited := map[uint32]bool{}
	var components [][]uint32
	for _, m := range members {
		if visited[m] {
			continue
		}
		var comp []uint32
		stack := []uint32{m}
		visited[m] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, n)
			for _, nb := range adjacency[n] {
				if !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		components = append(components, comp)
	}

	if len(components) <= 1 {
		return nil // still fully connected, nothing to split.
	}

	db.islands[idx] = island{members: components[0], state: islandAwake}
	for _, m := range components[0] {
		db.bodyIsland[m] = idx
	}
	created := make([]uint32, 0, len(components)-1)
	for _, comp := range components[1:] {
		newIdx := db.alloc()
		db.islands[newIdx] = island{members: comp, state: islandAwake}
		for _, m := range comp {
			db.bodyIsland[m] = newIdx
		}
		created = append(created, newIdx)
	}
	return created
}

func (db *IslandDatabase) alloc() uint32 {
	if n := len(db.free); n > 0 {
		i := db.free[n-1]
		db.free = db.free[:n-1]
		return i
	}
	db.islands = append(db.islands, island{})
	return uint32(len(db.islands) - 1)
}

// Islands returns every currently non-empty island, for the solver and the
// sleep-update pass to iterate.
func (db *IslandDatabase) Islands() []*island {
	out := make([]*island, 0, len(db.islands))
	for i := range db.islands {
		if len(db.islands[i].members) > 0 {
			out = append(out, &db.islands[i])
		}
	}
	return out
}

// UpdateSleep advances each island's sleep timer (ISLAND_TRY_SLEEP):
// it checks every awake dynamic member's velocity against the configured
// thresholds; if all members have been under threshold for
// cfg.SleepTimeThreshold seconds the island transitions to islandSleeping
// and its members' velocities are zeroed (ISLAND_SLEEP_RESET). bodies maps
// a body handle to its live *Body. Returns the indices of every island
// that transitioned from awake to sleeping this call, for the caller to
// emit an island-asleep event against exactly once per transition.
func (db *IslandDatabase) UpdateSleep(dt float64, cfg *Config, bodies map[uint32]*Body) []uint32 {
	if !cfg.SleepEnabled {
		return nil
	}
	var justSlept []uint32
	for i := range db.islands {
		isl := &db.islands[i]
		if len(isl.members) == 0 {
			continue
		}
		allBelow := true
		anyAwakeRequest := false
		for _, m := range isl.members {
			b, ok := bodies[m]
			if !ok || !b.IsDynamic() {
				continue
			}
			if !b.IsAwake() {
				continue
			}
			lv, av := b.Velocity()
			if lv.Dot(&lv) > cfg.SleepLinearVelocitySqLimit || av.Dot(&av) > cfg.SleepAngularVelocitySqLimit {
				allBelow = false
			}
			anyAwakeRequest = true
		}
		if !anyAwakeRequest {
			continue
		}
		if !allBelow {
			isl.timer = 0
			isl.state = islandAwake
			continue
		}
		isl.timer += dt
		if isl.timer >= cfg.SleepTimeThreshold && isl.state != islandSleeping {
			isl.state = islandSleeping
			justSlept = append(justSlept, uint32(i))
			for _, m := range isl.members {
				if b, ok := bodies[m]; ok && b.IsDynamic() {
					b.flags &^= bodyAwake
					b.SetVelocity(lin.V3{}, lin.V3{})
				}
			}
		}
	}
	return justSlept
}
