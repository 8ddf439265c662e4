// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// satcache.go implements a per-pair SAT result cache (spec §4.2/§4.4): the
// narrowphase re-tests the previous tick's separating axis first before
// falling back to a full satQuery, since the axis rarely changes between
// consecutive ticks for resting or slowly sliding pairs. Grounded on
// original_source/include/collision.h's struct sat_Cache/enum
// sat_CacheType; no pack repo implements SAT at all (see sat.go's own
// grounding note), so the cache container itself is new code following the
// same pool-of-slots-keyed-by-pair-key shape contact.go already uses.

// satCacheEntry mirrors original_source's sat_Cache: the kind/feature
// indices of the last axis found for a pair, plus a touched flag so a
// stale entry (pair no longer colliding) can be reclaimed.
type satCacheEntry struct {
	result  satResult
	touched bool
}

// SatCache persists the winning SAT axis per hull-hull pair across ticks.
type SatCache struct {
	byKey map[uint64]*satCacheEntry
}

// NewSatCache returns an empty SAT cache.
func NewSatCache() *SatCache { return &SatCache{byKey: map[uint64]*satCacheEntry{}} }

// BeginTick clears every entry's touched flag; Query sets it again for
// every pair it is asked about this tick, so EndTick can evict the rest.
func (c *SatCache) BeginTick() {
	for _, e := range c.byKey {
		e.touched = false
	}
}

// Query runs a cached-axis-first SAT test for the hull pair (bodyA,bodyB):
// if a previous axis is cached and it alone still separates the hulls, it
// is reused without running the full face/edge sweep; otherwise a fresh
// satQuery result is computed and cached.
func (c *SatCache) Query(bodyA, bodyB uint32, hA *Hull, tA *lin.T, hB *Hull, tB *lin.T) satResult {
	key := pairKey(bodyA, bodyB)
	entry, ok := c.byKey[key]
	if ok {
		entry.touched = true
		if cached, stillValid := reuseAxis(entry.result, hA, tA, hB, tB); stillValid {
			entry.result = cached
			return cached
		}
	}
	res := satQuery(hA, tA, hB, tB)
	if !ok {
		entry = &satCacheEntry{}
		c.byKey[key] = entry
	}
	entry.result = res
	entry.touched = true
	return res
}

// reuseAxis re-evaluates only the cached axis kind's separation, reporting
// whether it is still a valid (positive, i.e. actually separating, or at
// least not stale) axis to keep reusing.
func reuseAxis(prev satResult, hA *Hull, tA *lin.T, hB *Hull, tB *lin.T) (satResult, bool) {
	switch prev.kind {
	case satAxisFaceA:
		if int(prev.faceIndex) >= len(hA.faces) {
			return satResult{}, false
		}
		localN := hA.faceNormal(prev.faceIndex)
		wx, wy, wz := tA.AppR(localN.X, localN.Y, localN.Z)
		worldN := lin.V3{X: wx, Y: wy, Z: wz}
		e := hA.edges[hA.faces[prev.faceIndex].first]
		planePoint := *tA.App(&hA.vertices[e.origin])
		sep := hB.deepestVertexDistance(tB, worldN, planePoint)
		return satResult{kind: satAxisFaceA, separation: sep, faceIndex: prev.faceIndex}, sep > 0
	case satAxisFaceB:
		if int(prev.faceIndex) >= len(hB.faces) {
			return satResult{}, false
		}
		localN := hB.faceNormal(prev.faceIndex)
		wx, wy, wz := tB.AppR(localN.X, localN.Y, localN.Z)
		worldN := lin.V3{X: wx, Y: wy, Z: wz}
		e := hB.edges[hB.faces[prev.faceIndex].first]
		planePoint := *tB.App(&hB.vertices[e.origin])
		sep := hA.deepestVertexDistance(tA, worldN, planePoint)
		return satResult{kind: satAxisFaceB, separation: sep, faceIndex: prev.faceIndex}, sep > 0
	default:
		// Edge axes shift direction too readily between ticks to cheaply
		// re-validate; fall back to a full query.
		return satResult{}, false
	}
}

// EndTick evicts every cache entry that was not queried this tick (its
// pair is no longer a broadphase overlap).
func (c *SatCache) EndTick() {
	for key, e := range c.byKey {
		if !e.touched {
			delete(c.byKey, key)
		}
	}
}
