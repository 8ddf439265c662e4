// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// contact.go implements the persistent contact database (spec §4.4):
// manifolds keyed by body pair, each point's impulse accumulators kept
// across ticks for warm-starting, and a per-tick touched/persistent
// bit-vector diff so island.go can tell which contacts just broke without
// rescanning the whole database.
//
// Generalizes gazed-vu/physics/contact.go's contactPair/pointOfContact
// (which is rebuilt from scratch every tick) into the persistent structure
// original_source/include/dynamics.h's struct cdb describes
// (contacts_persistent_usage/contacts_frame_usage bit-vectors,
// CONTACT_KEY_TO_BODY_0/1 pair-key scheme); the bit-vector itself is a
// plain []uint64 word array matching original_source's bit_vector.h
// contract, since no bitset library appears anywhere in the example pack.

// contactPoint is one persistent point of a contact manifold: impulse
// accumulators survive across ticks (warm starting), anchors are stored in
// each body's local frame so they track the bodies through motion.
type contactPoint struct {
	localAnchorA lin.V3
	localAnchorB lin.V3
	normal       lin.V3 // world space, points from A to B, refreshed every tick.
	penetration  float64

	normalImpulse    float64
	tangentImpulse   [2]float64 // two friction directions, per spec §4.4.
}

// Contact is the persistent manifold between two bodies.
type Contact struct {
	BodyA, BodyB uint32
	Points       []contactPoint

	tangent1, tangent2 lin.V3 // refreshed each tick from the manifold normal.
}

// bitVector is a dense growable bit array, matching original_source's
// bit_vector.h (word-addressed, grow-on-demand) rather than the Go
// ecosystem's general-purpose bitset libraries (none of which this
// retrieval's pack pulls in).
type bitVector struct{ words []uint64 }

func (bv *bitVector) ensure(bit uint32) {
	need := int(bit/64) + 1
	for len(bv.words) < need {
		bv.words = append(bv.words, 0)
	}
}
func (bv *bitVector) set(bit uint32) {
	bv.ensure(bit)
	bv.words[bit/64] |= 1 << (bit % 64)
}
func (bv *bitVector) clear(bit uint32) {
	if int(bit/64) < len(bv.words) {
		bv.words[bit/64] &^= 1 << (bit % 64)
	}
}
func (bv *bitVector) get(bit uint32) bool {
	if int(bit/64) >= len(bv.words) {
		return false
	}
	return bv.words[bit/64]&(1<<(bit%64)) != 0
}
func (bv *bitVector) clearAll() {
	for i := range bv.words {
		bv.words[i] = 0
	}
}

// ContactDatabase holds every currently-persistent contact, keyed by an
// ordered body-pair key (CONTACT_KEY_TO_BODY_0/1's Go equivalent).
type ContactDatabase struct {
	byKey map[uint64]uint32
	slots []Contact
	free  []uint32

	persistent bitVector // slot i set iff slots[i] is a live contact.
	touched    bitVector // slot i set iff slots[i] was refreshed this tick.
}

// NewContactDatabase returns an empty contact database.
func NewContactDatabase() *ContactDatabase {
	return &ContactDatabase{byKey: map[uint64]uint32{}}
}

func pairKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// BeginTick clears the touched bit-vector; every contact refreshed via
// Upsert during the tick sets its bit, so EndTick can diff
// persistent&^touched for the set that just broke.
func (db *ContactDatabase) BeginTick() { db.touched.clearAll() }

// Upsert refreshes (or creates) the contact between bodyA and bodyB from a
// freshly computed manifold, re-matching each new point against the
// nearest surviving persistent point (by local-anchor distance) to carry
// over its impulse accumulators for warm starting, per spec §4.4.
func (db *ContactDatabase) Upsert(bodyA, bodyB uint32, aTransform, bTransform *lin.T, m Manifold) {
	if len(m.Points) == 0 {
		return
	}
	key := pairKey(bodyA, bodyB)
	idx, ok := db.byKey[key]
	if !ok {
		idx = db.alloc()
		db.slots[idx] = Contact{BodyA: bodyA, BodyB: bodyB}
		db.byKey[key] = idx
		db.persistent.set(idx)
	}
	c := &db.slots[idx]
	db.touched.set(idx)

	newPoints := make([]contactPoint, len(m.Points))
	for i, p := range m.Points {
		localA := *aTransform.Inv(&p.PositionOnA)
		localB := *bTransform.Inv(&p.PositionOnB)
		np := contactPoint{localAnchorA: localA, localAnchorB: localB, normal: p.Normal, penetration: p.Penetration}
		if match := closestPersistentPoint(c.Points, localA); match >= 0 {
			np.normalImpulse = c.Points[match].normalImpulse
			np.tangentImpulse = c.Points[match].tangentImpulse
		}
		newPoints[i] = np
	}
	c.Points = newPoints

	n := m.Points[0].Normal
	c.tangent1, c.tangent2 = tangentBasis(n)
}

func closestPersistentPoint(existing []contactPoint, localA lin.V3) int {
	const maxDistSq = 0.01 * 0.01
	best, bestDistSq := -1, maxDistSq
	for i, p := range existing {
		d := lin.NewV3().Sub(&p.localAnchorA, &localA)
		distSq := d.Dot(d)
		if distSq < bestDistSq {
			bestDistSq = distSq
			best = i
		}
	}
	return best
}

// tangentBasis returns two unit vectors orthogonal to n and to each other,
// used as the solver's two friction axes (spec §4.4's "normal + 2 tangent
// impulse accumulators per point").
func tangentBasis(n lin.V3) (t1, t2 lin.V3) {
	ref := lin.V3{X: 1, Y: 0, Z: 0}
	if n.X > 0.9 || n.X < -0.9 {
		ref = lin.V3{X: 0, Y: 1, Z: 0}
	}
	a := lin.NewV3().Cross(&n, &ref)
	a.Unit()
	b := lin.NewV3().Cross(&n, a)
	b.Unit()
	return *a, *b
}

// EndTick removes every contact whose bit is persistent but not touched
// this tick (the pair no longer overlaps within margin), returning their
// (bodyA,bodyB) pairs so island.go can schedule a split check.
func (db *ContactDatabase) EndTick() []([2]uint32) {
	var broken [][2]uint32
	for key, idx := range db.byKey {
		if db.persistent.get(idx) && !db.touched.get(idx) {
			broken = append(broken, [2]uint32{db.slots[idx].BodyA, db.slots[idx].BodyB})
			db.persistent.clear(idx)
			db.free = append(db.free, idx)
			delete(db.byKey, key)
		}
	}
	return broken
}

func (db *ContactDatabase) alloc() uint32 {
	if n := len(db.free); n > 0 {
		i := db.free[n-1]
		db.free = db.free[:n-1]
		return i
	}
	db.slots = append(db.slots, Contact{})
	return uint32(len(db.slots) - 1)
}

// All returns every currently-live contact, for the solver to build
// constraints from.
func (db *ContactDatabase) All() []*Contact {
	out := make([]*Contact, 0, len(db.byKey))
	for _, idx := range db.byKey {
		out = append(out, &db.slots[idx])
	}
	return out
}

// Get returns the live contact between bodyA and bodyB, or nil.
func (db *ContactDatabase) Get(bodyA, bodyB uint32) *Contact {
	idx, ok := db.byKey[pairKey(bodyA, bodyB)]
	if !ok {
		return nil
	}
	return &db.slots[idx]
}
