// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/gazed/rbcore/lin"

// handles.go implements the string-keyed, reference-counted registries for
// collision shapes and body prefabs described in spec §6. Bodies, contacts
// and SAT cache entries are each addressed by a plain uint32: bodies by
// Pipeline's monotonic nextBody counter (never reused, so a stale handle
// can never alias a different body), and contacts/SAT entries by the pair
// key they're stored under. None of them recycle slot indices the way
// ShapeDatabase/PrefabDatabase's registries never recycle theirs either, so
// there is no slot to alias and nothing for a generation counter to guard.
//
// Grounded on original_source/include/string_database.h's
// reference/dereference/address contract, expressed with Go maps since no
// interning library appears anywhere in the example pack.

// shapeEntry is one reference-counted slot in a ShapeDatabase.
type shapeEntry struct {
	name   string
	shape  *Shape
	refs   int
	inUse  bool
}

// ShapeDatabase is a string-keyed, reference-counted registry of collision
// shapes. Shapes are immutable once registered and outlive any body
// referring to them, per spec §6.
type ShapeDatabase struct {
	byName map[string]uint32
	slots  []shapeEntry
}

// NewShapeDatabase returns an empty shape database.
func NewShapeDatabase() *ShapeDatabase {
	return &ShapeDatabase{byName: map[string]uint32{}}
}

// Register inserts (or re-references, if already present) a shape under
// name and returns its handle.
func (db *ShapeDatabase) Register(name string, shape *Shape) uint32 {
	if i, ok := db.byName[name]; ok {
		db.slots[i].refs++
		return i
	}
	db.slots = append(db.slots, shapeEntry{name: name, shape: shape, refs: 1, inUse: true})
	i := uint32(len(db.slots) - 1)
	db.byName[name] = i
	return i
}

// Reference increments the refcount of an already-registered shape and
// returns its handle; ok is false if name is unknown (a contract
// violation at the call site — body_add with an unknown shape prefab is a
// contract violation per spec §7).
func (db *ShapeDatabase) Reference(name string) (h uint32, ok bool) {
	i, found := db.byName[name]
	if !found {
		return 0, false
	}
	db.slots[i].refs++
	return i, true
}

// Dereference decrements the refcount of h. The shape is not physically
// freed here: shapes are small, immutable, and expected to live for the
// process lifetime once loaded (matching the teacher's own never-free
// shape lifecycle).
func (db *ShapeDatabase) Dereference(h uint32) {
	if int(h) < len(db.slots) && db.slots[h].refs > 0 {
		db.slots[h].refs--
	}
}

// Address returns the shape addressed by h, or nil if h is stale/unknown.
func (db *ShapeDatabase) Address(h uint32) *Shape {
	if int(h) >= len(db.slots) || !db.slots[h].inUse {
		return nil
	}
	return db.slots[h].shape
}

// Prefab carries the reusable preset values for creating new bodies from
// the editor / level file format, per spec §6.
type Prefab struct {
	Name        string
	Shape       uint32 // ShapeDatabase handle.
	Density     float64
	Restitution float64
	Friction    float64
	Dynamic     bool

	// precomputed for this shape+density, filled in by PrefabDatabase.Register.
	Mass          float64
	InvInertia    lin.V3 // diagonal inverse inertia in the shape's local frame.
}

// PrefabDatabase is a string-keyed registry of body prefabs, mirroring
// ShapeDatabase.
type PrefabDatabase struct {
	byName map[string]uint32
	slots  []Prefab
}

// NewPrefabDatabase returns an empty prefab database.
func NewPrefabDatabase() *PrefabDatabase {
	return &PrefabDatabase{byName: map[string]uint32{}}
}

// Register computes mass properties for prefab against shapes and inserts
// it, returning its handle.
func (db *PrefabDatabase) Register(prefab Prefab, shapes *ShapeDatabase) uint32 {
	s := shapes.Address(prefab.Shape)
	if s != nil && prefab.Dynamic {
		prefab.Mass = prefab.Density * s.Volume()
		inertia := s.Inertia(prefab.Density)
		prefab.InvInertia = *lin.NewV3().RecipNz(&inertia)
	}
	db.slots = append(db.slots, prefab)
	i := uint32(len(db.slots) - 1)
	db.byName[prefab.Name] = i
	return i
}

// Reference looks up a prefab by name.
func (db *PrefabDatabase) Reference(name string) (h uint32, ok bool) {
	i, found := db.byName[name]
	return i, found
}

// Address returns the prefab addressed by h, or nil if unknown.
func (db *PrefabDatabase) Address(h uint32) *Prefab {
	if int(h) >= len(db.slots) {
		return nil
	}
	return &db.slots[h]
}
