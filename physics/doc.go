// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package physics is the rigid-body simulation core of a game/level-editor
// runtime. It composes five subsystems — a dynamic bounding-volume hierarchy
// for broadphase, a shape-pair narrowphase with per-pair SAT caches, a
// persistent contact database, a persistent island (connectivity) database,
// and an iterative sequential-impulse velocity solver — into a single
// pipeline that advances a fixed timestep and emits a stream of lifecycle
// events.
//
// Package physics generalizes the once-per-frame, recompute-everything
// design ported from https://github.com/felipeek/raw-physics (see body.go,
// broad.go, gjk.go, epa.go, contact.go, solver.go) into a persistent,
// incrementally-maintained simulation: contacts and islands survive across
// ticks, SAT results are cached and warm-restarted, and bodies sleep when
// undisturbed.
//
//	pipeline.go  : per-tick orchestration (removal, refit, overlap,
//	               narrowphase, diff, merge/split, solve, events)
//	bvh.go       : dynamic AABB tree broadphase and raycasts
//	gjk.go/epa.go/sat.go/clipping.go/collide.go : narrowphase
//	shape.go/dcel.go/massprops.go : collision shapes and mass properties
//	body.go      : rigid bodies and shape instances
//	contact.go/satcache.go : persistent contact + SAT-cache database
//	island.go    : persistent connectivity components
//	solver.go/blocksolver.go : sequential-impulse velocity solver
//	events.go    : lifecycle event stream
//	pool.go      : worker pool used for narrowphase and per-island solve
//	config.go/errors.go/handles.go : ambient config, errors, pools
package physics
