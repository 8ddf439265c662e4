// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrResourceExhausted is returned when a pool (bodies, shapes, events,
// worker arenas) cannot grow any further. The pipeline treats this as
// fail-fast: a partial tick would leave every cross-subsystem invariant
// (island partition, contact bijection, BVH containment) violated, so
// there is no recoverable path once it fires.
var ErrResourceExhausted = errors.New("physics: resource exhausted")

// fatal logs a resource-exhaustion condition and terminates the process.
// Called only from pipeline ingress paths, never from within a tick once
// bookkeeping has begun, so no step ever observes a half-completed pool
// growth.
func (p *Pipeline) fatal(msg string, args ...any) {
	p.logger().Error(msg, args...)
	os.Exit(1)
}

// assertInvariant panics with a dump when cond is false and Config.Debug is
// set. Used for the invariant families spec'd for this layer: island
// partition, contact bijection, BVH containment. Input sanitization is the
// caller's responsibility elsewhere in this package — this function exists
// only to catch contract violations inside the core's own bookkeeping.
func (p *Pipeline) assertInvariant(cond bool, format string, args ...any) {
	if !p.cfg.Debug || cond {
		return
	}
	panic(fmt.Sprintf("physics: contract violation: "+format, args...))
}

// NoHit is the sentinel body handle returned by raycasts and lookups that
// find nothing.
const NoHit uint32 = ^uint32(0)

func (p *Pipeline) logger() *slog.Logger {
	if p.cfg.Logger != nil {
		return p.cfg.Logger
	}
	return slog.Default()
}
