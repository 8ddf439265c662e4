// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"log/slog"

	"github.com/gazed/rbcore/lin"
)

// Config holds the hot-reloadable tunables for a Pipeline. Changes made
// through Pipeline.Configure take effect at the start of the next tick
// (pipeline.go step 2), never mid-tick.
//
// Follows the teacher's solverInfo/newSolverInfo pattern: a plain struct
// with a constructor supplying defaults, no reflection-based flags/config
// library. No repo in the example pack reaches for one of those for an
// in-process tunable set this small.
type Config struct {
	IterationCount int  // solver velocity-iteration passes. Default 10.
	BlockSolver    bool // enable block solve for 2-/3-/4-point manifolds.
	WarmupSolver   bool // apply cached impulses before iterating.

	Gravity lin.V3 // world-frame acceleration applied to dynamic bodies.

	BaumgarteConstant    float64 // β ∈ [0,1]. Default 0.1.
	MaxCondition         float64 // block-solve condition-number fallback threshold.
	LinearDampening      float64
	AngularDampening     float64
	LinearSlop           float64 // penetration tolerance below which Baumgarte is skipped.
	RestitutionThreshold float64 // approach speed above which restitution is applied.

	SleepEnabled                bool
	SleepTimeThreshold           float64 // seconds of low velocity before TRY_SLEEP.
	SleepLinearVelocitySqLimit  float64
	SleepAngularVelocitySqLimit float64

	Debug bool // enables debug-only invariant assertions and segment capture.

	Logger *slog.Logger // optional override; defaults to slog.Default().
}

// DefaultConfig returns the configuration defaults named in the external
// interface contract.
func DefaultConfig() Config {
	return Config{
		IterationCount: 10,
		BlockSolver:    true,
		WarmupSolver:   true,

		Gravity: lin.V3{X: 0, Y: -9.80665, Z: 0},

		BaumgarteConstant:    0.1,
		MaxCondition:         1e4,
		LinearDampening:      0,
		AngularDampening:     0,
		LinearSlop:           1e-3,
		RestitutionThreshold: 1.0,

		SleepEnabled:                true,
		SleepTimeThreshold:           0.5,
		SleepLinearVelocitySqLimit:  1e-6,
		SleepAngularVelocitySqLimit: (0.01 * lin.PIx2) * (0.01 * lin.PIx2),
	}
}
