// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "math"

// blocksolver.go implements the direct block solve for a contact's normal
// impulses (spec §4.6): rather than resolving each of a manifold's 2-4
// points one at a time (solver.go's sequential pass, which can take many
// iterations to converge when points are strongly coupled through a shared
// rigid body), solve the small dense linear system for all of a contact's
// normal impulses at once. No repo in the example pack needs a linear
// solver above 4x4 (lin/matrix.go's M3/M4 only ever special-case their own
// fixed sizes), so this is new code, written the way that package writes
// its own fixed-form inverses: plain Gauss elimination with partial
// pivoting, no external matrix library.
//
// Box2D's b2ContactSolver block solver is the model this follows: solve
// the unclamped system, and if any resulting impulse is negative (would
// require pulling the bodies together rather than pushing apart), reject
// the block solve entirely and let the caller fall back to the sequential
// per-point pass, which enforces the non-negativity constraint by
// clamping every iteration.

// blockSolve attempts to solve the n x n system A*x = b for x, where A is
// the effective-mass coupling matrix between a contact's n <= 4 normal
// constraints and b is the desired velocity-error vector computed by the
// caller. It reports ok=false (the caller should fall back to sequential
// impulse) when:
//   - n would make A singular or numerically unreliable (condition number
//     estimate above cfg.MaxCondition), or
//   - any solved impulse comes out negative.
func blockSolve(a [][]float64, b []float64, maxCondition float64) (x []float64, ok bool) {
	n := len(b)
	if n == 0 || n > 4 {
		return nil, false
	}

	// Copy into an augmented matrix for in-place elimination.
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, n+1)
		copy(aug[i], a[i])
		aug[i][n] = b[i]
	}

	maxPivot, minPivot := 0.0, math.MaxFloat64

	for col := 0; col < n; col++ {
		pivotRow := col
		pivotVal := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r][col]); v > pivotVal {
				pivotVal = v
				pivotRow = r
			}
		}
		if pivotVal < 1e-12 {
			return nil, false // singular.
		}
		if pivotVal > maxPivot {
			maxPivot = pivotVal
		}
		if pivotVal < minPivot {
			minPivot = pivotVal
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		for r := col + 1; r < n; r++ {
			factor := aug[r][col] / aug[col][col]
			for c := col; c <= n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	if minPivot <= 0 || maxPivot/minPivot > maxCondition {
		return nil, false // ill-conditioned; sequential impulse is more robust here.
	}

	x = make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := aug[r][n]
		for c := r + 1; c < n; c++ {
			sum -= aug[r][c] * x[c]
		}
		x[r] = sum / aug[r][r]
		if x[r] < 0 {
			return nil, false // would require a pulling (non-physical) impulse.
		}
	}
	return x, true
}

// buildNormalSystem assembles the effective-mass matrix and velocity-error
// vector for every normal constraint of a single Contact, coupling point i
// and point j through the shared bodies' inverse mass and inertia — the
// same jacDiagABInv-style cross terms setupContactConstraint computes for
// the diagonal, generalized off-diagonal.
func buildNormalSystem(cs []*solverConstraint) (a [][]float64, b []float64) {
	n := len(cs)
	a = make([][]float64, n)
	b = make([]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
	}
	for i, ci := range cs {
		for j, cj := range cs {
			a[i][j] = effectiveMass(ci, cj)
		}
		b[i] = ci.rhs
	}
	return a, b
}

// effectiveMass returns how much a unit impulse along constraint cj's
// normal changes the relative velocity along constraint ci's normal,
// through whichever body the two constraints share.
func effectiveMass(ci, cj *solverConstraint) float64 {
	var sum float64
	if ci.sbodA == cj.sbodA {
		sum += ci.sbodA.invMass + ci.normal.Dot(&cj.angularComponentA)
	} else if ci.sbodA == cj.sbodB {
		sum -= ci.sbodA.invMass + ci.normal.Dot(&cj.angularComponentB)
	}
	if ci.sbodB == cj.sbodA {
		sum -= ci.sbodB.invMass + ci.relpos2CrossNormal.Dot(&cj.angularComponentA)
	} else if ci.sbodB == cj.sbodB {
		sum += ci.sbodB.invMass + ci.relpos2CrossNormal.Dot(&cj.angularComponentB)
	}
	if ci == cj {
		return 1.0 / ci.jacDiagABInv
	}
	return sum
}
