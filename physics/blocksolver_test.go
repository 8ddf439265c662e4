// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "testing"

func TestBlockSolveDiagonalSystem(t *testing.T) {
	a := [][]float64{
		{2, 0},
		{0, 4},
	}
	b := []float64{4, 8}
	x, ok := blockSolve(a, b, 1e4)
	if !ok {
		t.Fatal("expected a diagonal, well-conditioned system to solve")
	}
	if x[0] < 1.99 || x[0] > 2.01 || x[1] < 1.99 || x[1] > 2.01 {
		t.Errorf("expected x ~= [2 2], got %v", x)
	}
}

func TestBlockSolveRejectsNegativeImpulse(t *testing.T) {
	a := [][]float64{
		{1, 0},
		{0, 1},
	}
	b := []float64{-1, 2}
	_, ok := blockSolve(a, b, 1e4)
	if ok {
		t.Error("expected a negative solved impulse to reject the block solve")
	}
}

func TestBlockSolveRejectsIllConditioned(t *testing.T) {
	a := [][]float64{
		{1, 0},
		{0, 1e8},
	}
	b := []float64{1, 1}
	_, ok := blockSolve(a, b, 1e4)
	if ok {
		t.Error("expected a condition number above the limit to reject the block solve")
	}
}

func TestBlockSolveRejectsSingular(t *testing.T) {
	a := [][]float64{
		{1, 1},
		{1, 1},
	}
	b := []float64{2, 2}
	_, ok := blockSolve(a, b, 1e4)
	if ok {
		t.Error("expected a singular matrix to reject the block solve")
	}
}

func TestBlockSolveRejectsOversizedSystem(t *testing.T) {
	a := make([][]float64, 5)
	b := make([]float64, 5)
	for i := range a {
		a[i] = make([]float64, 5)
		a[i][i] = 1
		b[i] = 1
	}
	if _, ok := blockSolve(a, b, 1e4); ok {
		t.Error("expected blockSolve to refuse systems larger than 4x4")
	}
}
