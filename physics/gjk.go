// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"log/slog"

	"github.com/gazed/rbcore/lin"
)

// gjk.go implements the GJK distance/intersection algorithm used as the
// first stage of every convex-vs-convex narrowphase query (spec §4.2).
// Grounded directly on gazed-vu/physics/gjk.go: the simplex type and the
// four do_simplex_N region tests are carried over verbatim (the algorithm
// is untouched by the domain change), with support_point generalized from
// a *collider tagged union to *Shape/*lin.T so it also covers capsules
// (a primitive the teacher's collider never had).

// worldSupport returns the world-space support point of shape s (posed by
// t) along world-space direction dir.
func worldSupport(s *Shape, t *lin.T, dir lin.V3) lin.V3 {
	qInv := lin.Q{X: -t.Rot.X, Y: -t.Rot.Y, Z: -t.Rot.Z, W: t.Rot.W}
	lx, ly, lz := lin.MultSQ(dir.X, dir.Y, dir.Z, &qInv)
	p := s.support(lin.V3{X: lx, Y: ly, Z: lz})
	return *t.App(&p)
}

// supportOfMinkowskiDifference returns the Minkowski-difference support
// point of (s1,t1) - (s2,t2) along dir.
func supportOfMinkowskiDifference(s1 *Shape, t1 *lin.T, s2 *Shape, t2 *lin.T, dir lin.V3) lin.V3 {
	p1 := worldSupport(s1, t1, dir)
	neg := lin.V3{X: -dir.X, Y: -dir.Y, Z: -dir.Z}
	p2 := worldSupport(s2, t2, neg)
	return lin.V3{X: p1.X - p2.X, Y: p1.Y - p2.Y, Z: p1.Z - p2.Z}
}

// gjkSimplex is the up-to-4-point simplex GJK maintains while searching for
// the origin inside the Minkowski difference.
type gjkSimplex struct {
	a, b, c, d lin.V3
	num        uint32
}

func addToSimplex(s *gjkSimplex, point lin.V3) {
	switch s.num {
	case 1:
		s.b = s.a
		s.a = point
	case 2:
		s.c = s.b
		s.b = s.a
		s.a = point
	case 3:
		s.d = s.c
		s.c = s.b
		s.b = s.a
		s.a = point
	default:
		slog.Error("gjk: addToSimplex called on a full simplex")
	}
	s.num++
}

func tripleCross(a, b, c lin.V3) lin.V3 {
	tc := lin.NewV3().Cross(&a, &b)
	tc.Cross(tc, &c)
	return *tc
}

func doSimplex2(s *gjkSimplex, direction *lin.V3) bool {
	a, b := s.a, s.b
	ao := lin.NewV3().Neg(&a)
	ab := lin.NewV3().Sub(&b, &a)
	if ab.Dot(ao) >= 0.0 {
		s.num = 2
		*direction = tripleCross(*ab, *ao, *ab)
	} else {
		s.a = a
		s.num = 1
		*direction = *ao
	}
	return false
}

func doSimplex3(s *gjkSimplex, direction *lin.V3) bool {
	a, b, c := s.a, s.b, s.c
	ao := lin.NewV3().Neg(&a)
	ab := lin.NewV3().Sub(&b, &a)
	ac := lin.NewV3().Sub(&c, &a)
	abc := lin.NewV3().Cross(ab, ac)

	if lin.NewV3().Cross(abc, ac).Dot(ao) >= 0.0 {
		if ac.Dot(ao) >= 0.0 {
			s.a, s.b = a, c
			s.num = 2
			*direction = tripleCross(*ac, *ao, *ac)
		} else {
			s.a, s.b = a, b
			s.num = 2
			return doSimplex2(s, direction)
		}
	} else if lin.NewV3().Cross(ab, abc).Dot(ao) >= 0.0 {
		s.a, s.b = a, b
		s.num = 2
		return doSimplex2(s, direction)
	} else {
		if abc.Dot(ao) >= 0.0 {
			s.a, s.b, s.c = a, b, c
			*direction = *abc
		} else {
			s.a, s.b, s.c = a, c, b
			*direction = *lin.NewV3().Neg(abc)
		}
		s.num = 3
	}
	return false
}

func doSimplex4(s *gjkSimplex, direction *lin.V3) bool {
	a, b, c, d := s.a, s.b, s.c, s.d
	ao := lin.NewV3().Neg(&a)
	ab := lin.NewV3().Sub(&b, &a)
	ac := lin.NewV3().Sub(&c, &a)
	ad := lin.NewV3().Sub(&d, &a)

	abc := lin.NewV3().Cross(ab, ac)
	acd := lin.NewV3().Cross(ac, ad)
	adb := lin.NewV3().Cross(ad, ab)

	if abc.Dot(ao) > 0.0 {
		s.a, s.b, s.c = a, b, c
		s.num = 3
		return doSimplex3(s, direction)
	}
	if acd.Dot(ao) > 0.0 {
		s.a, s.b, s.c = a, c, d
		s.num = 3
		return doSimplex3(s, direction)
	}
	if adb.Dot(ao) > 0.0 {
		s.a, s.b, s.c = a, d, b
		s.num = 3
		return doSimplex3(s, direction)
	}
	return true // origin is inside the tetrahedron.
}

func doSimplex(s *gjkSimplex, direction *lin.V3) bool {
	switch s.num {
	case 2:
		return doSimplex2(s, direction)
	case 3:
		return doSimplex3(s, direction)
	case 4:
		return doSimplex4(s, direction)
	}
	return false
}

// gjkIntersect reports whether (s1,t1) and (s2,t2) overlap, filling outSimplex
// with the terminating tetrahedron on a hit (needed as EPA's starting polytope).
func gjkIntersect(s1 *Shape, t1 *lin.T, s2 *Shape, t2 *lin.T, outSimplex *gjkSimplex) bool {
	var simplex gjkSimplex
	simplex.a = supportOfMinkowskiDifference(s1, t1, s2, t2, lin.V3{X: 0, Y: 0, Z: 1})
	simplex.num = 1
	direction := lin.NewV3().Scale(&simplex.a, -1.0)

	for i := 0; i < 100; i++ {
		next := supportOfMinkowskiDifference(s1, t1, s2, t2, *direction)
		if next.Dot(direction) < 0.0 {
			return false
		}
		addToSimplex(&simplex, next)
		if doSimplex(&simplex, direction) {
			if outSimplex != nil {
				*outSimplex = simplex
			}
			return true
		}
	}
	return false
}
