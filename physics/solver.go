// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.
//
// solver.go is a direct generalization of the teacher's
//     gazed-vu/physics/solver.go
// itself a scaled-down golang port of Bullet's
//     bullet-2.81-rev2613/src/.../btSequentialImpulseConstraintSolver.(cpp/h)
//
//    Bullet Continuous Collision Detection and Physics Library
//    Copyright (c) 2003-2006 Erwin Coumans  http://continuousphysics.com/Bullet/
//
//    This software is provided 'as-is', without any express or implied warranty.
//    In no event will the authors be held liable for any damages arising from the use of this software.
//    Permission is granted to anyone to use this software for any purpose,
//    including commercial applications, and to alter it and redistribute it freely,
//    subject to the following restrictions:
//
//    1. The origin of this software must not be misrepresented; you must not claim that you wrote the original software.
//       If you use this software in a product, an acknowledgment in the product documentation would be appreciated but is not required.
//    2. Altered source versions must be plainly marked as such, and must not be misrepresented as being the original software.
//    3. This notice may not be removed or altered from any source distribution.

package physics

import "github.com/gazed/rbcore/lin"

// The teacher solves one global system every tick (solve(bodies,
// contactPairs) iterates a plain map of every body and every contact in
// the world). Here the solver runs once per awake island (spec §4.5/§4.6):
// Solve takes just the bodies and contacts that belong to a single
// island, so islands can eventually be solved independently (and, per
// pool.go, concurrently). The per-point friction model is generalized from
// the teacher's single lateral friction direction to the two tangent
// directions spec §4.4/§4.6 specifies (solverConstraint gains a second
// friction row; tangentBasis in contact.go supplies the pair of axes).

// solverBody is the solve-local accumulator for one dynamic body's
// velocity corrections: deltaLinearVelocity/deltaAngularVelocity accumulate
// every constraint's contribution before being folded back into the real
// Body at the end of the solve (the teacher's solverBody, unchanged in
// shape). pushVelocity/turnVelocity hold the split-impulse penetration
// correction, applied to position only, never to the velocity the next
// tick's restitution sees.
type solverBody struct {
	body *Body

	linearVelocity, angularVelocity           lin.V3 // copy of body's velocity at solve start.
	deltaLinearVelocity, deltaAngularVelocity lin.V3

	pushVelocity, turnVelocity lin.V3

	invMass  float64
	invInertiaWorld lin.M3
}

func newSolverBody(b *Body) *solverBody {
	lv, av := b.Velocity()
	sb := &solverBody{body: b, linearVelocity: lv, angularVelocity: av}
	if b.IsDynamic() {
		sb.invMass = b.imass
		sb.invInertiaWorld = b.invInertiaWorld
	}
	return sb
}

func (sb *solverBody) velocityAtPoint(rel lin.V3) lin.V3 {
	lv := lin.V3{X: sb.linearVelocity.X + sb.deltaLinearVelocity.X, Y: sb.linearVelocity.Y + sb.deltaLinearVelocity.Y, Z: sb.linearVelocity.Z + sb.deltaLinearVelocity.Z}
	av := lin.V3{X: sb.angularVelocity.X + sb.deltaAngularVelocity.X, Y: sb.angularVelocity.Y + sb.deltaAngularVelocity.Y, Z: sb.angularVelocity.Z + sb.deltaAngularVelocity.Z}
	cross := lin.NewV3().Cross(&av, &rel)
	return lin.V3{X: lv.X + cross.X, Y: lv.Y + cross.Y, Z: lv.Z + cross.Z}
}

func (sb *solverBody) applyImpulse(linear lin.V3, angular lin.V3, impulse float64) {
	sb.deltaLinearVelocity.X += linear.X * impulse
	sb.deltaLinearVelocity.Y += linear.Y * impulse
	sb.deltaLinearVelocity.Z += linear.Z * impulse
	sb.deltaAngularVelocity.X += angular.X * impulse
	sb.deltaAngularVelocity.Y += angular.Y * impulse
	sb.deltaAngularVelocity.Z += angular.Z * impulse
}

func (sb *solverBody) applyPushImpulse(linear lin.V3, angular lin.V3, impulse float64) {
	sb.pushVelocity.X += linear.X * impulse
	sb.pushVelocity.Y += linear.Y * impulse
	sb.pushVelocity.Z += linear.Z * impulse
	sb.turnVelocity.X += angular.X * impulse
	sb.turnVelocity.Y += angular.Y * impulse
	sb.turnVelocity.Z += angular.Z * impulse
}

// solverConstraint is one scalar row of the system: either a contact's
// normal constraint or one of its two friction constraints.
type solverConstraint struct {
	sbodA, sbodB *solverBody

	normal             lin.V3
	relpos1CrossNormal lin.V3
	relpos2CrossNormal lin.V3
	angularComponentA  lin.V3
	angularComponentB  lin.V3

	jacDiagABInv float64
	friction     float64

	appliedImpulse     float64
	appliedPushImpulse float64

	rhs            float64
	rhsPenetration float64
	cfm            float64
	lowerLimit     float64
	upperLimit     float64

	frictionIndex *solverConstraint // for a friction row, the normal row it is clamped against.

	point       *contactPoint // the contact point this row belongs to.
	tangentSlot int           // -1 for the normal row, 0/1 for tangent1/tangent2.
}

// solverInfo mirrors the teacher's solverInfo: the fixed per-tick knobs
// every constraint setup and iteration reads, derived once from Config.
type solverInfo struct {
	numIterations int
	timestep      float64

	erp                          float64
	erp2                         float64
	splitImpulseTurnErp          float64
	linearSlop                   float64
	warmstartingFactor           float64
	splitImpulsePenetrationLimit float64
	splitImpulse                 bool
	restitutionThreshold         float64
}

func newSolverInfo(cfg *Config, dt float64) *solverInfo {
	return &solverInfo{
		numIterations:                cfg.IterationCount,
		timestep:                     dt,
		erp:                          cfg.BaumgarteConstant,
		erp2:                         0.2,
		splitImpulseTurnErp:          0.1,
		linearSlop:                   cfg.LinearSlop,
		warmstartingFactor:           1.0,
		splitImpulsePenetrationLimit: -0.04,
		splitImpulse:                 true,
		restitutionThreshold:         cfg.RestitutionThreshold,
	}
}

// Solver holds the scratch state for one island's sequential-impulse
// solve; reused across ticks the way the teacher's solver struct is, so
// repeated solves do not reallocate the constraint slices each time.
type Solver struct {
	info   *solverInfo
	bodies map[uint32]*solverBody
	constC []*solverConstraint
	constF []*solverConstraint
}

// NewSolver returns an empty, reusable Solver.
func NewSolver() *Solver { return &Solver{bodies: map[uint32]*solverBody{}} }

// Solve runs cfg.IterationCount sequential-impulse
// passes over every contact touching the given set of bodies (an awake
// island's members), warm-starting from each Contact's persisted impulse
// accumulators and writing the solved velocities (and, under split
// impulse, a small positional correction) back into the Bodies.
func (s *Solver) Solve(handles []uint32, bodyOf map[uint32]*Body, contacts []*Contact, cfg *Config, dt float64) {
	s.info = newSolverInfo(cfg, dt)
	for k := range s.bodies {
		delete(s.bodies, k)
	}
	s.constC = s.constC[:0]
	s.constF = s.constF[:0]

	for _, h := range handles {
		b := bodyOf[h]
		if b == nil {
			continue
		}
		sb := newSolverBody(b)
		s.bodies[h] = sb
	}

	for _, c := range contacts {
		sbA, okA := s.bodies[c.BodyA]
		sbB, okB := s.bodies[c.BodyB]
		if !okA {
			sbA = newSolverBody(bodyOf[c.BodyA])
		}
		if !okB {
			sbB = newSolverBody(bodyOf[c.BodyB])
		}
		s.convertContact(c, sbA, sbB, cfg)
	}

	s.solveIterations()
	s.finish(bodyOf, dt)
}

func (s *Solver) convertContact(c *Contact, sbA, sbB *solverBody, cfg *Config) {
	contactRows := make([]*solverConstraint, 0, len(c.Points))
	for i := range c.Points {
		p := &c.Points[i]
		worldTA := sbA.body.World()
		worldTB := sbB.body.World()
		localA, localB := p.localAnchorA, p.localAnchorB
		worldA := worldTA.App(&localA)
		worldB := worldTB.App(&localB)

		relA := lin.NewV3().Sub(worldA, worldTA.Loc)
		relB := lin.NewV3().Sub(worldB, worldTB.Loc)

		ccon := &solverConstraint{point: p, tangentSlot: -1}
		rvel := s.setupContactConstraint(ccon, sbA, sbB, p, *relA, *relB)
		s.constC = append(s.constC, ccon)
		contactRows = append(contactRows, ccon)

		for slot, tangent := range []lin.V3{c.tangent1, c.tangent2} {
			fcon := &solverConstraint{frictionIndex: ccon, point: p, tangentSlot: slot}
			s.setupFrictionConstraint(fcon, tangent, sbA, sbB, p, *relA, *relB)
			fcon.appliedImpulse = p.tangentImpulse[slot] * s.info.warmstartingFactor
			linA := lin.NewV3().Scale(&tangent, sbA.invMass)
			sbA.applyImpulse(*linA, fcon.angularComponentA, fcon.appliedImpulse)
			linB := lin.NewV3().Scale(&tangent, -sbB.invMass)
			sbB.applyImpulse(*linB, fcon.angularComponentB, fcon.appliedImpulse)
			s.constF = append(s.constF, fcon)
		}
		_ = rvel
	}

	if cfg.BlockSolver && len(contactRows) >= 2 && len(contactRows) <= 4 {
		s.applyBlockSolve(contactRows, cfg.MaxCondition)
	}
}

// applyBlockSolve attempts to resolve all of a single contact's normal
// constraints in one direct solve (blocksolver.go) rather than letting the
// sequential pass converge to them iteration by iteration. On success,
// each row's delta from its warm-started impulse is applied immediately
// and appliedImpulse is overwritten so the later sequential pass treats
// the block-solved value as its starting point instead of re-deriving it
// from scratch (it still runs over these rows, but converges in ~0 extra
// iterations since the block solve already satisfies the system).
func (s *Solver) applyBlockSolve(rows []*solverConstraint, maxCondition float64) {
	a, b := buildNormalSystem(rows)
	x, ok := blockSolve(a, b, maxCondition)
	if !ok {
		return
	}
	for i, sc := range rows {
		delta := x[i] - sc.appliedImpulse
		sc.appliedImpulse = x[i]
		linA := lin.NewV3().Scale(&sc.normal, sc.sbodA.invMass)
		sc.sbodA.applyImpulse(*linA, sc.angularComponentA, delta)
		negN := lin.V3{X: -sc.normal.X, Y: -sc.normal.Y, Z: -sc.normal.Z}
		linB := lin.NewV3().Scale(&negN, sc.sbodB.invMass)
		sc.sbodB.applyImpulse(*linB, sc.angularComponentB, delta)
	}
}

func (s *Solver) setupContactConstraint(sc *solverConstraint, sbA, sbB *solverBody, p *contactPoint, relA, relB lin.V3) float64 {
	sc.sbodA, sc.sbodB = sbA, sbB
	n := lin.V3{X: -p.normal.X, Y: -p.normal.Y, Z: -p.normal.Z} // p.normal points A to B; the rows below push A along n.

	torqueA := lin.NewV3().Cross(&relA, &n)
	sc.angularComponentA = *lin.NewV3().MultMv(&sbA.invInertiaWorld, torqueA)
	negN := lin.V3{X: -n.X, Y: -n.Y, Z: -n.Z}
	torqueB := lin.NewV3().Cross(&relB, &negN)
	sc.angularComponentB = *lin.NewV3().MultMv(&sbB.invInertiaWorld, torqueB)

	vecA := lin.NewV3().Cross(&sc.angularComponentA, &relA)
	denomA := sbA.invMass + n.Dot(vecA)
	negAngB := lin.V3{X: -sc.angularComponentB.X, Y: -sc.angularComponentB.Y, Z: -sc.angularComponentB.Z}
	vecB := lin.NewV3().Cross(&negAngB, &relB)
	denomB := sbB.invMass + n.Dot(vecB)
	sc.jacDiagABInv = 1.0 / (denomA + denomB)

	sc.normal = n
	sc.relpos1CrossNormal = *torqueA
	sc.relpos2CrossNormal = *torqueB

	penetration := -p.penetration + s.info.linearSlop

	vA := sbA.velocityAtPoint(relA)
	vB := sbB.velocityAtPoint(relB)
	relVel := lin.NewV3().Sub(&vA, &vB)
	relativeVelocity := n.Dot(relVel)

	restitution := sbA.body.restitution
	if sbB.body.restitution > restitution {
		restitution = sbB.body.restitution
	}
	var restitutionTerm float64
	if -relativeVelocity > s.info.restitutionThreshold {
		restitutionTerm = restitution * -relativeVelocity
	}

	vel1Dotn := n.Dot(&sbA.linearVelocity) + sc.relpos1CrossNormal.Dot(&sbA.angularVelocity)
	negN2 := lin.V3{X: -n.X, Y: -n.Y, Z: -n.Z}
	vel2Dotn := negN2.Dot(&sbB.linearVelocity) + sc.relpos2CrossNormal.Dot(&sbB.angularVelocity)
	velocityError := restitutionTerm - (vel1Dotn + vel2Dotn)

	erp := s.info.erp2
	if !s.info.splitImpulse || penetration > s.info.splitImpulsePenetrationLimit {
		erp = s.info.erp
	}
	var positionalError float64
	if penetration > 0 {
		velocityError -= penetration / s.info.timestep
	} else {
		positionalError = -penetration * erp / s.info.timestep
	}
	penetrationImpulse := positionalError * sc.jacDiagABInv
	velocityImpulse := velocityError * sc.jacDiagABInv

	if !s.info.splitImpulse || penetration > s.info.splitImpulsePenetrationLimit {
		sc.rhs = penetrationImpulse + velocityImpulse
		sc.rhsPenetration = 0
	} else {
		sc.rhs = velocityImpulse
		sc.rhsPenetration = penetrationImpulse
	}

	sc.friction = (sbA.body.friction + sbB.body.friction) * 0.5
	sc.appliedImpulse = p.normalImpulse * s.info.warmstartingFactor
	linA := lin.NewV3().Scale(&n, sbA.invMass)
	sbA.applyImpulse(*linA, sc.angularComponentA, sc.appliedImpulse)
	linB := lin.NewV3().Scale(&n, -sbB.invMass)
	sbB.applyImpulse(*linB, sc.angularComponentB, sc.appliedImpulse)

	sc.lowerLimit = 0
	sc.upperLimit = 1e10
	return relativeVelocity
}

func (s *Solver) setupFrictionConstraint(sc *solverConstraint, tangent lin.V3, sbA, sbB *solverBody, p *contactPoint, relA, relB lin.V3) {
	sc.sbodA, sc.sbodB = sbA, sbB
	sc.normal = tangent

	torqueA := lin.NewV3().Cross(&relA, &tangent)
	sc.angularComponentA = *lin.NewV3().MultMv(&sbA.invInertiaWorld, torqueA)
	negT := lin.V3{X: -tangent.X, Y: -tangent.Y, Z: -tangent.Z}
	torqueB := lin.NewV3().Cross(&relB, &negT)
	sc.angularComponentB = *lin.NewV3().MultMv(&sbB.invInertiaWorld, torqueB)
	sc.relpos1CrossNormal = *torqueA
	sc.relpos2CrossNormal = *torqueB

	vecA := lin.NewV3().Cross(&sc.angularComponentA, &relA)
	denomA := sbA.invMass + tangent.Dot(vecA)
	negAngB := lin.V3{X: -sc.angularComponentB.X, Y: -sc.angularComponentB.Y, Z: -sc.angularComponentB.Z}
	vecB := lin.NewV3().Cross(&negAngB, &relB)
	denomB := sbB.invMass + tangent.Dot(vecB)
	sc.jacDiagABInv = 1.0 / (denomA + denomB)

	vel1Dotn := tangent.Dot(&sbA.linearVelocity) + sc.relpos1CrossNormal.Dot(&sbA.angularVelocity)
	negT2 := lin.V3{X: -tangent.X, Y: -tangent.Y, Z: -tangent.Z}
	vel2Dotn := negT2.Dot(&sbB.linearVelocity) + sc.relpos2CrossNormal.Dot(&sbB.angularVelocity)
	velocityError := -(vel1Dotn + vel2Dotn)
	sc.rhs = velocityError * sc.jacDiagABInv
	sc.lowerLimit = 0
	sc.upperLimit = 1e10
}

func (s *Solver) solveIterations() {
	if s.info.splitImpulse {
		for i := 0; i < s.info.numIterations; i++ {
			for _, sc := range s.constC {
				s.resolveSplitPenetration(sc)
			}
		}
	}
	for i := 0; i < s.info.numIterations; i++ {
		for _, sc := range s.constC {
			s.resolveSingleConstraint(sc, true)
		}
		for _, sc := range s.constF {
			total := sc.frictionIndex.appliedImpulse
			if total > 0 {
				sc.lowerLimit = -(sc.friction * total)
				sc.upperLimit = sc.friction * total
				s.resolveSingleConstraint(sc, false)
			}
		}
	}
}

func (s *Solver) resolveSingleConstraint(sc *solverConstraint, doUpper bool) {
	deltaImpulse := sc.rhs - sc.appliedImpulse*sc.cfm
	negN := lin.V3{X: -sc.normal.X, Y: -sc.normal.Y, Z: -sc.normal.Z}
	dv1 := sc.normal.Dot(&sc.sbodA.deltaLinearVelocity) + sc.relpos1CrossNormal.Dot(&sc.sbodA.deltaAngularVelocity)
	dv2 := negN.Dot(&sc.sbodB.deltaLinearVelocity) + sc.relpos2CrossNormal.Dot(&sc.sbodB.deltaAngularVelocity)
	deltaImpulse -= dv1 * sc.jacDiagABInv
	deltaImpulse -= dv2 * sc.jacDiagABInv

	sum := sc.appliedImpulse + deltaImpulse
	switch {
	case sum < sc.lowerLimit:
		deltaImpulse = sc.lowerLimit - sc.appliedImpulse
		sc.appliedImpulse = sc.lowerLimit
	case doUpper && sum > sc.upperLimit:
		deltaImpulse = sc.upperLimit - sc.appliedImpulse
		sc.appliedImpulse = sc.upperLimit
	default:
		sc.appliedImpulse = sum
	}

	linA := lin.NewV3().Scale(&sc.normal, sc.sbodA.invMass)
	sc.sbodA.applyImpulse(*linA, sc.angularComponentA, deltaImpulse)
	linB := lin.NewV3().Scale(&negN, sc.sbodB.invMass)
	sc.sbodB.applyImpulse(*linB, sc.angularComponentB, deltaImpulse)
}

func (s *Solver) resolveSplitPenetration(sc *solverConstraint) {
	if sc.rhsPenetration == 0 {
		return
	}
	deltaImpulse := sc.rhsPenetration - sc.appliedPushImpulse*sc.cfm
	negN := lin.V3{X: -sc.normal.X, Y: -sc.normal.Y, Z: -sc.normal.Z}
	dv1 := sc.normal.Dot(&sc.sbodA.pushVelocity) + sc.relpos1CrossNormal.Dot(&sc.sbodA.turnVelocity)
	dv2 := negN.Dot(&sc.sbodB.pushVelocity) + sc.relpos2CrossNormal.Dot(&sc.sbodB.turnVelocity)
	deltaImpulse -= dv1 * sc.jacDiagABInv
	deltaImpulse -= dv2 * sc.jacDiagABInv

	sum := sc.appliedPushImpulse + deltaImpulse
	if sum < sc.lowerLimit {
		deltaImpulse = sc.lowerLimit - sc.appliedPushImpulse
		sc.appliedPushImpulse = sc.lowerLimit
	} else {
		sc.appliedPushImpulse = sum
	}

	linA := lin.NewV3().Scale(&sc.normal, sc.sbodA.invMass)
	sc.sbodA.applyPushImpulse(*linA, sc.angularComponentA, deltaImpulse)
	linB := lin.NewV3().Scale(&negN, sc.sbodB.invMass)
	sc.sbodB.applyPushImpulse(*linB, sc.angularComponentB, deltaImpulse)
}

// finish persists each solved normal impulse back into its Contact point
// (warm start for next tick) and folds every solverBody's delta velocity —
// plus, under split impulse, its push/turn velocity as a one-off positional
// correction — back into the real Body.
func (s *Solver) finish(bodyOf map[uint32]*Body, dt float64) {
	for _, sc := range s.constC {
		sc.point.normalImpulse = sc.appliedImpulse
	}
	for _, sc := range s.constF {
		sc.point.tangentImpulse[sc.tangentSlot] = sc.appliedImpulse
	}

	for handle, sb := range s.bodies {
		b := bodyOf[handle]
		if b == nil || !b.IsDynamic() {
			continue
		}
		b.lvel = lin.V3{X: sb.linearVelocity.X + sb.deltaLinearVelocity.X, Y: sb.linearVelocity.Y + sb.deltaLinearVelocity.Y, Z: sb.linearVelocity.Z + sb.deltaLinearVelocity.Z}
		b.avel = lin.V3{X: sb.angularVelocity.X + sb.deltaAngularVelocity.X, Y: sb.angularVelocity.Y + sb.deltaAngularVelocity.Y, Z: sb.angularVelocity.Z + sb.deltaAngularVelocity.Z}
		if s.info.splitImpulse {
			world := b.World()
			loc := lin.V3{X: world.Loc.X + sb.pushVelocity.X*dt, Y: world.Loc.Y + sb.pushVelocity.Y*dt, Z: world.Loc.Z + sb.pushVelocity.Z*dt}
			world.Loc = &loc
			b.SetWorld(world)
		}
	}
}
