// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/gazed/rbcore/lin"
)

// clipping.go implements Sutherland-Hodgman polygon clipping and the
// face-face manifold generation it feeds, per spec §4.2. sutherlandHodgman
// is carried over near-verbatim from gazed-vu/physics/clipping.go (renamed
// to the module's camelCase convention); the boundary-plane and
// manifold-reduction steps are rewritten against this module's DCEL (Hull)
// instead of the teacher's vertex/neighbor adjacency maps, using face twins
// reachable via Hull.nextEdge/edges[].twin to find each face's neighbors.

type clipPlane struct {
	normal lin.V3
	point  lin.V3
}

func isPointInPlane(plane *clipPlane, position lin.V3) bool {
	distance := -plane.normal.Dot(&plane.point)
	return position.Dot(&plane.normal)+distance >= 0.0
}

func planeEdgeIntersection(plane *clipPlane, start, end lin.V3, out *lin.V3) bool {
	const epsilon = 1e-6
	ab := lin.NewV3().Sub(&end, &start)
	abProj := plane.normal.Dot(ab)
	if math.Abs(abProj) <= epsilon {
		return false
	}
	distance := -plane.normal.Dot(&plane.point)
	pOnPlane := lin.NewV3().Scale(&plane.normal, -distance)
	fac := -plane.normal.Dot(lin.NewV3().Sub(&start, pOnPlane)) / abProj
	fac = math.Min(math.Max(fac, 0.0), 1.0)
	out.Add(&start, ab.Scale(ab, fac))
	return true
}

// sutherlandHodgman clips inputPolygon against each plane in clipPlanes in
// turn, ping-ponging between two vertex lists (research.ncl.ac.uk's
// Game Technologies notes on collision manifolds, as the teacher cites).
func sutherlandHodgman(inputPolygon []lin.V3, clipPlanes []clipPlane) []lin.V3 {
	if len(clipPlanes) == 0 {
		return nil
	}
	input := append([]lin.V3{}, inputPolygon...)
	var output []lin.V3

	for i := range clipPlanes {
		if len(input) == 0 {
			break
		}
		plane := &clipPlanes[i]
		tmp := lin.NewV3()
		start := input[len(input)-1]
		for j := range input {
			end := input[j]
			startIn := isPointInPlane(plane, start)
			endIn := isPointInPlane(plane, end)
			switch {
			case startIn && endIn:
				output = append(output, end)
			case startIn && !endIn:
				if planeEdgeIntersection(plane, start, end, tmp) {
					output = append(output, *tmp)
				}
			case !startIn && endIn:
				if planeEdgeIntersection(plane, start, end, tmp) {
					output = append(output, *tmp)
				}
				output = append(output, end)
			}
			start = end
		}
		input, output = output, input[:0]
	}
	return input
}

// faceNeighborPlanes returns one clip plane per neighboring face of face
// fi, each plane's normal pointing inward (negated neighbor normal) through
// a point on the shared boundary, used to clip the incident face's polygon
// down to the reference face's silhouette.
func faceNeighborPlanes(h *Hull, t *lin.T, fi uint32) []clipPlane {
	f := h.faces[fi]
	var planes []clipPlane
	ei := f.first
	for i := uint32(0); i < f.count; i++ {
		twin := h.edges[ei].twin
		if twin != invalidEdge {
			neighborFace := h.edges[twin].faceCCW
			nn := h.faceNormal(neighborFace)
			wx, wy, wz := t.AppR(nn.X, nn.Y, nn.Z)
			worldN := lin.V3{X: -wx, Y: -wy, Z: -wz}
			p := *t.App(&h.vertices[h.edges[ei].origin])
			planes = append(planes, clipPlane{normal: worldN, point: p})
		}
		ei = h.nextEdge(ei)
	}
	return planes
}

// manifoldPoint is one surviving contact point after clipping and
// below-reference-plane filtering, in world space.
type manifoldPoint struct {
	position     lin.V3
	penetration  float64
}

// clipFaceFaceManifold builds the contact manifold between reference face
// refFace of hull hRef (posed by tRef) and incident face incFace of hull
// hInc (posed by tInc): clip incFace's polygon against hRef's side planes,
// then keep only points behind the reference plane, recording each
// survivor's penetration depth.
func clipFaceFaceManifold(hRef *Hull, tRef *lin.T, refFace uint32, hInc *Hull, tInc *lin.T, incFace uint32) []manifoldPoint {
	localInc := hInc.faceVertices(incFace)
	worldInc := make([]lin.V3, len(localInc))
	for i, v := range localInc {
		wv := v
		worldInc[i] = *tInc.App(&wv)
	}

	planes := faceNeighborPlanes(hRef, tRef, refFace)
	clipped := sutherlandHodgman(worldInc, planes)

	localRefN := hRef.faceNormal(refFace)
	rx, ry, rz := tRef.AppR(localRefN.X, localRefN.Y, localRefN.Z)
	refNormal := lin.V3{X: rx, Y: ry, Z: rz}
	refEdge := hRef.edges[hRef.faces[refFace].first]
	refPoint := *tRef.App(&hRef.vertices[refEdge.origin])

	var out []manifoldPoint
	for _, p := range clipped {
		toP := lin.NewV3().Sub(&p, &refPoint)
		sep := toP.Dot(&refNormal)
		if sep <= 0 {
			out = append(out, manifoldPoint{position: p, penetration: -sep})
		}
	}
	return out
}

// reduceManifold keeps at most 4 points from candidates, chosen to
// maximize the enclosed polygon area (the standard deepest-point + 3
// extremal-point reduction used by Box2D/Bullet), preventing unbounded
// manifold growth across ticks.
func reduceManifold(candidates []manifoldPoint) []manifoldPoint {
	if len(candidates) <= 4 {
		return candidates
	}
	deepest := 0
	for i, c := range candidates {
		if c.penetration > candidates[deepest].penetration {
			deepest = i
		}
	}
	chosen := []int{deepest}
	for len(chosen) < 4 {
		best, bestArea := -1, -1.0
		for i := range candidates {
			if contains(chosen, i) {
				continue
			}
			area := polygonAreaWith(candidates, chosen, i)
			if area > bestArea {
				bestArea = area
				best = i
			}
		}
		if best < 0 {
			break
		}
		chosen = append(chosen, best)
	}
	out := make([]manifoldPoint, len(chosen))
	for i, idx := range chosen {
		out[i] = candidates[idx]
	}
	return out
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func polygonAreaWith(points []manifoldPoint, chosen []int, candidate int) float64 {
	idx := append(append([]int{}, chosen...), candidate)
	var area float64
	for i := range idx {
		a := points[idx[i]].position
		b := points[idx[(i+1)%len(idx)]].position
		area += a.X*b.Z - b.X*a.Z
	}
	return math.Abs(area)
}
