// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package traversal is the pure-Go reference implementation of the
// traversal kernel (spec.md §4.4 "Traversal kernel (C4)"): ray generation,
// grid entry, 3D DDA march, primitive intersection, shading, the
// reflection loop, and emissive shadow sampling.
//
// It exists for two reasons (spec.md §8 "software fallback"): it is the
// reference algorithm the GPU kernel is kept in step with, and it is the
// engine behind cmd/rttrace's PNG output on hosts with no GPU backend. It
// deliberately mirrors the WGSL kernel's algorithm step for step rather
// than taking CPU-only shortcuts (e.g. a BVH), so the two can be compared
// line by line. No test in this module runs the GPU kernel against it.
package traversal

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/grid"
)

// Epsilon bounds ray parameter acceptance near the origin (spec.md §4.4
// "Numerics and tie-breaks").
const Epsilon = 1e-4

// MaxDDASteps caps the DDA march (spec.md §5 "hard iteration cap (~200)").
const MaxDDASteps = 200

// AmbientTerm is the constant ambient light added to every hit's shading
// (spec.md §4.4 step 6).
const AmbientTerm = 0.1

// DiffuseTerm scales the directional diffuse contribution.
const DiffuseTerm = 0.7

// LightDirection is the hard-coded directional light vector, pointing from
// the light toward the scene (spec.md §4.4 step 6: "L is a hard-coded
// directional vector").
var LightDirection = raytrace.V3(-0.5, -1, -0.3).Normalize()

// Params configures one TracePixel call.
type Params struct {
	// MaxBounces caps the reflection loop (spec.md §4.4 step 7), clamped to
	// [0, 8].
	MaxBounces uint32
	// ShowGrid overlays fine-cell boundaries as green seams (spec.md §4.6,
	// §6 "show_grid").
	ShowGrid bool
	// ReflectivityFloor is the early-out threshold below which the
	// reflection loop stops (spec.md §4.4 step 7 "surface reflectivity is
	// below a small threshold").
	ReflectivityFloor float32
}

// DefaultParams returns the spec's default traversal parameters.
func DefaultParams() Params {
	return Params{MaxBounces: 8, ReflectivityFloor: 0.02}
}

// Ray is a parametric ray in world space.
type Ray struct {
	Origin, Dir raytrace.Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) raytrace.Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// PrimaryRay converts a pixel coordinate to a world-space ray (spec.md
// §4.4 step 1).
func PrimaryRay(cam raytrace.Camera, x, y, width, height uint32) Ray {
	ndcX := (float32(x)+0.5)/float32(width)*2 - 1
	ndcY := 1 - (float32(y)+0.5)/float32(height)*2

	forward := cam.Forward()
	right := forward.Cross(cam.Up).Normalize()
	up := right.Cross(forward).Normalize()

	fovScale := math32.Tan(cam.FovYRadians / 2)
	dir := forward.
		Add(right.Scale(ndcX * cam.Aspect * fovScale)).
		Add(up.Scale(ndcY * fovScale)).
		Normalize()

	return Ray{Origin: cam.Position, Dir: dir}
}

// hit describes a single ray-primitive intersection.
type hit struct {
	t          float32
	point      raytrace.Vec3
	normal     raytrace.Vec3
	color      raytrace.Vec3
	reflect    float32
	objectID   uint32
	isTriangle bool
}

// slabIntersect implements the slab method against an AABB, returning the
// entry/exit parameters. ok is false if the ray misses entirely.
func slabIntersect(r Ray, box raytrace.AABB) (tMin, tMax float32, ok bool) {
	tMin, tMax = -math32.MaxFloat32, math32.MaxFloat32

	axes := [3]struct{ o, d, lo, hi float32 }{
		{r.Origin.X, r.Dir.X, box.Min.X, box.Max.X},
		{r.Origin.Y, r.Dir.Y, box.Min.Y, box.Max.Y},
		{r.Origin.Z, r.Dir.Z, box.Min.Z, box.Max.Z},
	}
	for _, a := range axes {
		if math32.Abs(a.d) < 1e-12 {
			if a.o < a.lo || a.o > a.hi {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / a.d
		t0 := (a.lo - a.o) * inv
		t1 := (a.hi - a.o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}

// boxNormalAt returns the outward face normal of box closest to p, used
// after a slab hit to report which face was struck.
func boxNormalAt(box raytrace.AABB, p raytrace.Vec3) raytrace.Vec3 {
	c := box.Center()
	d := p.Sub(c)
	half := box.HalfSize()

	bestAxis, bestDist := 0, math32.MaxFloat32
	dist := [3]float32{
		math32.Abs(math32.Abs(d.X) - half.X),
		math32.Abs(math32.Abs(d.Y) - half.Y),
		math32.Abs(math32.Abs(d.Z) - half.Z),
	}
	for i, dd := range dist {
		if dd < bestDist {
			bestDist = dd
			bestAxis = i
		}
	}
	switch bestAxis {
	case 0:
		if d.X >= 0 {
			return raytrace.V3(1, 0, 0)
		}
		return raytrace.V3(-1, 0, 0)
	case 1:
		if d.Y >= 0 {
			return raytrace.V3(0, 1, 0)
		}
		return raytrace.V3(0, -1, 0)
	default:
		if d.Z >= 0 {
			return raytrace.V3(0, 0, 1)
		}
		return raytrace.V3(0, 0, -1)
	}
}

// intersectBox tests r against a box at time t, returning a hit if found
// with t > Epsilon. A ray whose origin lies inside the box reports the exit
// face instead of the (behind-origin) entry face, so cameras placed inside a
// box still see its far walls (spec.md §8 "axis-aligned ray from inside a
// hollow box").
func intersectBox(r Ray, b raytrace.Box, t float32, idx uint32) (hit, bool) {
	bounds := b.BoundsAt(t)
	tMin, tMax, ok := slabIntersect(r, bounds)
	if !ok {
		return hit{}, false
	}
	tHit := tMin
	if tHit <= Epsilon {
		tHit = tMax
	}
	if tHit <= Epsilon {
		return hit{}, false
	}
	p := r.At(tHit)
	return hit{
		t:        tHit,
		point:    p,
		normal:   boxNormalAt(bounds, p),
		color:    b.Color,
		reflect:  b.Reflectivity,
		objectID: idx,
	}, true
}

// intersectTriangle implements Möller–Trumbore (spec.md §4.4 "Numerics and
// tie-breaks").
func intersectTriangle(r Ray, tr raytrace.Triangle, objectID uint32) (hit, bool) {
	e1 := tr.V1.Sub(tr.V0)
	e2 := tr.V2.Sub(tr.V0)
	pvec := r.Dir.Cross(e2)
	det := e1.Dot(pvec)
	if math32.Abs(det) < 1e-9 {
		return hit{}, false
	}
	invDet := 1 / det
	tvec := r.Origin.Sub(tr.V0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return hit{}, false
	}
	qvec := tvec.Cross(e1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return hit{}, false
	}
	t := e2.Dot(qvec) * invDet
	if t <= Epsilon {
		return hit{}, false
	}
	return hit{
		t:          t,
		point:      r.At(t),
		normal:     tr.GeometricNormal(),
		objectID:   objectID,
		isTriangle: true,
	}, true
}

// traceClosest walks the fine grid with 3D DDA (spec.md §4.4 steps 3-5),
// returning the closest hit along r, if any.
func traceClosest(scene raytrace.Scene, g *grid.Grid, r Ray, elapsed float32) (hit, uint32, bool) {
	// Step 2: moving boxes are swept unconditionally, independent of the
	// grid, since their instantaneous position can diverge from the fine
	// cells their envelope occupies.
	var best hit
	found := false
	steps := uint32(0)

	for i, b := range scene.Boxes {
		if !b.Moving {
			continue
		}
		if h, ok := intersectBox(r, b, elapsed, uint32(i)); ok {
			if !found || h.t < best.t {
				best, found = h, true
			}
		}
	}

	bounds := g.Bounds
	tEntry, tExit, ok := slabIntersect(r, bounds)
	if !ok || tExit < 0 {
		return best, steps, found
	}
	if tEntry < 0 {
		tEntry = 0
	}
	tEntry += Epsilon

	level := g.Levels[3]
	cellSize := level.CellSize
	entryPoint := r.At(tEntry)

	cellOf := func(p raytrace.Vec3) [3]int64 {
		return [3]int64{
			int64(math32.Floor((p.X - bounds.Min.X) / cellSize)),
			int64(math32.Floor((p.Y - bounds.Min.Y) / cellSize)),
			int64(math32.Floor((p.Z - bounds.Min.Z) / cellSize)),
		}
	}
	cell := cellOf(entryPoint)
	clampCell := func(c [3]int64) ([3]uint32, bool) {
		var out [3]uint32
		for i, dimI := range level.Dim {
			if c[i] < 0 || c[i] >= int64(dimI) {
				return out, false
			}
			out[i] = uint32(c[i])
		}
		return out, true
	}

	var step [3]float32
	var tDelta [3]float32
	var tMax [3]float32
	dirArr := [3]float32{r.Dir.X, r.Dir.Y, r.Dir.Z}
	originArr := [3]float32{bounds.Min.X, bounds.Min.Y, bounds.Min.Z}
	for i := 0; i < 3; i++ {
		if dirArr[i] > 0 {
			step[i] = 1
			next := originArr[i] + float32(cell[i]+1)*cellSize
			tDelta[i] = cellSize / dirArr[i]
			tMax[i] = tEntry + (next-entryVal(i, entryPoint))/dirArr[i]
		} else if dirArr[i] < 0 {
			step[i] = -1
			next := originArr[i] + float32(cell[i])*cellSize
			tDelta[i] = cellSize / -dirArr[i]
			tMax[i] = tEntry + (next-entryVal(i, entryPoint))/dirArr[i]
		} else {
			step[i] = 0
			tDelta[i] = math32.MaxFloat32
			tMax[i] = math32.MaxFloat32
		}
	}

	for steps < MaxDDASteps {
		steps++
		cu, inBounds := clampCell(cell)
		if !inBounds {
			break
		}
		idx := grid.CellIndex(level, cu[0], cu[1], cu[2])
		n := g.FineCounts[idx]
		for _, primIdx := range g.FineCells[idx][:n] {
			var h hit
			var hok bool
			if primIdx < g.NumBoxes {
				b := scene.Boxes[primIdx]
				if b.Moving {
					continue // already swept above
				}
				h, hok = intersectBox(r, b, elapsed, primIdx)
			} else {
				tr := scene.Triangles[primIdx-g.NumBoxes]
				h, hok = intersectTriangle(r, tr, primIdx)
			}
			if hok && (!found || h.t < best.t) {
				best, found = h, true
			}
		}

		minAxisT := math32.Min(tMax[0], math32.Min(tMax[1], tMax[2]))
		if found && best.t < minAxisT {
			break
		}

		// Tie-break order x -> y -> z (spec.md §4.4 "Numerics and tie-breaks").
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		cell[axis] += int64(step[axis])
		tMax[axis] += tDelta[axis]
	}

	return best, steps, found
}

func entryVal(axis int, p raytrace.Vec3) float32 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// skyColor returns the background gradient for a ray that hit nothing
// (spec.md §4.4 step 6).
func skyColor(dir raytrace.Vec3) raytrace.Vec3 {
	t := 0.5 * (dir.Y + 1)
	top := raytrace.V3(0.5, 0.7, 1.0)
	bottom := raytrace.V3(1, 1, 1)
	return bottom.Lerp(top, t)
}

// occluded performs a brute-force shadow test against every primitive
// except the one at skipID (spec.md §5 "each summand masked by a shadow
// ray"). It checks every primitive directly rather than re-entering the
// grid, the same brute-force scan the WGSL kernel's occluded function does.
func occluded(scene raytrace.Scene, origin, dir raytrace.Vec3, maxT float32, skipID uint32, skipIsTriangle bool) bool {
	r := Ray{Origin: origin, Dir: dir}
	for i, b := range scene.Boxes {
		if !skipIsTriangle && uint32(i) == skipID {
			continue
		}
		bounds := b.Envelope()
		if tMin, _, ok := slabIntersect(r, bounds); ok && tMin > Epsilon && tMin < maxT {
			return true
		}
	}
	for i, tr := range scene.Triangles {
		id := uint32(i) + uint32(len(scene.Boxes))
		if skipIsTriangle && id == skipID {
			continue
		}
		if h, ok := intersectTriangle(r, tr, id); ok && h.t < maxT {
			return true
		}
	}
	return false
}

// shade evaluates direct lighting at a hit (spec.md §4.4 step 6).
func shade(scene raytrace.Scene, g *grid.Grid, h hit) raytrace.Vec3 {
	baseColor := h.color
	var material raytrace.Material
	if h.isTriangle {
		tr := scene.Triangles[h.objectID-g.NumBoxes]
		material = scene.MaterialAt(tr.MaterialID)
		baseColor = raytrace.V3(material.BaseColor[0], material.BaseColor[1], material.BaseColor[2])
	} else {
		material = raytrace.Material{Metallic: h.reflect, Roughness: 1}
	}

	diffuse := math32.Max(h.normal.Dot(LightDirection.Neg()), 0) * DiffuseTerm
	direct := baseColor.Scale(AmbientTerm + diffuse)

	emissiveDirect := raytrace.V3(0, 0, 0)
	for i, tr := range scene.Triangles {
		m := scene.MaterialAt(tr.MaterialID)
		if m.Emissive.IsZero() {
			continue
		}
		id := uint32(i) + g.NumBoxes
		if h.isTriangle && h.objectID == id {
			continue
		}
		centroid := tr.V0.Add(tr.V1).Add(tr.V2).Scale(1.0 / 3.0)
		toLight := centroid.Sub(h.point)
		dist := toLight.Length()
		if dist < Epsilon {
			continue
		}
		lightDir := toLight.Scale(1 / dist)
		nDotL := math32.Max(h.normal.Dot(lightDir), 0)
		triNormal := tr.GeometricNormal()
		lnDotNeg := math32.Max(triNormal.Dot(lightDir.Neg()), 0)
		if nDotL <= 0 || lnDotNeg <= 0 {
			continue
		}
		if occluded(scene, h.point.Add(h.normal.Scale(Epsilon*10)), lightDir, dist-Epsilon*10, id, true) {
			continue
		}
		weight := nDotL * lnDotNeg * tr.Area() / (dist*dist + 1)
		emissiveDirect = emissiveDirect.Add(m.Emissive.Scale(weight))
	}

	color := direct.Add(emissiveDirect)
	if h.isTriangle {
		color = color.Add(material.Emissive)
	}
	return color
}

// TracePixel computes the final color (and, when requested, a debug
// record) for a single output pixel (spec.md §4.4, §4.6).
func TracePixel(scene raytrace.Scene, g *grid.Grid, cam raytrace.Camera, x, y, width, height uint32, elapsed float32, params Params) (raytrace.Vec3, raytrace.DebugRecord) {
	maxBounces := params.MaxBounces
	if maxBounces > 8 {
		maxBounces = 8
	}
	floor := params.ReflectivityFloor
	if floor <= 0 {
		floor = 0.02
	}

	ray := PrimaryRay(cam, x, y, width, height)
	var debug raytrace.DebugRecord
	debug.RayOrigin = ray.Origin
	debug.RayDirection = ray.Dir

	accum := raytrace.V3(0, 0, 0)
	throughput := float32(1)

	currentRay := ray
	recordedFirst := false

	for bounce := uint32(0); bounce <= maxBounces; bounce++ {
		h, steps, found := traceClosest(scene, g, currentRay, elapsed)
		if !recordedFirst {
			recordedFirst = true
			debug.StepCount = steps
			debug.Hit = found
			if found {
				debug.Distance = h.t
				debug.HitPosition = h.point
				debug.HitNormal = h.normal
				debug.ObjectID = h.objectID
			}
		}

		if !found {
			sky := skyColor(currentRay.Dir)
			accum = accum.Add(sky.Scale(throughput))
			break
		}

		col := shade(scene, g, h)
		if params.ShowGrid {
			col = applyGridSeam(g, h.point, col)
		}
		if bounce == 0 {
			debug.Color = col
		}

		reflectivity := h.reflect
		if h.isTriangle {
			reflectivity = scene.MaterialAt(scene.Triangles[h.objectID-g.NumBoxes].MaterialID).Reflectivity()
		}

		surfaceContribution := col.Scale(1 - reflectivity)
		accum = accum.Add(surfaceContribution.Scale(throughput))

		if reflectivity < floor || bounce == maxBounces {
			break
		}
		throughput *= reflectivity

		reflectDir := currentRay.Dir.Sub(h.normal.Scale(2 * currentRay.Dir.Dot(h.normal))).Normalize()
		currentRay = Ray{Origin: h.point.Add(h.normal.Scale(Epsilon * 10)), Dir: reflectDir}
	}

	if !accum.Finite() {
		accum = raytrace.V3(1, 0, 1) // magenta sentinel (spec.md §7)
	}
	return accum, debug
}

// applyGridSeam tints a hit point green near fine-cell boundaries when
// show_grid is enabled (spec.md §6 "show_grid").
func applyGridSeam(g *grid.Grid, p raytrace.Vec3, col raytrace.Vec3) raytrace.Vec3 {
	s := g.Levels[3].CellSize
	const seamWidth = 0.02
	localX := math.Mod(float64((p.X-g.Bounds.Min.X)/s), 1)
	localY := math.Mod(float64((p.Y-g.Bounds.Min.Y)/s), 1)
	localZ := math.Mod(float64((p.Z-g.Bounds.Min.Z)/s), 1)
	if localX < 0 {
		localX += 1
	}
	if localY < 0 {
		localY += 1
	}
	if localZ < 0 {
		localZ += 1
	}
	near := func(v float64) bool { return v < seamWidth || v > 1-seamWidth }
	if near(localX) || near(localY) || near(localZ) {
		return raytrace.V3(0, 1, 0)
	}
	return col
}
