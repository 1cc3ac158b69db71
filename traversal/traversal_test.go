// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package traversal

import (
	"testing"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/grid"
)

func lookStraightDownZCamera() raytrace.Camera {
	return raytrace.Camera{
		Position:    raytrace.V3(0, 0, 5),
		Target:      raytrace.V3(0, 0, 0),
		Up:          raytrace.V3(0, 1, 0),
		FovYRadians: 0.9,
		Aspect:      1,
		Near:        0.1,
		Far:         100,
	}
}

// bruteForceClosest intersects r against every primitive directly,
// ignoring the grid entirely — the ground truth traceClosest must match
// whenever no fine cell has overflowed (spec.md §8 "Invariants").
func bruteForceClosest(scene raytrace.Scene, r Ray, elapsed float32) (hit, bool) {
	var best hit
	found := false
	for i, b := range scene.Boxes {
		if h, ok := intersectBox(r, b, elapsed, uint32(i)); ok {
			if !found || h.t < best.t {
				best, found = h, true
			}
		}
	}
	for i, tr := range scene.Triangles {
		if h, ok := intersectTriangle(r, tr, uint32(i)+uint32(len(scene.Boxes))); ok {
			if !found || h.t < best.t {
				best, found = h, true
			}
		}
	}
	return best, found
}

func TestTraceClosestMatchesBruteForceWhenNoOverflow(t *testing.T) {
	scene := raytrace.Scene{
		Boxes: []raytrace.Box{
			raytrace.NewStaticBox(raytrace.V3(-1, -1, -1), raytrace.V3(1, 1, 1), raytrace.V3(0.8, 0.2, 0.2), 0),
			raytrace.NewStaticBox(raytrace.V3(2, -0.5, -0.5), raytrace.V3(3, 0.5, 0.5), raytrace.V3(0.2, 0.8, 0.2), 0),
		},
		Triangles: []raytrace.Triangle{
			{V0: raytrace.V3(-5, -5, -2), V1: raytrace.V3(5, -5, -2), V2: raytrace.V3(0, 5, -2)},
		},
	}
	g, report, err := grid.Build(scene, 0, grid.WithFineCellSize(0.5))
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}
	if report.OverflowCells != 0 {
		t.Fatalf("unexpected overflow, test invalid: %+v", report)
	}

	cam := lookStraightDownZCamera()
	for y := uint32(0); y < 16; y++ {
		for x := uint32(0); x < 16; x++ {
			ray := PrimaryRay(cam, x, y, 16, 16)
			got, gotFound, _ := traceClosestWrap(scene, g, ray, 0)
			want, wantFound := bruteForceClosest(scene, ray, 0)
			if gotFound != wantFound {
				t.Fatalf("pixel (%d,%d): found = %v, want %v", x, y, gotFound, wantFound)
			}
			if wantFound && !approxEqual(got.t, want.t, 1e-3) {
				t.Errorf("pixel (%d,%d): t = %v, want %v", x, y, got.t, want.t)
			}
		}
	}
}

func traceClosestWrap(scene raytrace.Scene, g *grid.Grid, r Ray, elapsed float32) (hit, bool, uint32) {
	h, steps, found := traceClosest(scene, g, r, elapsed)
	return h, found, steps
}

func approxEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func TestTracePixelProducesFiniteColorForAxisAlignedRay(t *testing.T) {
	scene := raytrace.Scene{
		Boxes: []raytrace.Box{
			raytrace.NewStaticBox(raytrace.V3(-10, -10, -10), raytrace.V3(10, 10, 10), raytrace.V3(0.5, 0.5, 0.5), 0),
		},
	}
	g, _, err := grid.Build(scene, 0, grid.WithFineCellSize(2))
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}

	cam := raytrace.Camera{
		Position: raytrace.V3(0, 0, 0), Target: raytrace.V3(1, 0, 0), Up: raytrace.V3(0, 1, 0),
		FovYRadians: 0.9, Aspect: 1, Near: 0.1, Far: 100,
	}

	// The centre pixel of an odd-sized image has ndc (0,0): its ray is
	// exactly (1,0,0), with zero Y and Z components.
	col, debug := TracePixel(scene, g, cam, 8, 8, 17, 17, 0, DefaultParams())
	if !col.Finite() {
		t.Fatalf("color = %v, want finite", col)
	}
	if !debug.Hit {
		t.Error("expected a hit on the +X face from inside the hollow box")
	}
	if debug.HitNormal != raytrace.V3(1, 0, 0) {
		t.Errorf("hit normal = %v, want (1,0,0)", debug.HitNormal)
	}
}

func TestTracePixelEmptySceneIsSky(t *testing.T) {
	g, _, err := grid.Build(raytrace.Scene{}, 0)
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}
	cam := lookStraightDownZCamera()
	col, debug := TracePixel(raytrace.Scene{}, g, cam, 5, 5, 10, 10, 0, DefaultParams())
	if debug.Hit {
		t.Error("empty scene should never report a hit")
	}
	if !col.Finite() {
		t.Errorf("sky color = %v, want finite", col)
	}
}

func TestTracePixelMirrorBounceRespectsCap(t *testing.T) {
	scene := raytrace.Scene{
		Boxes: []raytrace.Box{
			raytrace.NewStaticBox(raytrace.V3(-1, -1, -1), raytrace.V3(1, 1, 1), raytrace.V3(1, 1, 1), 1), // perfect mirror
		},
	}
	g, _, err := grid.Build(scene, 0, grid.WithFineCellSize(0.5))
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}
	cam := lookStraightDownZCamera()
	params := Params{MaxBounces: 3, ReflectivityFloor: 0.01}

	col, _ := TracePixel(scene, g, cam, 8, 8, 16, 16, 0, params)
	if !col.Finite() {
		t.Fatalf("mirror bounce produced non-finite color: %v", col)
	}
}

func TestTracePixelShadowedEmissiveGivesZeroContribution(t *testing.T) {
	emissiveMat := raytrace.Material{Emissive: raytrace.V3(5, 5, 5), BaseColor: [4]float32{1, 1, 1, 1}, Roughness: 1}
	wallMat := raytrace.DefaultMaterial()
	occluderMat := raytrace.DefaultMaterial()

	scene := raytrace.Scene{
		Materials: []raytrace.Material{emissiveMat, wallMat, occluderMat},
		Triangles: []raytrace.Triangle{
			// emissive light at y=3, facing down, above the shaded point
			{V0: raytrace.V3(-0.2, 3, -0.2), V1: raytrace.V3(0.2, 3, -0.2), V2: raytrace.V3(0, 3, 0.2), MaterialID: 0},
			// diffuse floor in the plane y=-1, far below the light
			{V0: raytrace.V3(-5, -1, 0), V1: raytrace.V3(5, -1, 0), V2: raytrace.V3(0, -1, 5), MaterialID: 1},
			// occluder directly between the wall and the light
			{V0: raytrace.V3(-5, 2, -0.5), V1: raytrace.V3(5, 2, -0.5), V2: raytrace.V3(0, 2, 5), MaterialID: 2},
		},
	}
	g, _, err := grid.Build(scene, 0, grid.WithFineCellSize(1))
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}

	h := hit{point: raytrace.V3(0, -1, 0), normal: raytrace.V3(0, 1, 0), color: raytrace.V3(1, 1, 1), isTriangle: true, objectID: g.NumBoxes + 1}
	col := shade(scene, g, h)
	if !col.Finite() {
		t.Fatalf("shaded color = %v, want finite", col)
	}
	// With the light occluded only the directional term remains:
	// DefaultMaterial's 0.5 gray times (ambient + diffuse).
	diffuse := h.normal.Dot(LightDirection.Neg()) * DiffuseTerm
	want := raytrace.V3(0.5, 0.5, 0.5).Scale(AmbientTerm + diffuse)
	if !approxEqual(col.X, want.X, 1e-5) || !approxEqual(col.Y, want.Y, 1e-5) || !approxEqual(col.Z, want.Z, 1e-5) {
		t.Errorf("shaded color = %v, want %v (no emissive contribution)", col, want)
	}
}

func TestPrimaryRayIsNormalized(t *testing.T) {
	cam := lookStraightDownZCamera()
	r := PrimaryRay(cam, 0, 0, 64, 64)
	if l := r.Dir.Length(); l < 0.999 || l > 1.001 {
		t.Errorf("ray direction length = %v, want ~1", l)
	}
}

func TestSlabIntersectParallelToFaceNoNaN(t *testing.T) {
	box := raytrace.AABB{Min: raytrace.V3(-1, -1, -1), Max: raytrace.V3(1, 1, 1)}
	r := Ray{Origin: raytrace.V3(0, 0, -5), Dir: raytrace.V3(0, 0, 1)}
	tMin, tMax, ok := slabIntersect(r, box)
	if !ok {
		t.Fatal("expected a hit on axis-aligned ray")
	}
	if !approxEqual(tMin, 4, 1e-4) || !approxEqual(tMax, 6, 1e-4) {
		t.Errorf("tMin=%v tMax=%v, want 4 and 6", tMin, tMax)
	}
}
