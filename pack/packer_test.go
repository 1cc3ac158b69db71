// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pack

import (
	"errors"
	"testing"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/grid"
)

func TestCameraPackedLength(t *testing.T) {
	buf := make([]byte, CameraSize)
	err := Camera(buf, CameraParams{
		Position: raytrace.V3(1, 2, 3),
		Forward:  raytrace.V3(0, 0, -1),
		Right:    raytrace.V3(1, 0, 0),
		Up:       raytrace.V3(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Camera() error = %v", err)
	}
}

func TestCameraTooSmallBuffer(t *testing.T) {
	buf := make([]byte, 4)
	err := Camera(buf, CameraParams{})
	if !errors.Is(err, raytrace.ErrBufferTooSmall) {
		t.Errorf("Camera() error = %v, want ErrBufferTooSmall", err)
	}
}

func TestCameraRoundTripPosition(t *testing.T) {
	buf := make([]byte, CameraSize)
	want := raytrace.V3(3.5, -2.25, 7.125)
	if err := Camera(buf, CameraParams{Position: want}); err != nil {
		t.Fatalf("Camera() error = %v", err)
	}
	got := raytrace.V3(getF32(buf, 0), getF32(buf, 4), getF32(buf, 8))
	if got != want {
		t.Errorf("packed position = %v, want %v", got, want)
	}
}

func TestCameraShowGridFlag(t *testing.T) {
	buf := make([]byte, CameraSize)
	if err := Camera(buf, CameraParams{ShowGrid: true}); err != nil {
		t.Fatalf("Camera() error = %v", err)
	}
	if getU32(buf, 72) != 1 {
		t.Error("show_grid flag not set in packed camera uniform")
	}
}

func TestGridMetadataPacksDimensions(t *testing.T) {
	scene := raytrace.Scene{
		Boxes: []raytrace.Box{raytrace.NewStaticBox(raytrace.V3(0, 0, 0), raytrace.V3(2, 2, 2), raytrace.V3(1, 1, 1), 0)},
	}
	g, _, err := grid.Build(scene, 0, grid.WithFineCellSize(1))
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}

	buf := make([]byte, GridMetadataSize)
	if err := GridMetadata(buf, g); err != nil {
		t.Fatalf("GridMetadata() error = %v", err)
	}

	fineOff := 32 + 3*16
	gotDim := [3]uint32{getU32(buf, fineOff), getU32(buf, fineOff+4), getU32(buf, fineOff+8)}
	if gotDim != g.Levels[3].Dim {
		t.Errorf("packed fine dim = %v, want %v", gotDim, g.Levels[3].Dim)
	}
}

func TestFineCellsRoundTrip(t *testing.T) {
	scene := raytrace.Scene{
		Boxes: []raytrace.Box{raytrace.NewStaticBox(raytrace.V3(0, 0, 0), raytrace.V3(1, 1, 1), raytrace.V3(1, 1, 1), 0)},
	}
	g, _, err := grid.Build(scene, 0, grid.WithFineCellSize(1))
	if err != nil {
		t.Fatalf("grid.Build() error = %v", err)
	}

	buf := make([]byte, FineCellsSize(g))
	if err := FineCells(buf, g); err != nil {
		t.Fatalf("FineCells() error = %v", err)
	}

	recordSize := FineCellRecordSize(g.Capacity)
	for i := range g.FineCells {
		base := i * recordSize
		count := getU32(buf, base+int(g.Capacity)*4)
		if count != g.FineCounts[i] {
			t.Fatalf("cell %d packed count = %d, want %d", i, count, g.FineCounts[i])
		}
		for j := uint32(0); j < count; j++ {
			got := getU32(buf, base+int(j)*4)
			if got != g.FineCells[i][j] {
				t.Errorf("cell %d index %d = %d, want %d", i, j, got, g.FineCells[i][j])
			}
		}
	}
}

func TestBoxesRoundTrip(t *testing.T) {
	boxes := []raytrace.Box{
		raytrace.NewStaticBox(raytrace.V3(-1, -2, -3), raytrace.V3(1, 2, 3), raytrace.V3(0.5, 0.25, 0.1), 0.8),
		raytrace.NewMovingBox(raytrace.V3(0, 0, 0), raytrace.V3(5, 0, 0), raytrace.V3(1, 1, 1), raytrace.V3(1, 0, 0), 0),
	}
	buf := make([]byte, BoxesSize(boxes))
	if err := Boxes(buf, boxes); err != nil {
		t.Fatalf("Boxes() error = %v", err)
	}

	base := 0
	gotMin := raytrace.V3(getF32(buf, base), getF32(buf, base+4), getF32(buf, base+8))
	if gotMin != boxes[0].Min {
		t.Errorf("box 0 min = %v, want %v", gotMin, boxes[0].Min)
	}
	if getF32(buf, base+12) != 0 {
		t.Error("box 0 is_moving should be 0")
	}

	base = BoxRecordSize
	if getF32(buf, base+12) != 1 {
		t.Error("box 1 is_moving should be 1")
	}
}

func TestTrianglesRoundTrip(t *testing.T) {
	tris := []raytrace.Triangle{
		{
			V0: raytrace.V3(0, 0, 0), V1: raytrace.V3(1, 0, 0), V2: raytrace.V3(0, 1, 0),
			UV0: [2]float32{0, 0}, UV1: [2]float32{1, 0}, UV2: [2]float32{0, 1},
			MaterialID: 3,
		},
	}
	buf := make([]byte, TrianglesSize(tris))
	if err := Triangles(buf, tris); err != nil {
		t.Fatalf("Triangles() error = %v", err)
	}
	if got := getF32(buf, 12); got != 3 {
		t.Errorf("material_id = %v, want 3", got)
	}
	if got := getF32(buf, 68); got != 1 {
		t.Errorf("uv2.y = %v, want 1", got)
	}
}

func TestMaterialsEmptyGetsSentinel(t *testing.T) {
	buf := make([]byte, MaterialsSize(nil))
	if err := Materials(buf, nil); err != nil {
		t.Fatalf("Materials() error = %v", err)
	}
	if got := getF32(buf, 32); got != 0 {
		t.Errorf("sentinel material metallic = %v, want 0", got)
	}
	if got := getF32(buf, 36); got != 1 {
		t.Errorf("sentinel material roughness = %v, want 1", got)
	}
}

func TestSceneConfig(t *testing.T) {
	buf := make([]byte, SceneConfigSize)
	if err := SceneConfig(buf, 4, 12, 1920, 1080); err != nil {
		t.Fatalf("SceneConfig() error = %v", err)
	}
	if getU32(buf, 0) != 4 || getU32(buf, 4) != 12 || getU32(buf, 8) != 1920 || getU32(buf, 12) != 1080 {
		t.Errorf("packed scene config = (%d, %d, %d, %d), want (4, 12, 1920, 1080)",
			getU32(buf, 0), getU32(buf, 4), getU32(buf, 8), getU32(buf, 12))
	}
}

func TestDebugParams(t *testing.T) {
	buf := make([]byte, DebugParamsSize)
	probe := raytrace.DebugProbe{X: 10, Y: 20, Enabled: true}
	if err := DebugParams(buf, probe); err != nil {
		t.Fatalf("DebugParams() error = %v", err)
	}
	if getU32(buf, 0) != 10 || getU32(buf, 4) != 20 || getU32(buf, 8) != 1 {
		t.Errorf("packed debug params wrong: x=%d y=%d enabled=%d", getU32(buf, 0), getU32(buf, 4), getU32(buf, 8))
	}
}

func TestUnpackDebugRecordRoundTrip(t *testing.T) {
	buf := make([]byte, DebugRecordSize)
	putVec3(buf, 0, raytrace.V3(1, 2, 3))
	putVec3(buf, 16, raytrace.V3(0, 0, -1))
	putU32(buf, 32, 1)
	putF32(buf, 36, 4.5)
	putU32(buf, 40, 7)
	putU32(buf, 44, 42)
	putVec3(buf, 48, raytrace.V3(1, 1, 1))
	putVec3(buf, 64, raytrace.V3(0, 1, 0))
	putVec3(buf, 80, raytrace.V3(0.8, 0.1, 0.1))

	r, err := UnpackDebugRecord(buf)
	if err != nil {
		t.Fatalf("UnpackDebugRecord() error = %v", err)
	}
	if !r.Hit || r.Distance != 4.5 || r.ObjectID != 7 || r.StepCount != 42 {
		t.Errorf("unpacked record = %+v", r)
	}
	if r.RayOrigin != raytrace.V3(1, 2, 3) {
		t.Errorf("RayOrigin = %v, want (1,2,3)", r.RayOrigin)
	}
}

func TestUnpackDebugRecordTooSmall(t *testing.T) {
	_, err := UnpackDebugRecord(make([]byte, 4))
	if !errors.Is(err, raytrace.ErrBufferTooSmall) {
		t.Errorf("error = %v, want ErrBufferTooSmall", err)
	}
}
