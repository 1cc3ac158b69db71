package raytrace

import (
	"context"
	"errors"
	"testing"
)

func TestSceneNumPrimitives(t *testing.T) {
	s := Scene{
		Boxes:     []Box{NewStaticBox(V3(0, 0, 0), V3(1, 1, 1), V3(1, 1, 1), 0)},
		Triangles: []Triangle{{V0: V3(0, 0, 0), V1: V3(1, 0, 0), V2: V3(0, 1, 0)}},
	}
	if got := s.NumPrimitives(); got != 2 {
		t.Errorf("NumPrimitives() = %d, want 2", got)
	}
}

func TestSceneBoundsEmpty(t *testing.T) {
	s := Scene{}
	if !s.Bounds(0).IsEmpty() {
		t.Error("empty scene should have empty bounds")
	}
}

func TestSceneBoundsUnionsPrimitives(t *testing.T) {
	s := Scene{
		Boxes: []Box{NewStaticBox(V3(-1, -1, -1), V3(1, 1, 1), V3(1, 1, 1), 0)},
		Triangles: []Triangle{
			{V0: V3(5, 0, 0), V1: V3(6, 0, 0), V2: V3(5, 1, 0)},
		},
	}
	b := s.Bounds(0)
	if b.Max.X != 6 || b.Min.X != -1 {
		t.Errorf("Bounds() = %+v, want x range [-1, 6]", b)
	}
}

func TestSceneBoundsSkipsDegenerateTriangles(t *testing.T) {
	s := Scene{
		Triangles: []Triangle{
			{V0: V3(0, 0, 0), V1: V3(1, 0, 0), V2: V3(2, 0, 0)}, // collinear: degenerate
		},
	}
	if !s.Bounds(0).IsEmpty() {
		t.Error("scene with only a degenerate triangle should have empty bounds")
	}
}

func TestSceneMaterialAtOutOfRangeFallsBack(t *testing.T) {
	s := Scene{Materials: []Material{{Metallic: 0.9}}}

	if got := s.MaterialAt(0).Metallic; got != 0.9 {
		t.Errorf("MaterialAt(0).Metallic = %v, want 0.9", got)
	}

	fallback := s.MaterialAt(7)
	if fallback != DefaultMaterial() {
		t.Errorf("MaterialAt(out of range) = %+v, want DefaultMaterial()", fallback)
	}
}

func TestSceneSourceFunc(t *testing.T) {
	want := Scene{Boxes: []Box{NewStaticBox(V3(0, 0, 0), V3(1, 1, 1), V3(1, 1, 1), 0)}}
	sentinel := errors.New("boom")

	var src SceneSource = SceneSourceFunc(func(ctx context.Context) (Scene, error) {
		return want, sentinel
	})

	got, err := src.Load(context.Background())
	if !errors.Is(err, sentinel) {
		t.Errorf("Load() error = %v, want %v", err, sentinel)
	}
	if got.NumPrimitives() != want.NumPrimitives() {
		t.Errorf("Load() scene = %+v, want %+v", got, want)
	}
}
