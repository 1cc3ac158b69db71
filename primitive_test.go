package raytrace

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestNewStaticBoxDerivesCenterAndHalfSize(t *testing.T) {
	b := NewStaticBox(V3(-1, -1, -1), V3(1, 1, 1), V3(1, 0, 0), 0.5)
	if b.Moving {
		t.Error("static box should have Moving == false")
	}
	if b.Center0 != V3(0, 0, 0) || b.Center1 != V3(0, 0, 0) {
		t.Errorf("static box centers = %v / %v, want both (0,0,0)", b.Center0, b.Center1)
	}
	if b.HalfSize != V3(1, 1, 1) {
		t.Errorf("static box half size = %v, want (1,1,1)", b.HalfSize)
	}
}

func TestStaticBoxBoundsAtMatchesMinMaxForAllT(t *testing.T) {
	b := NewStaticBox(V3(-2, -1, 0), V3(2, 1, 3), V3(1, 1, 1), 0)
	for _, tt := range []float32{0, 1, 5, -3.2} {
		bounds := b.BoundsAt(tt)
		if !bounds.Min.Approx(b.Min, 1e-5) || !bounds.Max.Approx(b.Max, 1e-5) {
			t.Errorf("BoundsAt(%v) = %+v, want [%v, %v]", tt, bounds, b.Min, b.Max)
		}
	}
}

// TestMovingBoxEnvelopeContainsBoundsAt verifies the motion-envelope
// invariant grid.Build relies on: the envelope must contain BoundsAt(t)
// for every t, since fine-cell assignment uses Envelope() exclusively.
func TestMovingBoxEnvelopeContainsBoundsAt(t *testing.T) {
	b := NewMovingBox(V3(-5, 0, 0), V3(5, 0, 0), V3(1, 1, 1), V3(1, 1, 1), 0.3)
	env := b.Envelope()

	for tt := float32(0); tt < 10; tt += 0.37 {
		at := b.BoundsAt(tt)
		if !containsAABB(env, at) {
			t.Fatalf("envelope %+v does not contain BoundsAt(%v) = %+v", env, tt, at)
		}
	}
}

func TestMovingBoxMinMaxEqualsEnvelope(t *testing.T) {
	b := NewMovingBox(V3(-5, 0, 0), V3(5, 0, 0), V3(1, 1, 1), V3(1, 1, 1), 0.3)
	env := b.Envelope()
	if b.Min != env.Min || b.Max != env.Max {
		t.Errorf("Min/Max = [%v, %v], want envelope [%v, %v]", b.Min, b.Max, env.Min, env.Max)
	}
}

func containsAABB(outer, inner AABB) bool {
	return outer.Min.X <= inner.Min.X && outer.Min.Y <= inner.Min.Y && outer.Min.Z <= inner.Min.Z &&
		outer.Max.X >= inner.Max.X && outer.Max.Y >= inner.Max.Y && outer.Max.Z >= inner.Max.Z
}

func TestTriangleArea(t *testing.T) {
	tr := Triangle{V0: V3(0, 0, 0), V1: V3(1, 0, 0), V2: V3(0, 1, 0)}
	if got, want := tr.Area(), float32(0.5); math32.Abs(got-want) > 1e-5 {
		t.Errorf("Area() = %v, want %v", got, want)
	}
}

func TestTriangleGeometricNormal(t *testing.T) {
	tr := Triangle{V0: V3(0, 0, 0), V1: V3(1, 0, 0), V2: V3(0, 1, 0)}
	n := tr.GeometricNormal()
	want := V3(0, 0, 1)
	if !n.Approx(want, 1e-5) {
		t.Errorf("GeometricNormal() = %v, want %v", n, want)
	}
}

func TestTriangleIsDegenerate(t *testing.T) {
	degenerate := Triangle{V0: V3(0, 0, 0), V1: V3(1, 0, 0), V2: V3(2, 0, 0)}
	if !degenerate.IsDegenerate() {
		t.Error("collinear triangle should be degenerate")
	}

	ok := Triangle{V0: V3(0, 0, 0), V1: V3(1, 0, 0), V2: V3(0, 1, 0)}
	if ok.IsDegenerate() {
		t.Error("well-formed triangle should not be degenerate")
	}
}

func TestTriangleBounds(t *testing.T) {
	tr := Triangle{V0: V3(-1, 0, 2), V1: V3(1, 3, -2), V2: V3(0, -1, 0)}
	got := tr.Bounds()
	want := AABB{Min: V3(-1, -1, -2), Max: V3(1, 3, 2)}
	if got != want {
		t.Errorf("Bounds() = %+v, want %+v", got, want)
	}
}
