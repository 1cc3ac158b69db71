package raytrace

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaultCameraForward(t *testing.T) {
	c := DefaultCamera()
	f := c.Forward()
	if math32.Abs(f.Length()-1) > 1e-4 {
		t.Errorf("Forward() length = %v, want 1", f.Length())
	}
}

func TestCameraViewMatrixLooksAtTarget(t *testing.T) {
	c := Camera{
		Position: V3(0, 0, 5),
		Target:   V3(0, 0, 0),
		Up:       V3(0, 1, 0),
	}
	view := c.ViewMatrix()
	// The target transformed by view should land on the -Z axis at the
	// camera's distance from it.
	target4 := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if math32.Abs(target4[0]) > 1e-4 || math32.Abs(target4[1]) > 1e-4 {
		t.Errorf("view-space target = %v, want x=y=0", target4)
	}
}

func TestCameraInverseViewProjIsInvertible(t *testing.T) {
	c := DefaultCamera()
	ivp := c.InverseViewProj()
	// A correctly computed inverse should not collapse to the zero matrix.
	allZero := true
	for i := 0; i < 16; i++ {
		if ivp[i] != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("InverseViewProj() is the zero matrix, want a valid inverse")
	}
}

func TestCameraProviderFunc(t *testing.T) {
	want := DefaultCamera()
	var p CameraProvider = CameraProviderFunc(func() Camera { return want })
	if got := p.Camera(); got != want {
		t.Errorf("CameraProviderFunc.Camera() = %+v, want %+v", got, want)
	}
}

func TestStaticCamera(t *testing.T) {
	want := DefaultCamera()
	p := StaticCamera{Cam: want}
	if got := p.Camera(); got != want {
		t.Errorf("StaticCamera.Camera() = %+v, want %+v", got, want)
	}
}
