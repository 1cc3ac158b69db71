package raytrace

import "github.com/go-gl/mathgl/mgl32"

// Camera describes the pinhole camera the traversal kernel generates
// primary rays from (spec.md §3, §4.4 step 1).
type Camera struct {
	Position Vec3
	Target   Vec3
	Up       Vec3

	FovYRadians float32
	Aspect      float32
	Near        float32
	Far         float32
}

// DefaultCamera returns a camera at (0,1,4) looking at the origin with a
// 60-degree vertical FOV, a reasonable starting point for cmd/rttrace and
// tests.
func DefaultCamera() Camera {
	return Camera{
		Position:    V3(0, 1, 4),
		Target:      V3(0, 0, 0),
		Up:          V3(0, 1, 0),
		FovYRadians: mgl32.DegToRad(60),
		Aspect:      16.0 / 9.0,
		Near:        0.1,
		Far:         1000,
	}
}

// ViewMatrix returns the camera's world-to-view transform.
func (c Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position.ToMgl(), c.Target.ToMgl(), c.Up.ToMgl())
}

// ProjMatrix returns the camera's view-to-clip perspective projection.
func (c Camera) ProjMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.FovYRadians, c.Aspect, c.Near, c.Far)
}

// InverseViewProj returns the inverse of Proj*View. The traversal kernel
// does not use this matrix: it generates rays from the pre-scaled
// right/up basis computed by cameraParams (orchestrator.go), not by
// unprojecting screen coordinates. InverseViewProj is a general-purpose
// camera utility for callers that do need to unproject a point (e.g.
// picking, debug tooling).
func (c Camera) InverseViewProj() mgl32.Mat4 {
	vp := c.ProjMatrix().Mul4(c.ViewMatrix())
	return vp.Inv()
}

// Forward returns the normalized look direction.
func (c Camera) Forward() Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// CameraProvider supplies the current camera pose for each frame
// (spec.md §6: external collaborator, orbit/fly controllers are out of
// scope for the core).
type CameraProvider interface {
	Camera() Camera
}

// CameraProviderFunc adapts a plain function to CameraProvider.
type CameraProviderFunc func() Camera

// Camera calls f.
func (f CameraProviderFunc) Camera() Camera { return f() }

// StaticCamera is a CameraProvider that always returns the same camera.
type StaticCamera struct{ Cam Camera }

// Camera returns s.Cam.
func (s StaticCamera) Camera() Camera { return s.Cam }
