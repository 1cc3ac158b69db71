package raytrace

import "errors"

// Sentinel errors returned by the root package and its sub-packages.
// Callers should use errors.Is against these values; wrapped context is
// added with fmt.Errorf("...: %w", err) at the call site.
var (
	// ErrDeviceLost is returned by Orchestrator.RenderFrame when the GPU
	// device has failed repeatedly and the orchestrator has given up
	// (spec.md §7: "repeated failures are fatal").
	ErrDeviceLost = errors.New("raytrace: device lost")

	// ErrDispatchFailed wraps a single failed compute dispatch. A failed
	// frame is logged and skipped (spec.md §7); it only becomes
	// ErrDeviceLost after WithMaxFrameFailures consecutive occurrences.
	ErrDispatchFailed = errors.New("raytrace: compute dispatch failed")

	// ErrGridRebuildFailed is returned when a scene reload's grid build
	// cannot complete. The orchestrator keeps rendering the previous scene
	// and grid (spec.md §7: "grid rebuild failures ... keep the previous
	// frame's grid valid").
	ErrGridRebuildFailed = errors.New("raytrace: grid rebuild failed")

	// ErrEmptyScene reports a scene with no primitives. grid.Build does not
	// return it: an empty scene yields a degenerate 1x1x1 grid and a nil
	// error.
	ErrEmptyScene = errors.New("raytrace: scene has no primitives")

	// ErrNoDevice is returned when an operation requires a GPU device
	// handle but none was supplied and no software fallback is configured.
	ErrNoDevice = errors.New("raytrace: no GPU device available")

	// ErrBufferTooSmall is returned by pack functions when a destination
	// byte slice is smaller than the layout requires.
	ErrBufferTooSmall = errors.New("raytrace: destination buffer too small")

	// ErrSceneLoadFailed wraps a SceneSource.Load failure surfaced through
	// the orchestrator's reload path.
	ErrSceneLoadFailed = errors.New("raytrace: scene load failed")
)
