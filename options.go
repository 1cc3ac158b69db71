package raytrace

import "log/slog"

// OrchestratorOption configures an Orchestrator during construction.
//
// Example:
//
//	orch, err := raytrace.NewOrchestrator(device, camera, source, presenter,
//	    raytrace.WithMaxBounces(4),
//	    raytrace.WithShowGrid(true),
//	)
type OrchestratorOption func(*orchestratorOptions)

// orchestratorOptions holds optional configuration for Orchestrator.
type orchestratorOptions struct {
	maxBounces       uint32
	showGrid         bool
	debugPixel       [2]uint32
	debugEnabled     bool
	lodFactor        float32
	maxFrameFailures int
	logger           *slog.Logger
	useSoftware      bool
}

// defaultOrchestratorOptions returns the default orchestrator configuration.
func defaultOrchestratorOptions() orchestratorOptions {
	return orchestratorOptions{
		maxBounces:       8,
		showGrid:         false,
		debugEnabled:     false,
		lodFactor:        1,
		maxFrameFailures: 8,
		logger:           nil,
	}
}

// WithMaxBounces sets the reflection bounce cap (spec.md §4.4 step 7,
// §6 "max_bounces"). Values above 8 are clamped to 8, the hard cap spec.md
// §5 mandates for bounding the worst case. Only the software fallback path
// (package traversal) reads this value; the WGSL kernel has no bounce-cap
// field in its uniforms and always uses a cap of 8.
func WithMaxBounces(n uint32) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if n > 8 {
			n = 8
		}
		o.maxBounces = n
	}
}

// WithShowGrid overlays fine-cell boundaries as green seams on hit
// surfaces (spec.md §6 "show_grid").
func WithShowGrid(show bool) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.showGrid = show
	}
}

// WithDebugPixel designates the single pixel the debug probe (C6) records
// each frame (spec.md §4.6).
func WithDebugPixel(x, y uint32) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.debugPixel = [2]uint32{x, y}
		o.debugEnabled = true
	}
}

// WithLODFactor sets the apparent-size quality dial forwarded to the
// kernel's camera uniform (spec.md §9 open question, resolved in
// SPEC_FULL.md §15 as an optional quality dial rather than a hard skip).
func WithLODFactor(factor float32) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.lodFactor = factor
	}
}

// WithMaxFrameFailures sets the number of consecutive device dispatch
// failures tolerated as skipped frames before RenderFrame returns
// ErrDeviceLost (spec.md §7 "repeated failures are fatal").
func WithMaxFrameFailures(n int) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if n < 1 {
			n = 1
		}
		o.maxFrameFailures = n
	}
}

// WithLogger attaches a logger to the orchestrator, independent of the
// package-wide logger set via SetLogger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.logger = l
	}
}

// WithSoftwareFallback forces the orchestrator to render every frame with
// the CPU reference traversal (package traversal) instead of dispatching
// to the GPU. Useful for headless testing and for hosts with no available
// GPU backend (mirrors the teacher's Backend/SoftwareRenderer duality).
func WithSoftwareFallback(enabled bool) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.useSoftware = enabled
	}
}
