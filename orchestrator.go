// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"

	"github.com/gogpu/raytrace/grid"
	"github.com/gogpu/raytrace/internal/gpu"
	"github.com/gogpu/raytrace/internal/parallel"
	"github.com/gogpu/raytrace/pack"
	"github.com/gogpu/raytrace/traversal"
)

// Orchestrator drives one frame at a time: it asks the CameraProvider for
// the current pose, rebuilds the grid when the scene changes, packs the
// host-resident buffers, dispatches the traversal kernel (or walks the CPU
// reference when configured for software fallback), and hands the finished
// frame to a Presenter (spec.md §1 "Frame orchestrator (C5)").
type Orchestrator struct {
	mu sync.Mutex

	opts orchestratorOptions

	cameraProvider CameraProvider
	sceneSource    SceneSource
	presenter      Presenter

	scene Scene
	grid  *grid.Grid

	dispatcher *gpu.TraversalDispatcher
	bufs       *gpu.TraversalBuffers
	bufSizes   gpu.TraversalBufferSizes

	startTime           time.Time
	consecutiveFailures int

	lastDebug    DebugRecord
	lastDebugSet bool

	frameCount atomic.Uint64
}

// NewOrchestrator creates an Orchestrator. When WithSoftwareFallback is not
// set, device must be non-nil and able to hand out its underlying HAL
// device/queue (spec.md §6 "external interfaces"); the compute pipeline is
// compiled eagerly so the first RenderFrame call doesn't pay for shader
// compilation.
func NewOrchestrator(device DeviceHandle, camera CameraProvider, source SceneSource, presenter Presenter, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		opts:           defaultOrchestratorOptions(),
		cameraProvider: camera,
		sceneSource:    source,
		presenter:      presenter,
		startTime:      time.Now(),
	}
	for _, opt := range opts {
		opt(&o.opts)
	}

	if !o.opts.useSoftware {
		if device == nil {
			return nil, fmt.Errorf("raytrace: %w", ErrNoDevice)
		}
		dispatcher, err := gpu.NewTraversalDispatcherFromProvider(device)
		if err != nil {
			return nil, fmt.Errorf("raytrace: %w", err)
		}
		if err := dispatcher.Init(); err != nil {
			return nil, fmt.Errorf("raytrace: init traversal dispatcher: %w", err)
		}
		o.dispatcher = dispatcher
	}

	return o, nil
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.opts.logger != nil {
		return o.opts.logger
	}
	return Logger()
}

// LoadScene fetches a new scene from the configured SceneSource and rebuilds
// the grid over it. A failed load or grid rebuild leaves the previously
// loaded scene and grid untouched so RenderFrame keeps producing the last
// good frame (spec.md §7 "grid rebuild failures ... keep the previous
// frame's grid valid").
func (o *Orchestrator) LoadScene(ctx context.Context) error {
	scene, err := o.sceneSource.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSceneLoadFailed, err)
	}

	g, report, err := grid.Build(scene, 0)
	if err != nil {
		o.logger().Warn("raytrace: grid rebuild failed, keeping previous scene", "error", err)
		return fmt.Errorf("%w: %w", ErrGridRebuildFailed, err)
	}
	if report.OverflowCells > 0 {
		o.logger().Warn("raytrace: fine cell capacity exceeded during grid build",
			"overflow_cells", report.OverflowCells, "overflow_drops", report.OverflowDrops)
	}
	if report.DegenerateSkipped > 0 {
		o.logger().Debug("raytrace: skipped degenerate primitives", "count", report.DegenerateSkipped)
	}
	if report.CellSizeClamped {
		o.logger().Warn("raytrace: requested fine cell size clamped to grid.MinCellSize")
	}
	if report.DimensionsClamped {
		o.logger().Warn("raytrace: grid dimensions clamped to configured DimCap")
	}

	o.mu.Lock()
	o.scene = scene
	o.grid = g
	o.mu.Unlock()

	return nil
}

// elapsed returns the time since the orchestrator was created, the value
// fed to box motion and the camera uniform's elapsed_time field (spec.md §3
// "motion", §6 "Camera uniform").
func (o *Orchestrator) elapsed() float32 {
	return float32(time.Since(o.startTime).Seconds())
}

// cameraParams resolves the current camera pose into the kernel's ray
// generation basis. The camera uniform has no fovY/aspect field (spec.md
// §6), so Right and Up are pre-scaled by aspect*tan(fovY/2) and tan(fovY/2)
// here; the kernel's ray generation is then a plain
// normalize(forward + right*ndc_x + up*ndc_y) (see DESIGN.md).
func cameraParams(cam Camera, elapsed, lodFactor float32, showGrid bool) pack.CameraParams {
	forward := cam.Forward()
	right := forward.Cross(cam.Up).Normalize()
	up := right.Cross(forward).Normalize()

	halfTan := math32.Tan(cam.FovYRadians / 2)

	return pack.CameraParams{
		Position:     cam.Position,
		Forward:      forward,
		Right:        right.Scale(halfTan * cam.Aspect),
		Up:           up.Scale(halfTan),
		ElapsedTime:  elapsed,
		LODFactor:    lodFactor,
		MinPixelSize: 0,
		ShowGrid:     showGrid,
	}
}

// RenderFrame renders one width x height frame and hands it to the
// configured Presenter. LoadScene must have been called at least once
// before the first call.
func (o *Orchestrator) RenderFrame(ctx context.Context, width, height uint32) error {
	o.mu.Lock()
	scene := o.scene
	g := o.grid
	o.mu.Unlock()

	if g == nil {
		if err := o.LoadScene(ctx); err != nil {
			return err
		}
		o.mu.Lock()
		scene, g = o.scene, o.grid
		o.mu.Unlock()
	}

	elapsed := o.elapsed()
	cam := o.cameraProvider.Camera()

	var rgba []byte
	var err error
	if o.opts.useSoftware {
		rgba = o.renderSoftware(scene, g, cam, width, height, elapsed)
	} else {
		rgba, err = o.renderGPU(scene, g, cam, width, height, elapsed)
	}

	if err != nil {
		o.consecutiveFailures++
		o.logger().Warn("raytrace: frame dispatch failed, skipping", "error", err, "consecutive_failures", o.consecutiveFailures)
		if o.consecutiveFailures >= o.opts.maxFrameFailures {
			return fmt.Errorf("%w: %d consecutive dispatch failures: %w", ErrDeviceLost, o.consecutiveFailures, err)
		}
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	o.consecutiveFailures = 0

	o.frameCount.Add(1)
	return o.presenter.Present(width, height, rgba)
}

// FrameCount returns the number of frames successfully presented so far.
func (o *Orchestrator) FrameCount() uint64 {
	return o.frameCount.Load()
}

// LastDebugRecord returns the most recently captured debug record and
// whether one has been captured yet (spec.md §4.6 "Debug probe (C6)").
func (o *Orchestrator) LastDebugRecord() (DebugRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastDebug, o.lastDebugSet
}

// renderSoftware walks the CPU reference traversal one scanline at a time
// across a worker pool, producing the same tightly packed RGBA8 buffer the
// GPU path produces (spec.md §5 "Output").
func (o *Orchestrator) renderSoftware(scene Scene, g *grid.Grid, cam Camera, width, height uint32, elapsed float32) []byte {
	rgba := make([]byte, int(width)*int(height)*4)
	params := traversal.Params{
		MaxBounces:        o.opts.maxBounces,
		ShowGrid:          o.opts.showGrid,
		ReflectivityFloor: traversal.DefaultParams().ReflectivityFloor,
	}

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	var debugMu sync.Mutex
	var debug DebugRecord
	debugFound := false

	work := make([]func(), height)
	for y := uint32(0); y < height; y++ {
		y := y
		work[y] = func() {
			rowOff := int(y) * int(width) * 4
			for x := uint32(0); x < width; x++ {
				col, rec := traversal.TracePixel(scene, g, cam, x, y, width, height, elapsed, params)
				writeRGBA8(rgba, rowOff+int(x)*4, col)

				if o.opts.debugEnabled && x == o.opts.debugPixel[0] && y == o.opts.debugPixel[1] {
					debugMu.Lock()
					debug, debugFound = rec, true
					debugMu.Unlock()
				}
			}
		}
	}
	pool.ExecuteAll(work)

	if debugFound {
		o.mu.Lock()
		o.lastDebug, o.lastDebugSet = debug, true
		o.mu.Unlock()
	}

	return rgba
}

// writeRGBA8 quantizes a linear color to 8-bit RGBA and writes it at buf[off:off+4].
// A non-finite color (spec.md §7 "NaN sentinel") is written as magenta.
func writeRGBA8(buf []byte, off int, col Vec3) {
	if !col.Finite() {
		buf[off], buf[off+1], buf[off+2], buf[off+3] = 255, 0, 255, 255
		return
	}
	buf[off] = quantize(col.X)
	buf[off+1] = quantize(col.Y)
	buf[off+2] = quantize(col.Z)
	buf[off+3] = 255
}

func quantize(c float32) byte {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return byte(c*255 + 0.5)
}

// renderGPU packs the scene and grid into the kernel's buffer layouts,
// dispatches the traversal kernel, and reads back the output and debug
// buffers (spec.md §4.4 "Kernel dispatch", §4.6 "Debug probe").
func (o *Orchestrator) renderGPU(scene Scene, g *grid.Grid, cam Camera, width, height uint32, elapsed float32) ([]byte, error) {
	if g.Capacity != grid.GPUFineCellCapacity {
		return nil, fmt.Errorf("raytrace: grid capacity %d does not match GPU kernel's fixed FineCell.indices capacity %d (rebuild without grid.WithMaxPerCellCapacity, or use WithSoftwareFallback)", g.Capacity, grid.GPUFineCellCapacity)
	}

	sizes := gpu.TraversalBufferSizes{
		Camera:       pack.CameraSize,
		GridMetadata: pack.GridMetadataSize,
		CoarseCounts: pack.CoarseCountsSize(g),
		FineCells:    pack.FineCellsSize(g),
		Boxes:        pack.BoxesSize(scene.Boxes),
		Triangles:    pack.TrianglesSize(scene.Triangles),
		Materials:    pack.MaterialsSize(scene.Materials),
		SceneConfig:  pack.SceneConfigSize,
		DebugParams:  pack.DebugParamsSize,
		DebugRecord:  pack.DebugRecordSize,
		Output:       int(width) * int(height) * 4,
	}

	if o.bufs == nil || sizes != o.bufSizes {
		if o.bufs != nil {
			o.dispatcher.DestroyBuffers(o.bufs)
		}
		bufs, err := o.dispatcher.AllocateBuffers(sizes)
		if err != nil {
			return nil, fmt.Errorf("allocate buffers: %w", err)
		}
		o.bufs, o.bufSizes = bufs, sizes
	}
	bufs := o.bufs

	if err := o.uploadFrame(bufs, scene, g, cam, width, height, elapsed); err != nil {
		return nil, fmt.Errorf("upload frame: %w", err)
	}

	if err := o.dispatcher.Dispatch(bufs, width, height); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	rgba, err := o.dispatcher.ReadbackBuffer(bufs.Output, uint64(sizes.Output))
	if err != nil {
		return nil, fmt.Errorf("readback output: %w", err)
	}

	if o.opts.debugEnabled {
		debugBytes, err := o.dispatcher.ReadbackBuffer(bufs.DebugRecord, uint64(sizes.DebugRecord))
		if err != nil {
			return nil, fmt.Errorf("readback debug record: %w", err)
		}
		rec, err := pack.UnpackDebugRecord(debugBytes)
		if err != nil {
			return nil, fmt.Errorf("unpack debug record: %w", err)
		}
		o.mu.Lock()
		o.lastDebug, o.lastDebugSet = rec, true
		o.mu.Unlock()
	}

	return rgba, nil
}

func (o *Orchestrator) uploadFrame(bufs *gpu.TraversalBuffers, scene Scene, g *grid.Grid, cam Camera, width, height uint32, elapsed float32) error {
	camBuf := make([]byte, pack.CameraSize)
	if err := pack.Camera(camBuf, cameraParams(cam, elapsed, o.opts.lodFactor, o.opts.showGrid)); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.Camera, 0, camBuf); err != nil {
		return err
	}

	gridBuf := make([]byte, pack.GridMetadataSize)
	if err := pack.GridMetadata(gridBuf, g); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.GridMetadata, 0, gridBuf); err != nil {
		return err
	}

	coarseBuf := make([]byte, pack.CoarseCountsSize(g))
	if err := pack.CoarseCounts(coarseBuf, g); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.CoarseCounts, 0, coarseBuf); err != nil {
		return err
	}

	fineBuf := make([]byte, pack.FineCellsSize(g))
	if err := pack.FineCells(fineBuf, g); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.FineCells, 0, fineBuf); err != nil {
		return err
	}

	boxesBuf := make([]byte, pack.BoxesSize(scene.Boxes))
	if err := pack.Boxes(boxesBuf, scene.Boxes); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.Boxes, 0, boxesBuf); err != nil {
		return err
	}

	trianglesBuf := make([]byte, pack.TrianglesSize(scene.Triangles))
	if err := pack.Triangles(trianglesBuf, scene.Triangles); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.Triangles, 0, trianglesBuf); err != nil {
		return err
	}

	materialsBuf := make([]byte, pack.MaterialsSize(scene.Materials))
	if err := pack.Materials(materialsBuf, scene.Materials); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.Materials, 0, materialsBuf); err != nil {
		return err
	}

	sceneConfigBuf := make([]byte, pack.SceneConfigSize)
	if err := pack.SceneConfig(sceneConfigBuf, g.NumBoxes, g.NumTriangles, width, height); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.SceneConfig, 0, sceneConfigBuf); err != nil {
		return err
	}

	debugParamsBuf := make([]byte, pack.DebugParamsSize)
	probe := DebugProbe{X: o.opts.debugPixel[0], Y: o.opts.debugPixel[1], Enabled: o.opts.debugEnabled}
	if err := pack.DebugParams(debugParamsBuf, probe); err != nil {
		return err
	}
	if err := o.dispatcher.WriteBuffer(bufs.DebugParams, 0, debugParamsBuf); err != nil {
		return err
	}

	return nil
}

// Close releases GPU resources held by the orchestrator. Safe to call on a
// software-fallback orchestrator, where it is a no-op.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dispatcher == nil {
		return
	}
	if o.bufs != nil {
		o.dispatcher.DestroyBuffers(o.bufs)
		o.bufs = nil
	}
	o.dispatcher.Close()
}
