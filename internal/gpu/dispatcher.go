// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// dispatcher.go defines the GPU dispatch orchestration for the ray-tracing
// traversal kernel. It manages shader compilation, buffer allocation, and
// the single-stage dispatch that mirrors the CPU reference in
// github.com/gogpu/raytrace/traversal.
package gpu

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/traversal.wgsl
var shaderTraversal string

const (
	// traversalWGSizeX and traversalWGSizeY are the workgroup size declared
	// in traversal.wgsl's @workgroup_size(8, 8, 1) attribute.
	traversalWGSizeX = 8
	traversalWGSizeY = 8

	// traversalFenceTimeout is the maximum time to wait for a dispatch to
	// complete before Dispatch returns a GPU timeout error.
	traversalFenceTimeout = 5 * time.Second
)

// TraversalBuffers holds all GPU buffer references for one frame's
// traversal dispatch. Each field maps to one binding in traversal.wgsl.
// Output is a flat storage buffer of packed-RGBA8 u32 pixels rather than a
// storage texture, so the host reads it back with the same buffer-mapping
// path as every other binding here.
type TraversalBuffers struct {
	Camera       hal.Buffer // binding(0) uniform
	GridMetadata hal.Buffer // binding(1) uniform
	CoarseCounts hal.Buffer // binding(2) storage(read)
	FineCells    hal.Buffer // binding(3) storage(read)
	Boxes        hal.Buffer // binding(4) storage(read)
	Triangles    hal.Buffer // binding(5) storage(read)
	Materials    hal.Buffer // binding(6) storage(read)
	SceneConfig  hal.Buffer // binding(7) uniform
	DebugParams  hal.Buffer // binding(8) uniform
	DebugRecord  hal.Buffer // binding(9) storage(read_write)
	Output       hal.Buffer // binding(10) storage(read_write), packed RGBA8 per pixel
}

// TraversalDispatcher owns the compiled kernel and issues one compute pass
// per frame. It mirrors the Vello compute dispatcher's Init/Close/
// AllocateBuffers/Dispatch shape, reduced to the kernel's single stage.
type TraversalDispatcher struct {
	mu sync.RWMutex

	device hal.Device
	queue  hal.Queue

	shaderModule hal.ShaderModule
	bgLayout     hal.BindGroupLayout
	pipeline     hal.ComputePipeline
	pipelineLayout hal.PipelineLayout

	initialized bool
}

// NewTraversalDispatcher creates a dispatcher attached to device and queue.
// It must be initialized with Init() before Dispatch() can be called.
func NewTraversalDispatcher(device hal.Device, queue hal.Queue) *TraversalDispatcher {
	return &TraversalDispatcher{device: device, queue: queue}
}

// halProvider is implemented by a host's GPU device handle when it can hand
// out its underlying HAL device/queue (e.g. gogpu.Context). The host
// application type-asserts to this shape, not raytrace, so the dependency
// stays one-directional.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewTraversalDispatcherFromProvider adapts an external device handle to a
// TraversalDispatcher without the caller needing to import
// github.com/gogpu/wgpu/hal directly. provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewTraversalDispatcherFromProvider(provider any) (*TraversalDispatcher, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("raytrace gpu: device provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("raytrace gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("raytrace gpu: provider HalQueue is not hal.Queue")
	}
	return NewTraversalDispatcher(device, queue), nil
}

// WriteBuffer uploads data to buf at the given byte offset.
func (d *TraversalDispatcher) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	return d.queue.WriteBuffer(buf, offset, data)
}

// readbackFenceTimeout bounds how long a buffer readback waits for the GPU.
const readbackFenceTimeout = 5 * time.Second

// ReadbackBuffer copies size bytes from src (a storage buffer with CopySrc
// usage but no MapRead usage) to CPU memory via a temporary staging buffer.
func (d *TraversalDispatcher) ReadbackBuffer(src hal.Buffer, size uint64) ([]byte, error) {
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raytrace_staging_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("raytrace gpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "raytrace_readback"})
	if err != nil {
		return nil, fmt.Errorf("raytrace gpu: create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raytrace_readback"); err != nil {
		return nil, fmt.Errorf("raytrace gpu: begin readback encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(src, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("raytrace gpu: end readback encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("raytrace gpu: create readback fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("raytrace gpu: submit readback: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, readbackFenceTimeout)
	if err != nil {
		return nil, fmt.Errorf("raytrace gpu: wait for readback: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("raytrace gpu: readback timeout after %v", readbackFenceTimeout)
	}

	out := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("raytrace gpu: read staging buffer: %w", err)
	}
	return out, nil
}

func traversalBindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	uniform := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
	}
	storageRO := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}
	return []gputypes.BindGroupLayoutEntry{
		uniform(0),   // camera
		uniform(1),   // grid metadata
		storageRO(2), // coarse counts
		storageRO(3), // fine cells
		storageRO(4), // boxes
		storageRO(5), // triangles
		storageRO(6), // materials
		uniform(7),    // scene config
		uniform(8),    // debug params
		storageRW(9),  // debug record
		storageRW(10), // output (packed RGBA8 pixels)
	}
}

// Init compiles the traversal shader and creates its compute pipeline. Safe
// to call more than once; later calls are no-ops once initialized.
func (d *TraversalDispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	if err := validateShader("raytrace_traversal", shaderTraversal); err != nil {
		return err
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "raytrace_traversal",
		Source: hal.ShaderSource{WGSL: shaderTraversal},
	})
	if err != nil {
		return fmt.Errorf("raytrace gpu: create shader module: %w", err)
	}
	d.shaderModule = module

	bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "raytrace_traversal_bgl",
		Entries: traversalBindGroupLayoutEntries(),
	})
	if err != nil {
		d.destroyPartialInit()
		return fmt.Errorf("raytrace gpu: create bind group layout: %w", err)
	}
	d.bgLayout = bgLayout

	pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "raytrace_traversal_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		d.destroyPartialInit()
		return fmt.Errorf("raytrace gpu: create pipeline layout: %w", err)
	}
	d.pipelineLayout = pipelineLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "raytrace_traversal",
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		d.destroyPartialInit()
		return fmt.Errorf("raytrace gpu: create compute pipeline: %w", err)
	}
	d.pipeline = pipeline

	slogger().Info("raytrace gpu: traversal pipeline initialized", "shader_bytes", len(shaderTraversal))

	d.initialized = true
	return nil
}

func (d *TraversalDispatcher) destroyPartialInit() {
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipelineLayout != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayout)
		d.pipelineLayout = nil
	}
	if d.bgLayout != nil {
		d.device.DestroyBindGroupLayout(d.bgLayout)
		d.bgLayout = nil
	}
	if d.shaderModule != nil {
		d.device.DestroyShaderModule(d.shaderModule)
		d.shaderModule = nil
	}
}

// Close releases all GPU resources held by the dispatcher. Init must be
// called again before reuse.
func (d *TraversalDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyPartialInit()
	d.initialized = false
}

// WorkgroupCounts returns the (x, y) workgroup counts needed to cover a
// width x height output at the kernel's 8x8 workgroup size (spec.md §6
// "Kernel dispatch").
func WorkgroupCounts(width, height uint32) (uint32, uint32) {
	x := (width + traversalWGSizeX - 1) / traversalWGSizeX
	y := (height + traversalWGSizeY - 1) / traversalWGSizeY
	return x, y
}

func traversalBindGroupEntries(bufs *TraversalBuffers) []gputypes.BindGroupEntry {
	bufEntry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0,
			},
		}
	}
	return []gputypes.BindGroupEntry{
		bufEntry(0, bufs.Camera),
		bufEntry(1, bufs.GridMetadata),
		bufEntry(2, bufs.CoarseCounts),
		bufEntry(3, bufs.FineCells),
		bufEntry(4, bufs.Boxes),
		bufEntry(5, bufs.Triangles),
		bufEntry(6, bufs.Materials),
		bufEntry(7, bufs.SceneConfig),
		bufEntry(8, bufs.DebugParams),
		bufEntry(9, bufs.DebugRecord),
		bufEntry(10, bufs.Output),
	}
}

// dispatchResources tracks per-frame GPU resources for cleanup.
type dispatchResources struct {
	device    hal.Device
	bindGroup hal.BindGroup
	cmdBuf    hal.CommandBuffer
	fence     hal.Fence
}

func (r *dispatchResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
	}
}

// Dispatch encodes and submits one traversal compute pass over a width x
// height output, then blocks until the GPU finishes (spec.md §6 "Kernel
// dispatch").
func (d *TraversalDispatcher) Dispatch(bufs *TraversalBuffers, width, height uint32) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return fmt.Errorf("%w: traversal dispatcher not initialized", ErrNotInitialized)
	}
	if bufs == nil {
		return fmt.Errorf("raytrace gpu: buffers must not be nil")
	}

	res := &dispatchResources{device: d.device}
	defer res.cleanup()

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "raytrace_traversal"})
	if err != nil {
		return fmt.Errorf("raytrace gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raytrace_traversal"); err != nil {
		return fmt.Errorf("raytrace gpu: begin encoding: %w", err)
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "raytrace_traversal_bg",
		Layout:  d.bgLayout,
		Entries: traversalBindGroupEntries(bufs),
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("raytrace gpu: create bind group: %w", err)
	}
	res.bindGroup = bg

	wgX, wgY := WorkgroupCounts(width, height)

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "raytrace_traversal"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(wgX, wgY, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("raytrace gpu: end encoding: %w", err)
	}
	res.cmdBuf = cmdBuf

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("raytrace gpu: create fence: %w", err)
	}
	res.fence = fence

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("raytrace gpu: submit: %w", err)
	}

	ok, err := d.device.Wait(fence, 1, traversalFenceTimeout)
	if err != nil {
		return fmt.Errorf("raytrace gpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("raytrace gpu: GPU timeout after %v", traversalFenceTimeout)
	}

	slogger().Debug("raytrace gpu: dispatched traversal", "width", width, "height", height, "workgroups_x", wgX, "workgroups_y", wgY)
	return nil
}
