// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNotInitialized is returned when Dispatch is called before Init.
var ErrNotInitialized = errors.New("raytrace gpu: dispatcher not initialized")

// TraversalBufferSizes carries the byte sizes of every binding for one
// frame, computed host-side by github.com/gogpu/raytrace/pack from the
// scene and grid being rendered.
type TraversalBufferSizes struct {
	Camera       int
	GridMetadata int
	CoarseCounts int
	FineCells    int
	Boxes        int
	Triangles    int
	Materials    int
	SceneConfig  int
	DebugParams  int
	DebugRecord  int
	Output       int // width * height * 4 bytes
}

func (d *TraversalDispatcher) createBuffer(label string, size int, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minSize = 4
	n := size
	if n < minSize {
		n = minSize
	}
	return d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(n),
		Usage: usage,
	})
}

// AllocateBuffers creates GPU buffers for one frame sized by sizes. The
// caller fills them via the queue (WriteBuffer) using github.com/gogpu/
// raytrace/pack's packers before calling Dispatch. The caller must call
// DestroyBuffers once the buffers are no longer needed.
func (d *TraversalDispatcher) AllocateBuffers(sizes TraversalBufferSizes) (*TraversalBuffers, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}

	uniformCPU := gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	storageCPU := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageRW := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc

	bufs := &TraversalBuffers{}
	type spec struct {
		target *hal.Buffer
		label  string
		size   int
		usage  gputypes.BufferUsage
	}
	specs := []spec{
		{&bufs.Camera, "raytrace_camera", sizes.Camera, uniformCPU},
		{&bufs.GridMetadata, "raytrace_grid_metadata", sizes.GridMetadata, uniformCPU},
		{&bufs.CoarseCounts, "raytrace_coarse_counts", sizes.CoarseCounts, storageCPU},
		{&bufs.FineCells, "raytrace_fine_cells", sizes.FineCells, storageCPU},
		{&bufs.Boxes, "raytrace_boxes", sizes.Boxes, storageCPU},
		{&bufs.Triangles, "raytrace_triangles", sizes.Triangles, storageCPU},
		{&bufs.Materials, "raytrace_materials", sizes.Materials, storageCPU},
		{&bufs.SceneConfig, "raytrace_scene_config", sizes.SceneConfig, uniformCPU},
		{&bufs.DebugParams, "raytrace_debug_params", sizes.DebugParams, uniformCPU},
		{&bufs.DebugRecord, "raytrace_debug_record", sizes.DebugRecord, storageRW},
		{&bufs.Output, "raytrace_output", sizes.Output, storageRW},
	}

	for _, s := range specs {
		buf, err := d.createBuffer(s.label, s.size, s.usage)
		if err != nil {
			d.DestroyBuffers(bufs)
			return nil, fmt.Errorf("raytrace gpu: create %s buffer: %w", s.label, err)
		}
		*s.target = buf
	}

	return bufs, nil
}

// DestroyBuffers releases all GPU buffers in bufs. After this call the
// buffers must not be used.
func (d *TraversalDispatcher) DestroyBuffers(bufs *TraversalBuffers) {
	if bufs == nil {
		return
	}
	destroy := func(b hal.Buffer) {
		if b != nil {
			d.device.DestroyBuffer(b)
		}
	}
	destroy(bufs.Camera)
	destroy(bufs.GridMetadata)
	destroy(bufs.CoarseCounts)
	destroy(bufs.FineCells)
	destroy(bufs.Boxes)
	destroy(bufs.Triangles)
	destroy(bufs.Materials)
	destroy(bufs.SceneConfig)
	destroy(bufs.DebugParams)
	destroy(bufs.DebugRecord)
	destroy(bufs.Output)
	*bufs = TraversalBuffers{}
}
