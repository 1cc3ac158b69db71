// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package grid

// MinCellSize is the smallest fine cell size Build will honor; smaller
// requests are clamped up to this value (spec.md §4.2 step 2).
const MinCellSize = 1e-3

// DefaultDimCap is the default componentwise cap on grid dimensions at any
// level, preventing pathologically large allocations from a tiny requested
// cell size relative to a large scene (spec.md §4.2 step 2, §7).
const DefaultDimCap = 128

// GPUFineCellCapacity is the fixed per-fine-cell primitive capacity K baked
// into the traversal kernel's WGSL FineCell struct
// (internal/gpu/shaders/traversal.wgsl: "indices: array<u32, 32>"). WGSL
// cannot size a storage-buffer array at dispatch time, so this is the one
// value the kernel, pack.FineCellRecordSize, and grid.DefaultCapacity must
// all agree on; changing it requires editing the shader too.
const GPUFineCellCapacity = 32

// DefaultCapacity is the default fixed per-fine-cell primitive capacity K
// (spec.md §3: "typically 64-256"), set to GPUFineCellCapacity so a grid
// built with no Option is dispatchable on the GPU path without a manual
// capacity override.
const DefaultCapacity = GPUFineCellCapacity

// Config holds the parameters Build uses to turn a primitive set into a
// four-level grid.
type Config struct {
	// FineCellSize is the requested size of a level-3 (fine) cell along
	// each axis, clamped to [MinCellSize, scene diagonal].
	FineCellSize float32
	// DimCap bounds dim_L componentwise at every level.
	DimCap uint32
	// Capacity is the fixed per-fine-cell primitive list capacity K.
	Capacity uint32
}

// defaultConfig returns the configuration Build uses when no Option
// overrides a field.
func defaultConfig() Config {
	return Config{
		FineCellSize: 1.0,
		DimCap:       DefaultDimCap,
		Capacity:     DefaultCapacity,
	}
}

// Option configures a Build call.
type Option func(*Config)

// WithFineCellSize requests a level-3 cell size. The actual size used is
// clamped to [MinCellSize, scene diagonal] (spec.md §4.2 step 2).
func WithFineCellSize(size float32) Option {
	return func(c *Config) {
		c.FineCellSize = size
	}
}

// WithGridDimCap overrides the componentwise dimension cap DIM_MAX applied
// at every level.
func WithGridDimCap(dimCap uint32) Option {
	return func(c *Config) {
		if dimCap < 1 {
			dimCap = 1
		}
		c.DimCap = dimCap
	}
}

// WithMaxPerCellCapacity overrides the fixed fine-cell list capacity K.
//
// A grid built with a capacity other than GPUFineCellCapacity cannot be
// dispatched on the GPU path: the kernel's FineCell.indices array is a
// compile-time-fixed array<u32, 32>, so a record packed with a different
// stride reads garbage indices and counts. Orchestrator.renderGPU rejects
// such a grid; use this option only for the CPU reference traversal.
func WithMaxPerCellCapacity(k uint32) Option {
	return func(c *Config) {
		if k < 1 {
			k = 1
		}
		c.Capacity = k
	}
}
