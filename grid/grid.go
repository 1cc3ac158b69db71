// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package grid computes the hierarchical uniform grid that the traversal
// kernel uses to accelerate ray-primitive intersection: a scene AABB, four
// nested levels of cell occupancy, and fixed-capacity per-fine-cell
// primitive lists (spec.md §2 "Grid builder (C2)").
package grid

import "github.com/gogpu/raytrace"

// NumLevels is the index of the finest grid level; the grid has
// NumLevels+1 = 4 levels. Level 3 is fine; levels 0-2 are coarse (spec.md §3).
const NumLevels = 3 // index of the finest level; there are NumLevels+1 levels total

// Level describes one level of the grid hierarchy.
type Level struct {
	// Dim is the number of cells along each axis at this level.
	Dim [3]uint32
	// CellSize is the edge length of a cell at this level.
	CellSize float32
}

// CellCount returns dim.x * dim.y * dim.z.
func (l Level) CellCount() uint64 {
	return uint64(l.Dim[0]) * uint64(l.Dim[1]) * uint64(l.Dim[2])
}

// Grid is the built acceleration structure for one scene snapshot.
type Grid struct {
	// Bounds is the scene AABB the grid was built over.
	Bounds raytrace.AABB

	// Levels holds level 0 (coarsest) through level 3 (finest).
	Levels [4]Level

	// CoarseCounts[L] holds one occupancy count per cell of Levels[L], for
	// L in {0,1,2}.
	CoarseCounts [3][]uint32

	// FineCells holds, per fine cell, up to Capacity global primitive
	// indices. len(FineCells[i]) == FineCounts[i], and an empty cell's
	// slice is nil; pack.FineCells zero-fills the unused slots on upload.
	FineCells [][]uint32

	// FineCounts[i] is the number of valid entries in FineCells[i].
	FineCounts []uint32

	// Capacity is the fixed per-fine-cell list capacity K used to build
	// FineCells.
	Capacity uint32

	// NumBoxes and NumTriangles describe the primitive index space:
	// indices [0, NumBoxes) are boxes, [NumBoxes, NumBoxes+NumTriangles)
	// are triangles (spec.md §3 invariant).
	NumBoxes     uint32
	NumTriangles uint32
}

// NumPrimitives returns the total primitive count the grid was built over.
func (g *Grid) NumPrimitives() uint32 {
	return g.NumBoxes + g.NumTriangles
}

// FineLevel returns the finest level (level 3).
func (g *Grid) FineLevel() Level {
	return g.Levels[3]
}

// CellIndex returns the flat row-major index of cell (ix, iy, iz) at the
// given level, matching the layout the buffer packer writes to the
// device-resident coarse-count and fine-cell arrays (spec.md §6).
func CellIndex(level Level, ix, iy, iz uint32) uint32 {
	return iz*level.Dim[1]*level.Dim[0] + iy*level.Dim[0] + ix
}

// clampIndex3 clamps each component of v into [0, dim-1].
func clampIndex3(v [3]int64, dim [3]uint32) [3]uint32 {
	var out [3]uint32
	for i := 0; i < 3; i++ {
		x := v[i]
		if x < 0 {
			x = 0
		}
		if max := int64(dim[i]) - 1; x > max {
			x = max
		}
		out[i] = uint32(x)
	}
	return out
}
