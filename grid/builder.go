// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package grid

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/raytrace"
)

// BuildReport summarizes diagnostics from a Build call, surfaced so the
// caller can log or act on them (spec.md §4.2 "Edge cases": "Fine cell
// capacity exceeded ... Log once per build.").
type BuildReport struct {
	// OverflowCells is the number of distinct fine cells that hit capacity
	// during assignment.
	OverflowCells int
	// OverflowDrops is the total number of primitive assignments dropped
	// because their target cell was already at capacity.
	OverflowDrops int
	// DegenerateSkipped counts primitives skipped for having no volume
	// (spec.md §4.2 "Edge cases").
	DegenerateSkipped int
	// CellSizeClamped is true when the requested fine cell size was
	// clamped up to MinCellSize (spec.md §7).
	CellSizeClamped bool
	// DimensionsClamped is true when any level's dimension was clamped
	// down to the configured DimCap (spec.md §7).
	DimensionsClamped bool
}

// Build computes the four-level grid over a scene's boxes and triangles at
// time t, following the procedure in spec.md §4.2.
//
// An empty scene (no primitives, or a degenerate bound) produces a
// degenerate unit grid with every level sized 1x1x1 and zero primitives,
// rather than an error — this matches spec.md §4.2 step 1.
func Build(scene raytrace.Scene, t float32, opts ...Option) (*Grid, BuildReport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	bounds := scene.Bounds(t)
	if bounds.IsEmpty() {
		var report BuildReport
		for _, b := range scene.Boxes {
			if isDegenerateBox(b) {
				report.DegenerateSkipped++
			}
		}
		for _, tr := range scene.Triangles {
			if tr.IsDegenerate() {
				report.DegenerateSkipped++
			}
		}
		return buildDegenerate(cfg), report, nil
	}

	diag := bounds.DiagonalLength()
	cellSize3 := clampFloat(cfg.FineCellSize, MinCellSize, diag)

	report := BuildReport{
		CellSizeClamped: cellSize3 != cfg.FineCellSize,
	}

	var levels [4]Level
	extent := bounds.Diagonal()
	for l := 0; l < 4; l++ {
		size := cellSize3 * float32(uint32(1)<<uint(3-l))
		rawDim := [3]uint32{
			dimFor(extent.X, size),
			dimFor(extent.Y, size),
			dimFor(extent.Z, size),
		}
		clampedDim := [3]uint32{
			clampDim(rawDim[0], cfg.DimCap),
			clampDim(rawDim[1], cfg.DimCap),
			clampDim(rawDim[2], cfg.DimCap),
		}
		if clampedDim != rawDim {
			report.DimensionsClamped = true
		}
		levels[l] = Level{
			CellSize: size,
			Dim:      clampedDim,
		}
	}

	g := &Grid{
		Bounds:       bounds,
		Levels:       levels,
		Capacity:     cfg.Capacity,
		NumBoxes:     uint32(len(scene.Boxes)),
		NumTriangles: uint32(len(scene.Triangles)),
	}

	fineCellCount := levels[3].CellCount()
	g.FineCells = make([][]uint32, fineCellCount)
	g.FineCounts = make([]uint32, fineCellCount)

	assign := func(globalIdx uint32, bound raytrace.AABB) {
		clipped := bound.Clip(bounds)
		if clipped.IsEmpty() {
			return
		}
		minCell := cellCoord(clipped.Min, bounds.Min, cellSize3, levels[3].Dim)
		maxCell := cellCoord(clipped.Max, bounds.Min, cellSize3, levels[3].Dim)

		for iz := minCell[2]; iz <= maxCell[2]; iz++ {
			for iy := minCell[1]; iy <= maxCell[1]; iy++ {
				for ix := minCell[0]; ix <= maxCell[0]; ix++ {
					idx := CellIndex(levels[3], ix, iy, iz)
					if g.FineCounts[idx] >= cfg.Capacity {
						report.OverflowDrops++
						if g.FineCounts[idx] == cfg.Capacity {
							report.OverflowCells++
						}
						// Bump past Capacity so this cell is only counted once.
						g.FineCounts[idx] = cfg.Capacity + 1
						continue
					}
					if g.FineCells[idx] == nil {
						g.FineCells[idx] = make([]uint32, 0, minInt(int(cfg.Capacity), 8))
					}
					g.FineCells[idx] = append(g.FineCells[idx], globalIdx)
					g.FineCounts[idx]++
				}
			}
		}
	}

	for i, b := range scene.Boxes {
		if isDegenerateBox(b) {
			report.DegenerateSkipped++
			continue
		}
		assign(uint32(i), b.Envelope())
	}
	for i, tr := range scene.Triangles {
		if tr.IsDegenerate() {
			report.DegenerateSkipped++
			continue
		}
		assign(g.NumBoxes+uint32(i), tr.Bounds())
	}

	// FineCounts may have been bumped to Capacity+1 as an overflow marker;
	// clamp back down so callers see the true stored length.
	for i, c := range g.FineCounts {
		if c > cfg.Capacity {
			g.FineCounts[i] = cfg.Capacity
		}
	}

	buildCoarseOccupancy(g)

	return g, report, nil
}

// buildDegenerate returns a zero-primitive grid sized 1x1x1 at every
// level, centered on a unit box at the origin.
func buildDegenerate(cfg Config) *Grid {
	s3 := clampFloat(cfg.FineCellSize, MinCellSize, 1)
	var levels [4]Level
	for l := 0; l < 4; l++ {
		levels[l] = Level{
			Dim:      [3]uint32{1, 1, 1},
			CellSize: s3 * float32(uint32(1)<<uint(3-l)),
		}
	}
	g := &Grid{
		Bounds:   raytrace.AABB{Min: raytrace.V3(-0.5, -0.5, -0.5), Max: raytrace.V3(0.5, 0.5, 0.5)},
		Levels:   levels,
		Capacity: cfg.Capacity,
	}
	g.FineCells = make([][]uint32, 1)
	g.FineCounts = make([]uint32, 1)
	for l := 0; l < 3; l++ {
		g.CoarseCounts[l] = make([]uint32, 1)
	}
	return g
}

// buildCoarseOccupancy derives CoarseCounts[0..2] from the fine-cell
// assignments already computed, per spec.md §4.2 step 5: a primitive
// counts toward a coarse cell iff it appears in any fine cell the coarse
// cell contains.
func buildCoarseOccupancy(g *Grid) {
	fineDim := g.Levels[3].Dim

	for l := 0; l < 3; l++ {
		ratio := uint32(1) << uint(3-l)
		level := g.Levels[l]
		counts := make([]uint32, level.CellCount())
		seen := make(map[uint32]map[uint32]struct{})

		for fz := uint32(0); fz < fineDim[2]; fz++ {
			for fy := uint32(0); fy < fineDim[1]; fy++ {
				for fx := uint32(0); fx < fineDim[0]; fx++ {
					fidx := CellIndex(g.Levels[3], fx, fy, fz)
					n := g.FineCounts[fidx]
					if n == 0 {
						continue
					}
					cx := clampU32(fx/ratio, level.Dim[0]-1)
					cy := clampU32(fy/ratio, level.Dim[1]-1)
					cz := clampU32(fz/ratio, level.Dim[2]-1)
					cidx := CellIndex(level, cx, cy, cz)

					set, ok := seen[cidx]
					if !ok {
						set = make(map[uint32]struct{})
						seen[cidx] = set
					}
					for _, prim := range g.FineCells[fidx][:n] {
						if _, dup := set[prim]; dup {
							continue
						}
						set[prim] = struct{}{}
						if counts[cidx] < math.MaxUint32 {
							counts[cidx]++
						}
					}
				}
			}
		}
		g.CoarseCounts[l] = counts
	}
}

func isDegenerateBox(b raytrace.Box) bool {
	return b.HalfSize.X <= 0 || b.HalfSize.Y <= 0 || b.HalfSize.Z <= 0
}

func dimFor(extent, cellSize float32) uint32 {
	if extent <= 0 {
		return 1
	}
	n := math32.Ceil(extent / cellSize)
	if n < 1 {
		n = 1
	}
	return uint32(n)
}

func clampDim(d, dimCap uint32) uint32 {
	if d < 1 {
		return 1
	}
	if d > dimCap {
		return dimCap
	}
	return d
}

func clampFloat(v, lo, hi float32) float32 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU32(v, max uint32) uint32 {
	if v > max {
		return max
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// cellCoord converts a world-space point to fine-grid cell coordinates,
// clamped into [0, dim-1] (spec.md §4.2 step 4).
func cellCoord(p, origin raytrace.Vec3, cellSize float32, dim [3]uint32) [3]uint32 {
	ix := int64(math32.Floor((p.X - origin.X) / cellSize))
	iy := int64(math32.Floor((p.Y - origin.Y) / cellSize))
	iz := int64(math32.Floor((p.Z - origin.Z) / cellSize))
	return clampIndex3([3]int64{ix, iy, iz}, dim)
}
