// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/grid"
)

func putVec3(buf []byte, off int, v raytrace.Vec3) {
	le := binary.LittleEndian
	le.PutUint32(buf[off:off+4], math.Float32bits(v.X))
	le.PutUint32(buf[off+4:off+8], math.Float32bits(v.Y))
	le.PutUint32(buf[off+8:off+12], math.Float32bits(v.Z))
}

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func putI32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
}

func getF32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func getU32(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

func requireLen(buf []byte, want int, what string) error {
	if len(buf) < want {
		return fmt.Errorf("pack: %s: %w (need %d bytes, got %d)", what, raytrace.ErrBufferTooSmall, want, len(buf))
	}
	return nil
}

// CameraParams bundles the values Camera packs into the camera uniform.
type CameraParams struct {
	Position, Forward, Right, Up raytrace.Vec3
	ElapsedTime                  float32
	LODFactor                    float32
	MinPixelSize                 float32
	ShowGrid                     bool
}

// Camera packs the per-frame camera uniform into buf (spec.md §6 "Camera
// uniform (144 bytes)"). buf must be at least CameraSize bytes.
func Camera(buf []byte, p CameraParams) error {
	if err := requireLen(buf, CameraSize, "camera"); err != nil {
		return err
	}
	clear(buf[:CameraSize])

	putVec3(buf, 0, p.Position)
	putVec3(buf, 16, p.Forward)
	putVec3(buf, 32, p.Right)
	putVec3(buf, 48, p.Up)
	putF32(buf, 60, p.ElapsedTime)
	putF32(buf, 64, p.LODFactor)
	putF32(buf, 68, p.MinPixelSize)
	if p.ShowGrid {
		putU32(buf, 72, 1)
	}
	_ = cameraNamedFieldsSize
	return nil
}

// GridMetadata packs the grid metadata uniform into buf (spec.md §6).
func GridMetadata(buf []byte, g *grid.Grid) error {
	if err := requireLen(buf, GridMetadataSize, "grid metadata"); err != nil {
		return err
	}
	clear(buf[:GridMetadataSize])

	putVec3(buf, 0, g.Bounds.Min)
	putU32(buf, 12, 4)
	putVec3(buf, 16, g.Bounds.Max)
	putF32(buf, 28, g.Levels[3].CellSize)

	for l := 0; l < 4; l++ {
		off := 32 + l*16
		putU32(buf, off, g.Levels[l].Dim[0])
		putU32(buf, off+4, g.Levels[l].Dim[1])
		putU32(buf, off+8, g.Levels[l].Dim[2])
		putU32(buf, off+12, 0)
	}
	return nil
}

// CoarseCountsSize returns the byte length required to pack g's coarse
// count arrays for levels 0-2, concatenated in order.
func CoarseCountsSize(g *grid.Grid) int {
	total := 0
	for l := 0; l < 3; l++ {
		total += len(g.CoarseCounts[l])
	}
	return total * 4
}

// CoarseCounts packs levels 0..2 of g's coarse occupancy counts into buf as
// a flat u32 array, concatenated in level order (spec.md §6 "Coarse counts
// storage").
func CoarseCounts(buf []byte, g *grid.Grid) error {
	if err := requireLen(buf, CoarseCountsSize(g), "coarse counts"); err != nil {
		return err
	}
	off := 0
	for l := 0; l < 3; l++ {
		for _, c := range g.CoarseCounts[l] {
			putU32(buf, off, c)
			off += 4
		}
	}
	return nil
}

// FineCellsSize returns the byte length required to pack g's fine-cell
// records at its configured capacity.
func FineCellsSize(g *grid.Grid) int {
	return len(g.FineCells) * FineCellRecordSize(g.Capacity)
}

// FineCells packs g's fine-cell records into buf: one record per cell,
// `{ indices: u32[K]; count: u32; pad[3]: u32 }`, indexed by
// `x + y*dim3.x + z*dim3.x*dim3.y` (spec.md §6 "Fine cells storage").
func FineCells(buf []byte, g *grid.Grid) error {
	recordSize := FineCellRecordSize(g.Capacity)
	if err := requireLen(buf, FineCellsSize(g), "fine cells"); err != nil {
		return err
	}
	clear(buf[:len(g.FineCells)*recordSize])

	for i, cell := range g.FineCells {
		base := i * recordSize
		n := g.FineCounts[i]
		for j := uint32(0); j < n && int(j) < len(cell); j++ {
			putU32(buf, base+int(j)*4, cell[j])
		}
		countOff := base + int(g.Capacity)*4
		putU32(buf, countOff, n)
	}
	return nil
}

// BoxesSize returns the byte length required to pack boxes.
func BoxesSize(boxes []raytrace.Box) int {
	return len(boxes) * BoxRecordSize
}

// Boxes packs boxes into buf (spec.md §6 "Boxes storage").
func Boxes(buf []byte, boxes []raytrace.Box) error {
	if err := requireLen(buf, BoxesSize(boxes), "boxes"); err != nil {
		return err
	}
	for i, b := range boxes {
		base := i * BoxRecordSize
		putVec3(buf, base, b.Min)
		if b.Moving {
			putF32(buf, base+12, 1)
		}
		putVec3(buf, base+16, b.Max)
		putVec3(buf, base+32, b.Color)
		putF32(buf, base+44, b.Reflectivity)
		putVec3(buf, base+48, b.Center0)
		putVec3(buf, base+64, b.Center1)
		putVec3(buf, base+80, b.HalfSize)
	}
	return nil
}

// TrianglesSize returns the byte length required to pack triangles.
func TrianglesSize(triangles []raytrace.Triangle) int {
	return len(triangles) * TriangleRecordSize
}

// Triangles packs triangles into buf (spec.md §6 "Triangles storage").
func Triangles(buf []byte, triangles []raytrace.Triangle) error {
	if err := requireLen(buf, TrianglesSize(triangles), "triangles"); err != nil {
		return err
	}
	for i, tr := range triangles {
		base := i * TriangleRecordSize
		putVec3(buf, base, tr.V0)
		putF32(buf, base+12, float32(tr.MaterialID))
		putVec3(buf, base+16, tr.V1)
		putVec3(buf, base+32, tr.V2)
		putF32(buf, base+48, tr.UV0[0])
		putF32(buf, base+52, tr.UV0[1])
		putF32(buf, base+56, tr.UV1[0])
		putF32(buf, base+60, tr.UV1[1])
		putF32(buf, base+64, tr.UV2[0])
		putF32(buf, base+68, tr.UV2[1])
	}
	return nil
}

// MaterialsSize returns the byte length required to pack materials. An empty
// slice still needs one record, matching Materials' sentinel-material
// substitution.
func MaterialsSize(materials []raytrace.Material) int {
	n := len(materials)
	if n == 0 {
		n = 1
	}
	return n * MaterialRecordSize
}

// Materials packs materials into buf (spec.md §6 "Materials storage"). A
// sentinel fallback material is always written at index 0 if materials is
// empty, so a triangle with an out-of-range material index never reads
// undefined bytes (spec.md §4.3).
func Materials(buf []byte, materials []raytrace.Material) error {
	if len(materials) == 0 {
		materials = []raytrace.Material{raytrace.DefaultMaterial()}
	}
	if err := requireLen(buf, MaterialsSize(materials), "materials"); err != nil {
		return err
	}
	for i, m := range materials {
		base := i * MaterialRecordSize
		putF32(buf, base, m.BaseColor[0])
		putF32(buf, base+4, m.BaseColor[1])
		putF32(buf, base+8, m.BaseColor[2])
		putF32(buf, base+12, m.BaseColor[3])
		putVec3(buf, base+16, m.Emissive)
		putI32(buf, base+28, m.BaseColorTexture)
		putF32(buf, base+32, m.Metallic)
		putF32(buf, base+36, m.Roughness)
		putI32(buf, base+40, m.NormalTexture)
		putI32(buf, base+44, m.EmissiveTexture)
		putU32(buf, base+48, uint32(m.AlphaMode))
		putF32(buf, base+52, m.AlphaCutoff)
	}
	return nil
}

// SceneConfig packs the scene config uniform into buf (spec.md §6 "Scene
// config uniform"). width and height are the output buffer's dimensions in
// pixels; the kernel uses them for its dispatch bounds check in place of
// textureDimensions, since the output binding is a flat storage buffer of
// packed pixels rather than a storage texture.
func SceneConfig(buf []byte, numBoxes, numTriangles, width, height uint32) error {
	if err := requireLen(buf, SceneConfigSize, "scene config"); err != nil {
		return err
	}
	clear(buf[:SceneConfigSize])
	putU32(buf, 0, numBoxes)
	putU32(buf, 4, numTriangles)
	putU32(buf, 8, width)
	putU32(buf, 12, height)
	return nil
}

// DebugParams packs the debug params uniform into buf (spec.md §6 "Debug
// params uniform").
func DebugParams(buf []byte, probe raytrace.DebugProbe) error {
	if err := requireLen(buf, DebugParamsSize, "debug params"); err != nil {
		return err
	}
	clear(buf[:DebugParamsSize])
	putU32(buf, 0, probe.X)
	putU32(buf, 4, probe.Y)
	if probe.Enabled {
		putU32(buf, 8, 1)
	}
	return nil
}

// UnpackDebugRecord decodes a debug record read back from the device
// (spec.md §4.6, §6 "Debug record storage").
func UnpackDebugRecord(buf []byte) (raytrace.DebugRecord, error) {
	var r raytrace.DebugRecord
	if err := requireLen(buf, DebugRecordSize, "debug record"); err != nil {
		return r, err
	}
	r.RayOrigin = raytrace.V3(getF32(buf, 0), getF32(buf, 4), getF32(buf, 8))
	r.RayDirection = raytrace.V3(getF32(buf, 16), getF32(buf, 20), getF32(buf, 24))
	r.Hit = getU32(buf, 32) != 0
	r.Distance = getF32(buf, 36)
	r.ObjectID = getU32(buf, 40)
	r.StepCount = getU32(buf, 44)
	r.HitPosition = raytrace.V3(getF32(buf, 48), getF32(buf, 52), getF32(buf, 56))
	r.HitNormal = raytrace.V3(getF32(buf, 64), getF32(buf, 68), getF32(buf, 72))
	r.Color = raytrace.V3(getF32(buf, 80), getF32(buf, 84), getF32(buf, 88))
	return r, nil
}
