// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pack serializes the in-memory scene and grid (raytrace, grid) into
// the exact byte layouts the WGSL traversal kernel binds to, per spec.md §6
// "External interfaces". Every function here writes a fixed, documented
// layout; none of it is derived by reflection or unsafe casts — the kernel's
// WGSL struct definitions are the single source of truth, and these
// functions are hand-kept in sync with them the way the Gekko3D voxel
// renderer hand-packs its camera uniform.
package pack

// Byte sizes of fixed-layout structures, computed once so every packer
// function and its tests agree on offsets.
const (
	// CameraSize is the byte size of the camera uniform: 144 bytes, per
	// spec.md §6. The named fields — position(vec3+pad), forward(vec3+pad),
	// right(vec3+pad), up(vec3+time), lod_factor, min_pixel_size, show_grid,
	// pad — occupy the first cameraNamedFieldsSize bytes; the remainder is
	// reserved so the uniform's stride matches the spec exactly even though
	// only those fields are named (spec.md §9 leaves the extra headroom
	// unspecified). Camera zero-fills the unnamed remainder.
	CameraSize = 144

	// cameraNamedFieldsSize is the byte size of CameraSize's named fields.
	cameraNamedFieldsSize = 16*4 + 16

	// GridMetadataSize is the byte size of the grid metadata uniform:
	// bounds_min(vec3) + num_levels(u32) + bounds_max(vec3) +
	// finest_cell_size(f32) + grid_sizes[4](uvec4).
	GridMetadataSize = 16 + 16 + 4*16

	// FineCellHeaderWords is the number of u32 words that follow the K
	// indices in one fine-cell record: count (u32) + pad[3] (u32 each).
	// See FineCellRecordSize for the full record size.
	FineCellHeaderWords = 4 // count + 3 pad words, after the K indices

	// BoxRecordSize is the byte size of one packed Box record (spec.md §6):
	// min(vec3)+is_moving(f32) + max(vec3)+pad(f32) + color(vec3)+reflectivity(f32)
	// + center0(vec3)+pad + center1(vec3)+pad + half_size(vec3)+pad.
	BoxRecordSize = 16 * 6

	// TriangleRecordSize is the byte size of one packed Triangle record:
	// v0(vec3)+material_id(f32) + v1(vec3)+pad + v2(vec3)+pad +
	// uv0(vec2)+uv1(vec2) + uv2(vec2)+pad(vec2).
	TriangleRecordSize = 16*3 + 16 + 16

	// MaterialRecordSize is the byte size of one packed Material record:
	// base_color(vec4) + emissive(vec3)+texture_index(i32) + metallic(f32) +
	// roughness(f32) + normal_texture_index(i32) + emissive_texture_index(i32)
	// + alpha_mode(u32) + alpha_cutoff(f32) + pad(vec2).
	MaterialRecordSize = 16 + 16 + 16 + 16

	// SceneConfigSize is the byte size of the scene config uniform:
	// num_boxes(u32) + num_triangles(u32) + output_width(u32) +
	// output_height(u32).
	SceneConfigSize = 16

	// DebugParamsSize is the byte size of the debug params uniform:
	// debug_pixel(uvec2) + enabled(u32) + pad(u32).
	DebugParamsSize = 16

	// DebugRecordSize is the byte size of the debug record storage element
	// (spec.md §4.6): ray_origin(vec3)+pad + ray_direction(vec3)+pad +
	// hit(u32)+distance(f32)+object_id(u32)+step_count(u32) +
	// hit_position(vec3)+pad + hit_normal(vec3)+pad + color(vec3)+pad.
	DebugRecordSize = 16*2 + 16 + 16*3
)

// FineCellRecordSize returns the byte size of one fine-cell record for a
// given per-cell capacity K: K indices plus a 4-word header (count + pad[3]).
func FineCellRecordSize(capacity uint32) int {
	return int(capacity)*4 + FineCellHeaderWords*4
}
