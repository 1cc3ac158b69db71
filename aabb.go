package raytrace

// AABB is an axis-aligned bounding box defined by componentwise min/max.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns an AABB with inverted bounds such that Union with any
// real AABB yields that AABB unchanged.
func EmptyAABB() AABB {
	const inf = float32(3.4e38)
	return AABB{Min: V3(inf, inf, inf), Max: V3(-inf, -inf, -inf)}
}

// IsEmpty reports whether the box has no volume (any min exceeds its max).
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Union returns the smallest AABB containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// UnionPoint returns the smallest AABB containing b and p.
func (b AABB) UnionPoint(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Overlaps reports whether b and o share any volume (touching counts as overlap).
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Clip returns the intersection of b and o. The result may be empty
// (IsEmpty() true) if the boxes do not overlap.
func (b AABB) Clip(o AABB) AABB {
	return AABB{Min: b.Min.Max(o.Min), Max: b.Max.Min(o.Max)}
}

// Contains reports whether p lies within b, inclusive of the boundary.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Diagonal returns the vector from Min to Max.
func (b AABB) Diagonal() Vec3 {
	return b.Max.Sub(b.Min)
}

// DiagonalLength returns the length of the box's diagonal, used to bound
// the fine cell size (spec.md §4.2 step 2: clamp to [MIN_CELL, scene_diagonal]).
func (b AABB) DiagonalLength() float32 {
	return b.Diagonal().Length()
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfSize returns half the box's extent along each axis.
func (b AABB) HalfSize() Vec3 {
	return b.Diagonal().Scale(0.5)
}
