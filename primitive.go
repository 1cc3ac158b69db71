package raytrace

import "github.com/chewxy/math32"

// Box is an axis-aligned box primitive, optionally oscillating in position.
//
// Min/Max always describe the box's motion envelope: for a static box that
// is simply [min, max]; for a moving box it is the union of both endpoint
// positions inflated by HalfSize. This resolves spec.md §9's open question
// ("the relationship between a box's stored (min,max) ... and its
// (center0,center1,half_size) ... is under-specified") by enforcing the
// envelope convention at construction time, so storage and grid assignment
// never diverge — see DESIGN.md.
type Box struct {
	Min, Max     Vec3
	Moving       bool
	Color        Vec3
	Reflectivity float32
	Center0      Vec3
	Center1      Vec3
	HalfSize     Vec3
}

// NewStaticBox creates a non-moving box. Center0, Center1, and HalfSize are
// derived so BoundsAt and Envelope agree with [min, max] at every t.
func NewStaticBox(min, max, color Vec3, reflectivity float32) Box {
	center := min.Add(max).Scale(0.5)
	half := max.Sub(min).Scale(0.5)
	return Box{
		Min: min, Max: max,
		Moving:       false,
		Color:        color,
		Reflectivity: reflectivity,
		Center0:      center,
		Center1:      center,
		HalfSize:     half,
	}
}

// NewMovingBox creates an oscillating box. Min/Max are set to the motion
// envelope so they are always consistent with Center0/Center1/HalfSize.
func NewMovingBox(center0, center1, halfSize, color Vec3, reflectivity float32) Box {
	b := Box{
		Moving:       true,
		Color:        color,
		Reflectivity: reflectivity,
		Center0:      center0,
		Center1:      center1,
		HalfSize:     halfSize,
	}
	env := b.Envelope()
	b.Min, b.Max = env.Min, env.Max
	return b
}

// centerAt returns the box's instantaneous center at time t, per spec.md
// §3: lerp(c0, c1, (sin(2t)+1)/2).
func (b Box) centerAt(t float32) Vec3 {
	if !b.Moving {
		return b.Center0
	}
	phase := (math32.Sin(2*t) + 1) / 2
	return b.Center0.Lerp(b.Center1, phase)
}

// BoundsAt returns the box's instantaneous AABB at time t.
func (b Box) BoundsAt(t float32) AABB {
	c := b.centerAt(t)
	return AABB{Min: c.Sub(b.HalfSize), Max: c.Add(b.HalfSize)}
}

// Envelope returns the AABB that contains the box at every t: the union of
// both endpoint positions inflated by HalfSize (spec.md glossary: "motion
// envelope"). For a static box this equals BoundsAt(t) for any t.
func (b Box) Envelope() AABB {
	a := AABB{Min: b.Center0.Sub(b.HalfSize), Max: b.Center0.Add(b.HalfSize)}
	if !b.Moving {
		return a
	}
	c := AABB{Min: b.Center1.Sub(b.HalfSize), Max: b.Center1.Add(b.HalfSize)}
	return a.Union(c)
}

// Triangle is an indexed triangle primitive in world space.
type Triangle struct {
	V0, V1, V2 Vec3
	UV0        [2]float32
	UV1        [2]float32
	UV2        [2]float32
	MaterialID uint32
}

// edges returns edge1 = V1-V0 and edge2 = V2-V0.
func (tr Triangle) edges() (Vec3, Vec3) {
	return tr.V1.Sub(tr.V0), tr.V2.Sub(tr.V0)
}

// Area returns the triangle's surface area, ½·|edge1 × edge2| (spec.md §4.1),
// used for emissive weighting.
func (tr Triangle) Area() float32 {
	e1, e2 := tr.edges()
	return e1.Cross(e2).Length() * 0.5
}

// GeometricNormal returns normalize(edge1 × edge2), assuming consistent
// (CCW) winding, per spec.md §4.1.
func (tr Triangle) GeometricNormal() Vec3 {
	e1, e2 := tr.edges()
	return e1.Cross(e2).Normalize()
}

// IsDegenerate reports whether the triangle has zero area (spec.md §4.2
// edge case: degenerate triangles are skipped by the grid builder).
func (tr Triangle) IsDegenerate() bool {
	e1, e2 := tr.edges()
	return e1.Cross(e2).LengthSq() == 0
}

// Bounds returns the AABB of the triangle's three vertices.
func (tr Triangle) Bounds() AABB {
	min := tr.V0.Min(tr.V1).Min(tr.V2)
	max := tr.V0.Max(tr.V1).Max(tr.V2)
	return AABB{Min: min, Max: max}
}
