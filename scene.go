package raytrace

import "context"

// Scene is the canonical in-memory representation of a renderable frame:
// boxes and triangles packed boxes-first (spec.md §3 invariant), plus the
// material table triangles reference by index.
type Scene struct {
	Boxes     []Box
	Triangles []Triangle
	Materials []Material
}

// NumPrimitives returns the total primitive count, boxes plus triangles.
// This is the size of the logical [boxes || triangles] index space that
// fine-cell indices and debug object ids reference (spec.md §3 invariant,
// §4.6).
func (s Scene) NumPrimitives() int {
	return len(s.Boxes) + len(s.Triangles)
}

// Bounds computes the scene AABB at time t: the tight union of every
// primitive's current-frame bound, using the motion envelope for moving
// boxes (spec.md §3 "Scene AABB", §4.2 step 1).
//
// An empty scene returns EmptyAABB(); callers that need a concrete degenerate
// box should treat IsEmpty()==true as "use a unit box at the origin"
// (grid.Build does this).
func (s Scene) Bounds(t float32) AABB {
	bounds := EmptyAABB()
	for _, b := range s.Boxes {
		bounds = bounds.Union(b.Envelope())
	}
	for _, tr := range s.Triangles {
		if tr.IsDegenerate() {
			continue
		}
		bounds = bounds.Union(tr.Bounds())
	}
	_ = t // bounds at time t only depends on t through the box envelope, already motion-invariant
	return bounds
}

// MaterialAt looks up a material by index, substituting DefaultMaterial()
// for any out-of-range index (spec.md §4.1 "Material lookup").
func (s Scene) MaterialAt(id uint32) Material {
	if int(id) >= len(s.Materials) {
		return DefaultMaterial()
	}
	return s.Materials[id]
}

// SceneSource is the external collaborator that produces a Scene on
// reload events (spec.md §6). Loading glTF assets, decoding textures, or
// reading from disk are all out of scope for the core; an implementation
// of SceneSource is expected to perform that work and return the
// already-decoded primitive/material arrays.
type SceneSource interface {
	Load(ctx context.Context) (Scene, error)
}

// SceneSourceFunc adapts a plain function to SceneSource.
type SceneSourceFunc func(ctx context.Context) (Scene, error)

// Load calls f.
func (f SceneSourceFunc) Load(ctx context.Context) (Scene, error) {
	return f(ctx)
}
