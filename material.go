package raytrace

// AlphaMode selects how a material's alpha channel gates hit acceptance
// in the traversal kernel (spec.md §4.4 "Alpha masking").
type AlphaMode uint32

const (
	// AlphaOpaque ignores alpha entirely; every geometric hit is accepted.
	AlphaOpaque AlphaMode = iota
	// AlphaMask rejects a hit when sampled alpha is below AlphaCutoff.
	AlphaMask
	// AlphaBlend approximately rejects a hit when sampled alpha is below
	// 0.01; there is no ordered back-to-front blending (spec.md Non-goals).
	AlphaBlend
)

// blendRejectThreshold is the fixed cutoff used for AlphaBlend materials,
// per spec.md §4.4: "BLEND below 0.01 also rejects (approximate; no
// ordered blending)".
const blendRejectThreshold = 0.01

// Material describes the shading response of a triangle surface.
//
// BaseColorTexture, NormalTexture, and EmissiveTexture are indices into an
// external texture-array layer. Texture decoding is an out-of-scope
// external collaborator (spec.md §1); the core only stores and forwards
// the index. -1 means "no texture".
type Material struct {
	BaseColor   [4]float32 // RGBA
	Emissive    Vec3
	Metallic    float32 // reused as reflectivity, per spec.md §3
	Roughness   float32

	BaseColorTexture int32
	NormalTexture    int32
	EmissiveTexture  int32

	AlphaMode   AlphaMode
	AlphaCutoff float32
}

// DefaultMaterial returns the neutral-gray fallback material used when a
// triangle references an out-of-range material index (spec.md §4.1, §4.3).
func DefaultMaterial() Material {
	return Material{
		BaseColor:        [4]float32{0.5, 0.5, 0.5, 1},
		Emissive:         Vec3{},
		Metallic:         0,
		Roughness:        1,
		BaseColorTexture: -1,
		NormalTexture:    -1,
		EmissiveTexture:  -1,
		AlphaMode:        AlphaOpaque,
		AlphaCutoff:      0.5,
	}
}

// Reflectivity returns the material's reflectivity, which spec.md §3
// defines as a reuse of the glTF-style Metallic field.
func (m Material) Reflectivity() float32 {
	return m.Metallic
}

// RejectsAlpha reports whether a sampled alpha value would cause the
// traversal kernel to treat a hit as if the triangle were absent
// (spec.md §4.4 "Alpha masking").
func (m Material) RejectsAlpha(sampledAlpha float32) bool {
	switch m.AlphaMode {
	case AlphaMask:
		return sampledAlpha < m.AlphaCutoff
	case AlphaBlend:
		return sampledAlpha < blendRejectThreshold
	default:
		return false
	}
}
