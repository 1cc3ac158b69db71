package raytrace

// DebugProbe selects the single pixel whose primary-hit ray the traversal
// kernel records each frame (spec.md §4.6).
type DebugProbe struct {
	// X, Y are the pixel coordinates of the probed pixel.
	X, Y uint32
	// Enabled gates whether the kernel writes a record at all.
	Enabled bool
}

// DebugRecord is the feedback-buffer record the kernel writes for the
// probed pixel (spec.md §4.6, §6 "debug record layout").
type DebugRecord struct {
	RayOrigin    Vec3
	RayDirection Vec3

	Hit bool

	// Distance, HitPosition, and HitNormal are only meaningful when Hit is
	// true.
	Distance    float32
	HitPosition Vec3
	HitNormal   Vec3
	Color       Vec3

	// ObjectID disambiguates boxes from triangles: values less than the
	// scene's box count are box indices; values at or above it are
	// triangle indices offset by the box count (spec.md §4.6).
	ObjectID uint32

	// StepCount is the number of DDA/primitive-intersection steps consumed
	// producing the primary hit, a coarse performance signal.
	StepCount uint32
}

// IsBoxObject reports whether ObjectID refers to a box given the scene's
// box count, rather than a triangle.
func (r DebugRecord) IsBoxObject(numBoxes uint32) bool {
	return r.ObjectID < numBoxes
}

// TriangleIndex returns the triangle index ObjectID refers to, given the
// scene's box count. Only valid when IsBoxObject reports false.
func (r DebugRecord) TriangleIndex(numBoxes uint32) uint32 {
	return r.ObjectID - numBoxes
}
