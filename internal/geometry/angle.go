package geometry

import "math"

// Angle computes the angle at vertex in degrees, formed by the segments
// vertex→a and vertex→b, via the law of cosines. The result is always in
// [0, 180]: collinear points on opposite sides of the vertex yield 180,
// a right-angle configuration yields 90.
//
// The second return value is false when either limb has zero length, in
// which case the angle is undefined and must not be treated as zero.
func Angle(a, vertex, b Vec3) (float64, bool) {
	u := a.Sub(vertex)
	w := b.Sub(vertex)

	magU := u.Magnitude()
	magW := w.Magnitude()
	if magU == 0 || magW == 0 {
		return 0, false
	}

	cos := u.Dot(w) / (magU * magW)
	// Clamp against floating point drift before acos.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return math.Acos(cos) * 180 / math.Pi, true
}

// Angle2D computes the same vertex angle projected onto the image plane.
// Depth from on-device detectors is noisy enough that most exercise
// thresholds are calibrated against the 2D angle.
func Angle2D(a, vertex, b Vec3) (float64, bool) {
	a.Z = 0
	vertex.Z = 0
	b.Z = 0
	return Angle(a, vertex, b)
}
