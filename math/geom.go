// math/geom.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// ClosestPointOnSegment returns the point on the segment vw closest to p,
// all in the ground plane.
func ClosestPointOnSegment(p, v, w [2]float32) [2]float32 {
	l2 := Sqr(v[0]-w[0]) + Sqr(v[1]-w[1])
	if l2 == 0 {
		return v
	}
	t := Clamp(Dot2f(Sub2f(p, v), Sub2f(w, v))/l2, 0, 1)
	return Add2f(v, Scale2f(Sub2f(w, v), t))
}

// PointSegmentDistance returns the distance from p to the segment vw.
func PointSegmentDistance(p, v, w [2]float32) float32 {
	return Distance2f(p, ClosestPointOnSegment(p, v, w))
}

// LineCircleIntersects reports whether the ground-plane segment from p0
// to p1 passes through the circle at center with the given radius.
func LineCircleIntersects(p0, p1 Point3, center Point3, radius float32) bool {
	return PointSegmentDistance(center.XZ(), p0.XZ(), p1.XZ()) < radius
}

// PerpendicularXZ returns the unit ground-plane direction perpendicular
// (counterclockwise) to the segment from a to b.
func PerpendicularXZ(a, b Point3) [2]float32 {
	d := Normalize2f(Sub2f(b.XZ(), a.XZ()))
	return [2]float32{-d[1], d[0]}
}
