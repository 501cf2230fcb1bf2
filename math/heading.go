// math/heading.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// headings and directions
//
// Headings are expressed in radians and normalized to [0,2pi); heading 0
// points along +X and pi/2 along +Z, following the Atan2(dz, dx)
// convention used everywhere in this package.

// NormalizeAngle reduces an angle to [0,2pi).
func NormalizeAngle(a float32) float32 {
	if a < 0 {
		return NormalizeAngle(a + 2*Pi())
	}
	return Mod(a, 2*Pi())
}

// AngleDifference returns the shortest signed rotation that carries the
// heading a onto the heading b; the result is in (-pi, pi].
func AngleDifference(a, b float32) float32 {
	d := NormalizeAngle(b - a)
	if d > Pi() {
		d -= 2 * Pi()
	}
	return d
}

// HeadingTo returns the ground-plane heading from p toward q.
func HeadingTo(p Point3, q Point3) float32 {
	return NormalizeAngle(Atan2(q[2]-p[2], q[0]-p[0]))
}

// OppositeHeading returns the reciprocal of the given heading.
func OppositeHeading(h float32) float32 {
	return NormalizeAngle(h + Pi())
}

// CalculateTurn returns the heading after turning from current toward
// target for dt seconds at no more than maxRate radians per second. The
// turn always takes the shorter way around and snaps exactly onto the
// target once the remaining difference fits within this tick's budget, so
// repeated calls converge without overshoot.
func CalculateTurn(current, target, maxRate, dt float32) float32 {
	diff := AngleDifference(current, target)
	budget := maxRate * dt
	if Abs(diff) <= budget {
		return NormalizeAngle(target)
	}
	return NormalizeAngle(current + Sign(diff)*budget)
}
