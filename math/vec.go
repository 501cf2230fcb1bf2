// math/vec.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Point3 is a point or vector in scene coordinates: X and Z span the
// ground plane, Y is up (altitude). Ground level is y=1 for vehicles.
type Point3 [3]float32

// XZ projects the point onto the ground plane.
func (p Point3) XZ() [2]float32 {
	return [2]float32{p[0], p[2]}
}

func Add2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] + b[0], a[1] + b[1]}
}

func Sub2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] - b[0], a[1] - b[1]}
}

func Scale2f(v [2]float32, s float32) [2]float32 {
	return [2]float32{s * v[0], s * v[1]}
}

func Dot2f(a [2]float32, b [2]float32) float32 {
	return a[0]*b[0] + a[1]*b[1]
}

func Length2f(v [2]float32) float32 {
	return Sqrt(v[0]*v[0] + v[1]*v[1])
}

func Normalize2f(v [2]float32) [2]float32 {
	l := Length2f(v)
	if l == 0 {
		return [2]float32{}
	}
	return Scale2f(v, 1/l)
}

func Distance2f(a [2]float32, b [2]float32) float32 {
	return Length2f(Sub2f(a, b))
}

func Lerp2f(x float32, a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{(1-x)*a[0] + x*b[0], (1-x)*a[1] + x*b[1]}
}

func Add3f(a Point3, b Point3) Point3 {
	return Point3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func Sub3f(a Point3, b Point3) Point3 {
	return Point3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func Scale3f(v Point3, s float32) Point3 {
	return Point3{s * v[0], s * v[1], s * v[2]}
}

func Distance3f(a Point3, b Point3) float32 {
	d := Sub3f(a, b)
	return Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// GroundDistance is the distance between two points projected onto the
// ground plane; altitude differences are ignored.
func GroundDistance(a Point3, b Point3) float32 {
	return Distance2f(a.XZ(), b.XZ())
}

func Lerp3f(x float32, a Point3, b Point3) Point3 {
	return Point3{Lerp(x, a[0], b[0]), Lerp(x, a[1], b[1]), Lerp(x, a[2], b[2])}
}
