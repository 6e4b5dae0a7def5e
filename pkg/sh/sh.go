// Package sh evaluates the real spherical-harmonic basis used to decode
// view-dependent splat color from a set of per-vertex SH coefficients.
package sh

import "github.com/taigrr/splatview/pkg/math3d"

// MaxDegree is the highest supported SH degree.
const MaxDegree = 3

// Fixed basis constants, matching the 3D Gaussian Splatting convention.
const (
	C0 = 0.28209479177387814
	C1 = 0.4886025119029199
)

// C2 holds the five degree-2 basis constants.
var C2 = [5]float64{
	1.0925484305920792,
	-1.0925484305920792,
	0.31539156525252005,
	-1.0925484305920792,
	0.5462742152960396,
}

// C3 holds the seven degree-3 basis constants.
var C3 = [7]float64{
	-0.5900435899266435,
	2.890611442640554,
	-0.4570457994644658,
	0.3731763325901154,
	-0.4570457994644658,
	1.445305721320277,
	-0.5900435899266435,
}

// RestCount returns R = (d+1)^2 - 1, the number of higher-order coefficient
// triples for degree d.
func RestCount(degree int) int {
	return (degree+1)*(degree+1) - 1
}

// Eval evaluates the SH color for a view direction u (unit vector, camera
// to point) given a DC triple and a flat rest array of RestCount(degree)*3
// scalars, grouped per coefficient index then per channel: rest[i*3+c].
//
// degree must be in [0,3] and len(rest) must equal RestCount(degree)*3;
// Eval does not validate this (callers build rest buffers of the right
// size — see splat.Build).
func Eval(degree int, dc [3]float64, rest []float64, u math3d.Vec3) (r, g, b float64) {
	r = C0 * dc[0]
	g = C0 * dc[1]
	b = C0 * dc[2]

	if degree >= 1 {
		x, y, z := u.X, u.Y, u.Z
		r += -C1*y*rest[0*3+0] + C1*z*rest[1*3+0] - C1*x*rest[2*3+0]
		g += -C1*y*rest[0*3+1] + C1*z*rest[1*3+1] - C1*x*rest[2*3+1]
		b += -C1*y*rest[0*3+2] + C1*z*rest[1*3+2] - C1*x*rest[2*3+2]
	}

	if degree >= 2 {
		x, y, z := u.X, u.Y, u.Z
		xx, yy, zz := x*x, y*y, z*z
		xy, yz, xz := x*y, y*z, x*z

		r += C2[0]*xy*rest[3*3+0] + C2[1]*yz*rest[4*3+0] +
			C2[2]*(2*zz-xx-yy)*rest[5*3+0] + C2[3]*xz*rest[6*3+0] +
			C2[4]*(xx-yy)*rest[7*3+0]
		g += C2[0]*xy*rest[3*3+1] + C2[1]*yz*rest[4*3+1] +
			C2[2]*(2*zz-xx-yy)*rest[5*3+1] + C2[3]*xz*rest[6*3+1] +
			C2[4]*(xx-yy)*rest[7*3+1]
		b += C2[0]*xy*rest[3*3+2] + C2[1]*yz*rest[4*3+2] +
			C2[2]*(2*zz-xx-yy)*rest[5*3+2] + C2[3]*xz*rest[6*3+2] +
			C2[4]*(xx-yy)*rest[7*3+2]
	}

	if degree >= 3 {
		x, y, z := u.X, u.Y, u.Z
		xx, yy, zz := x*x, y*y, z*z

		t0 := y * (3*xx - yy)
		t1 := x * y * z
		t2 := y * (4*zz - xx - yy)
		t3 := z * (2*zz - 3*xx - 3*yy)
		t4 := x * (4*zz - xx - yy)
		t5 := z * (xx - yy)
		t6 := x * (xx - 3*yy)

		r += C3[0]*t0*rest[8*3+0] + C3[1]*t1*rest[9*3+0] + C3[2]*t2*rest[10*3+0] +
			C3[3]*t3*rest[11*3+0] + C3[4]*t4*rest[12*3+0] + C3[5]*t5*rest[13*3+0] +
			C3[6]*t6*rest[14*3+0]
		g += C3[0]*t0*rest[8*3+1] + C3[1]*t1*rest[9*3+1] + C3[2]*t2*rest[10*3+1] +
			C3[3]*t3*rest[11*3+1] + C3[4]*t4*rest[12*3+1] + C3[5]*t5*rest[13*3+1] +
			C3[6]*t6*rest[14*3+1]
		b += C3[0]*t0*rest[8*3+2] + C3[1]*t1*rest[9*3+2] + C3[2]*t2*rest[10*3+2] +
			C3[3]*t3*rest[11*3+2] + C3[4]*t4*rest[12*3+2] + C3[5]*t5*rest[13*3+2] +
			C3[6]*t6*rest[14*3+2]
	}

	r = clamp0(r + 0.5)
	g = clamp0(g + 0.5)
	b = clamp0(b + 0.5)
	return r, g, b
}

func clamp0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
