package raster

import (
	"math"
	"testing"

	"github.com/taigrr/splatview/pkg/math3d"
)

func TestNdc2Pix(t *testing.T) {
	res := math3d.V2(1920, 1080)
	cases := []struct {
		ndc  float64
		want float64
	}{
		{-1, -0.5},
		{0, 959.5},
		{1, 1919.5},
	}
	for _, c := range cases {
		got := ndc2Pix(math3d.V4(c.ndc, 0, 0, 1), res)
		if math.Abs(got.X-c.want) > 1e-9 {
			t.Errorf("ndc2Pix(%v) = %v, want %v", c.ndc, got.X, c.want)
		}
	}
}

func TestIncenterEquilateralMatchesCentroid(t *testing.T) {
	// Equilateral triangle centered at the origin.
	p0 := math3d.V2(0, 1)
	p1 := math3d.V2(-0.8660254, -0.5)
	p2 := math3d.V2(0.8660254, -0.5)

	a := p1.Sub(p2).Len()
	b := p2.Sub(p0).Len()
	c := p0.Sub(p1).Len()
	perimeter := a + b + c
	incenter := p0.Scale(a).Add(p1.Scale(b)).Add(p2.Scale(c)).Scale(1 / perimeter)

	centroid := p0.Add(p1).Add(p2).Scale(1.0 / 3)
	if math.Abs(incenter.X-centroid.X) > 1e-5 || math.Abs(incenter.Y-centroid.Y) > 1e-5 {
		t.Errorf("incenter %v != centroid %v", incenter, centroid)
	}
}

func TestIncenterRightTriangle(t *testing.T) {
	p0 := math3d.V2(0, 0)
	p1 := math3d.V2(3, 0)
	p2 := math3d.V2(0, 4)

	a := p1.Sub(p2).Len() // opposite p0, length 5
	b := p2.Sub(p0).Len() // opposite p1, length 4
	c := p0.Sub(p1).Len() // opposite p2, length 3
	perimeter := a + b + c
	incenter := p0.Scale(a).Add(p1.Scale(b)).Add(p2.Scale(c)).Scale(1 / perimeter)

	want := math3d.V2(1, 1)
	if math.Abs(incenter.X-want.X) > 1e-9 || math.Abs(incenter.Y-want.Y) > 1e-9 {
		t.Errorf("incenter = %v, want %v", incenter, want)
	}
}

func TestCullAndShrinkRejectsBelowMinOpacity(t *testing.T) {
	u := Uniforms{ModelView: math3d.Identity(), Projection: math3d.Identity(), Width: 100, Height: 100, Sigma: 1}
	v0, v1, v2 := math3d.V3(-1, -1, -5), math3d.V3(1, -1, -5), math3d.V3(0, 1, -5)
	_, ok := CullAndShrink(v0, v1, v2, 0.001, [3]float64{}, [3]float64{}, [3]float64{}, u, Options{})
	if ok {
		t.Fatal("expected rejection below STOPPING_INFLUENCE")
	}
}

func TestCullAndShrinkBackfaceBoundary(t *testing.T) {
	u := Uniforms{ModelView: math3d.Identity(), Projection: math3d.Perspective(math.Pi/3, 1, 0.1, 100), Width: 200, Height: 200, Sigma: 1}
	// A thin sliver in the z=-5 plane, facing the camera. The backface test
	// dots the unnormalized normal (0, 0, 2h) with the view direction, so
	// |c| is about 2h: h=0.00045 gives 0.0009 (rejected), h=0.00055 gives
	// 0.0011 (kept, and the sliver then clears the later gates too).
	cases := []struct {
		h    float64
		want bool
	}{
		{0.00045, false},
		{0.00055, true},
	}
	for _, tc := range cases {
		v0 := math3d.V3(-1, 0, -5)
		v1 := math3d.V3(1, 0, -5)
		v2 := math3d.V3(0, tc.h, -5)
		_, ok := CullAndShrink(v0, v1, v2, 0.5, [3]float64{1, 1, 1}, [3]float64{1, 1, 1}, [3]float64{1, 1, 1}, u, Options{})
		if ok != tc.want {
			t.Errorf("h=%v: survived = %v, want %v", tc.h, ok, tc.want)
		}
	}
}

func TestCullAndShrinkFrontFacingSurvives(t *testing.T) {
	u := Uniforms{ModelView: math3d.Identity(), Projection: math3d.Perspective(math.Pi/3, 1, 0.1, 100), Width: 400, Height: 400, Sigma: 1}
	v0 := math3d.V3(-1, -1, -5)
	v1 := math3d.V3(1, -1, -5)
	v2 := math3d.V3(0, 1, -5)
	prep, ok := CullAndShrink(v0, v1, v2, 0.8, [3]float64{1, 0, 0}, [3]float64{0, 1, 0}, [3]float64{0, 0, 1}, u, Options{})
	if !ok {
		t.Fatal("expected a front-facing, well-sized triangle to survive culling")
	}
	if prep.Radius < DistanceMin || prep.Radius > DistanceMax {
		t.Errorf("radius %v out of gated range", prep.Radius)
	}
}

func TestShadeDiscardsOutsideFootprint(t *testing.T) {
	prep := Prepared{
		P:        [3]math3d.Vec2{math3d.V2(0, 0), math3d.V2(10, 0), math3d.V2(0, 10)},
		EdgeN:    [3]math3d.Vec2{math3d.V2(1, 0), math3d.V2(0, 1), math3d.V2(-0.7071, -0.7071)},
		EdgeO:    [3]float64{1, 1, 7.071},
		Colors:   [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		M:        0.9,
		PhiScale: -10000,
		Sigma:    1,
	}
	_, _, ok := Shade(prep, -5, -5)
	if ok {
		t.Fatal("expected a far-outside sample to be discarded")
	}
}

func TestBarycentricDegenerateFallsBackToThirds(t *testing.T) {
	p := [3]math3d.Vec2{math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(2, 0)} // collinear
	b0, b1, b2 := barycentric(p, math3d.V2(1, 0))
	if math.Abs(b0-1.0/3) > 1e-9 || math.Abs(b1-1.0/3) > 1e-9 || math.Abs(b2-1.0/3) > 1e-9 {
		t.Errorf("degenerate barycentric = (%v,%v,%v), want (1/3,1/3,1/3)", b0, b1, b2)
	}
}

func TestAlphaThresholdBoundary(t *testing.T) {
	if AlphaThreshold != 1.0/255.0 {
		t.Errorf("AlphaThreshold = %v, want 1/255", AlphaThreshold)
	}
}
