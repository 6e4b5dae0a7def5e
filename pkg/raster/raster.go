// Package raster implements the CPU reference vertex and fragment stages for
// triangle splats: the per-triangle culling sequence, sigma-controlled edge
// shrinking, and the soft-alpha fragment test with screen-space barycentric
// color blending. There is no GPU backing this build, so these stages run
// on the same host that would otherwise just issue draw calls — the
// terminal framebuffer is the color target.
package raster

import (
	"math"

	"github.com/taigrr/splatview/pkg/math3d"
)

// Fixed numerical constants shared by every culling and shading decision.
const (
	StoppingInfluence  = 0.01
	BackfaceThreshold  = 0.001
	PerimeterThreshold = 1.0
	DistanceMin        = 1.0
	DistanceMax        = 1600.0
	AlphaThreshold     = 1.0 / 255.0
	SafeDistEps        = 1e-4
	DegenerateEps      = 1e-6
)

// Options controls behavior left open by the reference algorithm.
type Options struct {
	// MinDistanceFilter enables rejecting a triangle when its last edge's
	// unshifted distance d_last is greater than -1. Disabled by default;
	// the reference implementation carries it disabled pending
	// verification and no test may assume it is on.
	MinDistanceFilter bool
}

// Uniforms holds the per-frame values the vertex stage reads.
type Uniforms struct {
	CameraPos  math3d.Vec3
	ModelView  math3d.Mat4
	Projection math3d.Mat4
	Width      int
	Height     int
	Sigma      float64
}

// EffectiveSigma returns Sigma, defaulting to 1.0 when unset.
func (u Uniforms) EffectiveSigma() float64 {
	if u.Sigma <= 0 {
		return 1.0
	}
	return u.Sigma
}

// Prepared is everything the fragment stage needs for one surviving
// triangle: its three screen positions, three shrunk edge half-planes, the
// per-corner colors to interpolate, and the soft-edge scale factors.
type Prepared struct {
	P        [3]math3d.Vec2
	EdgeN    [3]math3d.Vec2
	EdgeO    [3]float64
	Colors   [3][3]float64
	M        float64
	PhiScale float64
	Sigma    float64
	Incenter math3d.Vec2
	Radius   float64
}

// CullAndShrink runs the full vertex-stage culling sequence on one triangle
// and, if it survives, computes its shrunk edge half-planes. The second
// return value is false if any gate rejected the triangle — a single
// corner's rejection kills the whole primitive, so callers need not track
// per-corner outcomes.
func CullAndShrink(v0, v1, v2 math3d.Vec3, m float64, color0, color1, color2 [3]float64, u Uniforms, opts Options) (Prepared, bool) {
	if m < StoppingInfluence {
		return Prepared{}, false
	}

	n := v1.Sub(v0).Cross(v2.Sub(v0))
	n = u.ModelView.MulVec3Dir(n)
	centroid := v0.Add(v1).Add(v2).Scale(1.0 / 3.0)
	centroidView := u.ModelView.MulVec3(centroid)
	viewDir := centroidView.Negate().Normalize()
	c := n.Dot(viewDir)
	if c > 0 {
		n = n.Negate()
		c = -c
	}
	if math.Abs(c) < BackfaceThreshold {
		return Prepared{}, false
	}

	mvp := u.Projection.Mul(u.ModelView)
	clip0 := mvp.MulVec4(math3d.V4FromV3(v0, 1))
	clip1 := mvp.MulVec4(math3d.V4FromV3(v1, 1))
	clip2 := mvp.MulVec4(math3d.V4FromV3(v2, 1))
	if clip0.W <= 0 && clip1.W <= 0 && clip2.W <= 0 {
		return Prepared{}, false
	}

	res := math3d.V2(float64(u.Width), float64(u.Height))
	p0 := ndc2Pix(clip0, res)
	p1 := ndc2Pix(clip1, res)
	p2 := ndc2Pix(clip2, res)

	a := p1.Sub(p2).Len()
	b := p2.Sub(p0).Len()
	e := p0.Sub(p1).Len()
	perimeter := a + b + e
	if perimeter < PerimeterThreshold {
		return Prepared{}, false
	}
	incenter := p0.Scale(a).Add(p1.Scale(b)).Add(p2.Scale(e)).Scale(1.0 / perimeter)

	r := math.Max(p0.Sub(incenter).Len(), math.Max(p1.Sub(incenter).Len(), p2.Sub(incenter).Len()))
	if r > DistanceMax || r < DistanceMin {
		return Prepared{}, false
	}

	p := [3]math3d.Vec2{p0, p1, p2}
	var edgeN [3]math3d.Vec2
	var edgeO [3]float64
	var d [3]float64
	for k := range 3 {
		next := (k + 1) % 3
		nk := p[next].Sub(p[k]).Perp().Normalize()
		ok := -nk.Dot(p[k])
		dk := nk.Dot(incenter) + ok
		if dk > 0 {
			nk = math3d.V2(-nk.X, -nk.Y)
			ok = -ok
			dk = -dk
		}
		edgeN[k] = nk
		edgeO[k] = ok
		d[k] = dk
	}

	sigma := u.EffectiveSigma()
	s := d[0] * math.Pow(StoppingInfluence/m, 1.0/sigma)
	for k := range edgeO {
		edgeO[k] -= s
	}

	if opts.MinDistanceFilter && d[2] > -1 {
		return Prepared{}, false
	}

	phiScale := 1.0 / math.Min(d[2], -SafeDistEps)

	return Prepared{
		P:        p,
		EdgeN:    edgeN,
		EdgeO:    edgeO,
		Colors:   [3][3]float64{color0, color1, color2},
		M:        m,
		PhiScale: phiScale,
		Sigma:    sigma,
		Incenter: incenter,
		Radius:   r,
	}, true
}

// ndc2Pix projects a clip-space vertex to pixel coordinates, matching the
// reference CUDA ndc2Pix convention: a half-pixel shift of -0.5, so NDC -1
// maps to -0.5 and NDC +1 maps to resolution-0.5.
func ndc2Pix(clip math3d.Vec4, resolution math3d.Vec2) math3d.Vec2 {
	ndcX := clip.X / clip.W
	ndcY := clip.Y / clip.W
	return math3d.V2(
		(ndcX+1)*resolution.X*0.5-0.5,
		(ndcY+1)*resolution.Y*0.5-0.5,
	)
}
