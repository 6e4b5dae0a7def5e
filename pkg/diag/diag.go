// Package diag is a CPU conformance reference that mirrors the culling
// gates of pkg/raster on a sampled subset of triangles, reporting how many
// pass each gate and how the surviving footprint radii distribute. It
// produces no frames; it exists purely to check cull-chain behavior
// against known scenarios.
package diag

import (
	"math"

	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/raster"
)

// Sample is one triangle's vertex-stage inputs.
type Sample struct {
	V0, V1, V2 math3d.Vec3
	M          float64
}

// GateStats counts how many samples were rejected at each stage of the
// culling sequence, in order. A sample rejected by an earlier gate never
// reaches a later one.
type GateStats struct {
	Total              int
	MinOpacityFiltered int
	BackfaceFiltered   int
	ClipRejected       int
	PerimeterFiltered  int
	SizeFiltered       int
	Passed             int
}

// FilterPercentage returns the share of samples that did not pass every
// gate, as a percentage in [0,100].
func (g GateStats) FilterPercentage() float64 {
	if g.Total == 0 {
		return 0
	}
	return 100 * float64(g.Total-g.Passed) / float64(g.Total)
}

// RadiusHistogram buckets the footprint radius r of samples that survived
// the perimeter gate, using the boundaries named by the size gate.
type RadiusHistogram struct {
	Under0_5      int
	From0_5To1    int
	From1To100    int
	From100To1600 int
	Over1600      int
}

func (h *RadiusHistogram) add(r float64) {
	switch {
	case r < 0.5:
		h.Under0_5++
	case r < 1:
		h.From0_5To1++
	case r < 100:
		h.From1To100++
	case r <= 1600:
		h.From100To1600++
	default:
		h.Over1600++
	}
}

// Report is the complete output of Analyze.
type Report struct {
	Gates  GateStats
	Radius RadiusHistogram
}

// Analyze mirrors the vertex-stage culling sequence on samples, one gate at
// a time, and returns pass-count and radius-distribution statistics.
func Analyze(samples []Sample, u raster.Uniforms) Report {
	var rep Report
	rep.Gates.Total = len(samples)

	mvp := u.Projection.Mul(u.ModelView)
	res := math3d.V2(float64(u.Width), float64(u.Height))

	for _, s := range samples {
		if s.M < raster.StoppingInfluence {
			rep.Gates.MinOpacityFiltered++
			continue
		}

		n := s.V1.Sub(s.V0).Cross(s.V2.Sub(s.V0))
		n = u.ModelView.MulVec3Dir(n)
		centroid := s.V0.Add(s.V1).Add(s.V2).Scale(1.0 / 3.0)
		centroidView := u.ModelView.MulVec3(centroid)
		viewDir := centroidView.Negate().Normalize()
		c := n.Dot(viewDir)
		if c > 0 {
			c = -c
		}
		if math.Abs(c) < raster.BackfaceThreshold {
			rep.Gates.BackfaceFiltered++
			continue
		}

		clip0 := mvp.MulVec4(math3d.V4FromV3(s.V0, 1))
		clip1 := mvp.MulVec4(math3d.V4FromV3(s.V1, 1))
		clip2 := mvp.MulVec4(math3d.V4FromV3(s.V2, 1))
		if clip0.W <= 0 && clip1.W <= 0 && clip2.W <= 0 {
			rep.Gates.ClipRejected++
			continue
		}

		p0 := pixelProject(clip0, res)
		p1 := pixelProject(clip1, res)
		p2 := pixelProject(clip2, res)

		a := p1.Sub(p2).Len()
		b := p2.Sub(p0).Len()
		e := p0.Sub(p1).Len()
		perimeter := a + b + e
		if perimeter < raster.PerimeterThreshold {
			rep.Gates.PerimeterFiltered++
			continue
		}
		incenter := p0.Scale(a).Add(p1.Scale(b)).Add(p2.Scale(e)).Scale(1.0 / perimeter)

		r := math.Max(p0.Sub(incenter).Len(), math.Max(p1.Sub(incenter).Len(), p2.Sub(incenter).Len()))
		rep.Radius.add(r)
		if r > raster.DistanceMax || r < raster.DistanceMin {
			rep.Gates.SizeFiltered++
			continue
		}

		rep.Gates.Passed++
	}

	return rep
}

func pixelProject(clip math3d.Vec4, resolution math3d.Vec2) math3d.Vec2 {
	ndcX := clip.X / clip.W
	ndcY := clip.Y / clip.W
	return math3d.V2(
		(ndcX+1)*resolution.X*0.5-0.5,
		(ndcY+1)*resolution.Y*0.5-0.5,
	)
}
