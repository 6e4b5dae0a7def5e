package diag

import (
	"math"
	"testing"

	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/raster"
)

func quadSamples(m0 float64) []Sample {
	v := []math3d.Vec3{
		math3d.V3(0, 0, -5), math3d.V3(1, 0, -5), math3d.V3(1, 1, -5), math3d.V3(0, 1, -5),
	}
	return []Sample{
		{V0: v[0], V1: v[1], V2: v[2], M: m0},
		{V0: v[0], V1: v[2], V2: v[3], M: m0},
	}
}

func quadUniforms() raster.Uniforms {
	return raster.Uniforms{
		ModelView:  math3d.Identity(),
		Projection: math3d.Perspective(math.Pi/3, 1, 0.1, 100),
		Width:      400,
		Height:     400,
		Sigma:      1,
	}
}

func TestAnalyzeMinWeightFiltersAll(t *testing.T) {
	rep := Analyze(quadSamples(0.001), quadUniforms())
	if rep.Gates.MinOpacityFiltered != 2 {
		t.Errorf("minOpacityFiltered = %d, want 2", rep.Gates.MinOpacityFiltered)
	}
	if rep.Gates.FilterPercentage() != 100 {
		t.Errorf("filterPercentage = %v, want 100", rep.Gates.FilterPercentage())
	}
}

func TestAnalyzeMinWeightPassesStage(t *testing.T) {
	rep := Analyze(quadSamples(0.5), quadUniforms())
	if rep.Gates.MinOpacityFiltered != 0 {
		t.Errorf("minOpacityFiltered = %d, want 0", rep.Gates.MinOpacityFiltered)
	}
}

func TestAnalyzeEmptySamples(t *testing.T) {
	rep := Analyze(nil, quadUniforms())
	if rep.Gates.Total != 0 || rep.Gates.FilterPercentage() != 0 {
		t.Errorf("expected zeroed report for empty input, got %+v", rep)
	}
}

func TestRadiusHistogramBuckets(t *testing.T) {
	var h RadiusHistogram
	for _, r := range []float64{0.1, 0.7, 50, 800, 2000} {
		h.add(r)
	}
	if h.Under0_5 != 1 || h.From0_5To1 != 1 || h.From1To100 != 1 || h.From100To1600 != 1 || h.Over1600 != 1 {
		t.Errorf("histogram = %+v, want one in each bucket", h)
	}
}
