package raster

import (
	"image/color"
	"math"

	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/render"
)

// Shade evaluates the fragment stage at sample position (px, py) within a
// prepared triangle; Draw passes (x+0.5, y+0.5) for framebuffer pixel (x, y).
// ok is false if the sample is discarded by the edge test or the alpha
// threshold.
func Shade(prep Prepared, px, py float64) (rgb [3]float64, alpha float64, ok bool) {
	p := math3d.V2(px, py)

	var delta [3]float64
	m := math.Inf(-1)
	for k := range 3 {
		delta[k] = prep.EdgeN[k].Dot(p) + prep.EdgeO[k]
		if delta[k] > 0 {
			return rgb, 0, false
		}
		if delta[k] > m {
			m = delta[k]
		}
	}

	cx := math.Pow(math.Max(0, m*prep.PhiScale), prep.Sigma)
	alpha = math.Min(0.99, prep.M*cx)
	if alpha < AlphaThreshold {
		return rgb, 0, false
	}

	b0, b1, b2 := barycentric(prep.P, p)
	rgb = [3]float64{
		b0*prep.Colors[0][0] + b1*prep.Colors[1][0] + b2*prep.Colors[2][0],
		b0*prep.Colors[0][1] + b1*prep.Colors[1][1] + b2*prep.Colors[2][1],
		b0*prep.Colors[0][2] + b1*prep.Colors[1][2] + b2*prep.Colors[2][2],
	}
	return rgb, alpha, true
}

// barycentric returns the screen-space barycentric coordinates of p with
// respect to triangle p0,p1,p2, falling back to the uniform weighting when
// the triangle is too close to degenerate to divide by safely.
func barycentric(p [3]math3d.Vec2, at math3d.Vec2) (b0, b1, b2 float64) {
	p0, p1, p2 := p[0], p[1], p[2]
	denom := (p1.Y-p2.Y)*(p0.X-p2.X) + (p2.X-p1.X)*(p0.Y-p2.Y)
	if math.Abs(denom) < DegenerateEps {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	b0 = ((p1.Y-p2.Y)*(at.X-p2.X) + (p2.X-p1.X)*(at.Y-p2.Y)) / denom
	b1 = ((p2.Y-p0.Y)*(at.X-p2.X) + (p0.X-p2.X)*(at.Y-p2.Y)) / denom
	b2 = 1 - b0 - b1
	return b0, b1, b2
}

// Draw rasterizes one prepared triangle into fb using pre-multiplied "over"
// blending: source factor 1, destination factor 1-alpha, depth write
// disabled, two-sided. The sample loop walks the incenter-centered bounding
// box clamped to the framebuffer, which is always a superset of the shrunk
// footprint since the size gate already bounded the incenter radius.
func Draw(fb *render.Framebuffer, prep Prepared) {
	minX := int(math.Floor(prep.Incenter.X - prep.Radius))
	maxX := int(math.Ceil(prep.Incenter.X + prep.Radius))
	minY := int(math.Floor(prep.Incenter.Y - prep.Radius))
	maxY := int(math.Ceil(prep.Incenter.Y + prep.Radius))

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > fb.Width-1 {
		maxX = fb.Width - 1
	}
	if maxY > fb.Height-1 {
		maxY = fb.Height - 1
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			rgb, alpha, ok := Shade(prep, float64(x)+0.5, float64(y)+0.5)
			if !ok {
				continue
			}
			dst := fb.GetPixel(x, y)
			out := blendOver(rgb, alpha, dst)
			fb.SetPixel(x, y, out)
		}
	}
}

// blendOver composites a pre-multiplied-alpha source color over an opaque
// destination pixel: out = src*alpha + dst*(1-alpha).
func blendOver(rgb [3]float64, alpha float64, dst color.RGBA) color.RGBA {
	inv := 1 - alpha
	r := rgb[0]*alpha*255 + float64(dst.R)*inv
	g := rgb[1]*alpha*255 + float64(dst.G)*inv
	b := rgb[2]*alpha*255 + float64(dst.B)*inv
	return color.RGBA{
		R: clampByte(r),
		G: clampByte(g),
		B: clampByte(b),
		A: 255,
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
