// Package splat builds the GPU-ready geometry tables for a triangle-splat
// scene: per-corner vertex records, the mutable index buffer, the triangle
// centroid table, and the packed spherical-harmonic side table.
package splat

import (
	"fmt"

	"github.com/taigrr/splatview/pkg/math3d"
)

// SceneInput is the immutable scene description loaded by an external
// collaborator (a file loader, a network fetch, a procedural generator —
// none of which are part of this package's contract).
type SceneInput struct {
	// Vertices holds V world-space positions.
	Vertices []math3d.Vec3

	// Triangles holds T triples of indices into Vertices.
	Triangles [][3]uint32

	// Opacities holds V already-activated opacities in [0,1].
	Opacities []float64

	// Colors optionally holds V packed RGB triples in [0,255]. Ignored if
	// FeaturesDC is set.
	Colors [][3]uint8

	// Degree is the SH degree in [0,3]. Only meaningful if FeaturesDC is
	// set.
	Degree int

	// FeaturesDC optionally holds V DC color triples.
	FeaturesDC [][3]float64

	// FeaturesRest optionally holds V flat rest-coefficient buffers, each
	// of length RestCount(Degree)*3.
	FeaturesRest [][]float64

	// Sigma is the edge-shrink exponent base; defaults to 1.0 if <= 0.
	Sigma float64

	// Debug requests extra diagnostic output from consumers; carried
	// through unmodified, not interpreted by this package.
	Debug bool
}

// HasSH reports whether the scene carries spherical-harmonic coefficients.
func (s *SceneInput) HasSH() bool {
	return len(s.FeaturesDC) > 0
}

// HasColor reports whether the scene carries direct per-vertex color.
func (s *SceneInput) HasColor() bool {
	return len(s.Colors) > 0
}

// EffectiveSigma returns Sigma, defaulting to 1.0 when unset.
func (s *SceneInput) EffectiveSigma() float64 {
	if s.Sigma <= 0 {
		return 1.0
	}
	return s.Sigma
}

// VertexRecord is one per-corner record of the geometry buffer: every
// GPU-bound attribute a vertex shader needs for its corner, with the
// whole-triangle data duplicated identically across all three corners.
type VertexRecord struct {
	Position math3d.Vec3 // this corner's vertex position
	Bary     math3d.Vec3 // (1,0,0), (0,1,0), or (0,0,1)

	V0, V1, V2 math3d.Vec3 // the triangle's three vertex positions

	W0, W1, W2 float64 // the triangle's three opacities
	M          float64 // min(W0, W1, W2) — I4

	VertexIndex  int    // this corner's originating vertex (SH lookup)
	CornerVertex [3]int // all three corners' originating vertices

	HasColor bool
	Color    [3]float64 // direct RGB scaled to [0,1], valid iff HasColor
}

// Buffers is the complete load-time output of Build: the per-corner
// geometry buffer, the mutable index buffer (identity permutation), the
// triangle centroid table, and the packed SH table (nil if the scene has
// no SH).
type Buffers struct {
	Records      []VertexRecord // length 3T
	IndexBuffer  []uint32       // length 3T, identity permutation initially
	Centroids    []math3d.Vec3  // length T
	SH           *SHTable       // nil if the scene has no SH coefficients
	TriangleCount int
	HasSH        bool
	HasColor     bool
}

// Build converts a SceneInput into load-time geometry tables. It returns an
// error on malformed input and never produces partial state: either the
// full Buffers come back, or none of it does. It never mutates the input.
func Build(in *SceneInput) (*Buffers, error) {
	v := len(in.Vertices)
	if len(in.Opacities) != v {
		return nil, fmt.Errorf("splat: opacity count %d does not match vertex count %d", len(in.Opacities), v)
	}
	if in.HasColor() && len(in.Colors) != v {
		return nil, fmt.Errorf("splat: color count %d does not match vertex count %d", len(in.Colors), v)
	}
	hasSH := in.HasSH()
	if hasSH {
		if in.Degree < 0 || in.Degree > 3 {
			return nil, fmt.Errorf("splat: SH degree %d out of range [0,3]", in.Degree)
		}
		if len(in.FeaturesDC) != v {
			return nil, fmt.Errorf("splat: featuresDC count %d does not match vertex count %d", len(in.FeaturesDC), v)
		}
		if len(in.FeaturesRest) != v {
			return nil, fmt.Errorf("splat: featuresRest count %d does not match vertex count %d", len(in.FeaturesRest), v)
		}
		restLen := restCount(in.Degree) * 3
		for i, r := range in.FeaturesRest {
			if len(r) != restLen {
				return nil, fmt.Errorf("splat: featuresRest[%d] has length %d, want %d for degree %d", i, len(r), restLen, in.Degree)
			}
		}
	}

	t := len(in.Triangles)
	for i, tri := range in.Triangles {
		for c, idx := range tri {
			if int(idx) >= v {
				return nil, fmt.Errorf("splat: triangle %d corner %d references vertex %d, out of range [0,%d)", i, c, idx, v)
			}
		}
	}

	buf := &Buffers{
		Records:       make([]VertexRecord, 3*t),
		IndexBuffer:   make([]uint32, 3*t),
		Centroids:     make([]math3d.Vec3, t),
		TriangleCount: t,
		HasSH:         hasSH,
		HasColor:      in.HasColor() && !hasSH,
	}

	if hasSH {
		buf.SH = NewSHTable(v)
		for i := range in.Vertices {
			buf.SH.Set(i, in.FeaturesDC[i], in.FeaturesRest[i])
		}
	}

	for i, tri := range in.Triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]
		p0, p1, p2 := in.Vertices[i0], in.Vertices[i1], in.Vertices[i2]
		w0, w1, w2 := in.Opacities[i0], in.Opacities[i1], in.Opacities[i2]
		m := minOf3(w0, w1, w2)

		buf.Centroids[i] = p0.Add(p1).Add(p2).Scale(1.0 / 3.0)

		corners := [3]struct {
			pos  math3d.Vec3
			bary math3d.Vec3
			vidx int
		}{
			{p0, math3d.V3(1, 0, 0), int(i0)},
			{p1, math3d.V3(0, 1, 0), int(i1)},
			{p2, math3d.V3(0, 0, 1), int(i2)},
		}

		for c, corner := range corners {
			recIdx := i*3 + c
			rec := &buf.Records[recIdx]
			rec.Position = corner.pos
			rec.Bary = corner.bary
			rec.V0, rec.V1, rec.V2 = p0, p1, p2
			rec.W0, rec.W1, rec.W2 = w0, w1, w2
			rec.M = m
			rec.VertexIndex = corner.vidx
			rec.CornerVertex = [3]int{int(i0), int(i1), int(i2)}

			if buf.HasColor {
				rec.HasColor = true
				rgb := in.Colors[corner.vidx]
				rec.Color = [3]float64{
					float64(rgb[0]) / 255.0,
					float64(rgb[1]) / 255.0,
					float64(rgb[2]) / 255.0,
				}
			}

			buf.IndexBuffer[recIdx] = uint32(recIdx)
		}
	}

	return buf, nil
}

func minOf3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func restCount(degree int) int {
	return (degree+1)*(degree+1) - 1
}
