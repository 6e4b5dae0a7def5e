package splat

import (
	"math"
	"testing"

	"github.com/taigrr/splatview/pkg/math3d"
)

func quadScene(opacities [4]float64) *SceneInput {
	return &SceneInput{
		Vertices: []math3d.Vec3{
			math3d.V3(0, 0, 0),
			math3d.V3(1, 0, 0),
			math3d.V3(1, 1, 0),
			math3d.V3(0, 1, 0),
		},
		Triangles: [][3]uint32{
			{0, 1, 2},
			{0, 2, 3},
		},
		Opacities: opacities[:],
	}
}

func TestBuildUnrollsTriangles(t *testing.T) {
	in := quadScene([4]float64{0.5, 0.5, 0.5, 0.5})
	buf, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(buf.Records) != 6 {
		t.Fatalf("got %d records, want 6", len(buf.Records))
	}

	want := []math3d.Vec3{
		math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1),
		math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1),
	}
	for i, rec := range buf.Records {
		if rec.Bary != want[i] {
			t.Errorf("record %d bary = %v, want %v", i, rec.Bary, want[i])
		}
	}
}

// Consecutive corner records of one triangle share identical
// triangle-wide data.
func TestBuildSharesTriangleWideData(t *testing.T) {
	in := quadScene([4]float64{0.1, 0.4, 0.9, 0.2})
	buf, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for tri := 0; tri < buf.TriangleCount; tri++ {
		r0, r1, r2 := buf.Records[tri*3], buf.Records[tri*3+1], buf.Records[tri*3+2]
		for _, pair := range [][2]math3d.Vec3{{r0.V0, r1.V0}, {r0.V1, r1.V1}, {r0.V2, r1.V2}, {r1.V0, r2.V0}} {
			if pair[0] != pair[1] {
				t.Errorf("triangle %d: triangle-wide vertex mismatch across corners", tri)
			}
		}
		if r0.M != r1.M || r1.M != r2.M {
			t.Errorf("triangle %d: m mismatch across corners", tri)
		}
	}
}

// m is the min of the three activated opacities, not a post-hoc recompute.
func TestMinWeightFromOpacities(t *testing.T) {
	in := quadScene([4]float64{0.001, 0.5, 0.5, 0.5})
	buf, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := buf.Records[0].M; math.Abs(got-0.001) > 1e-12 {
		t.Errorf("triangle 0 m = %v, want 0.001", got)
	}
}

func TestCentroid(t *testing.T) {
	in := &SceneInput{
		Vertices: []math3d.Vec3{
			math3d.V3(0, 0, 0),
			math3d.V3(1, 0, 0),
			math3d.V3(0, 1, 0),
		},
		Triangles: [][3]uint32{{0, 1, 2}},
		Opacities: []float64{1, 1, 1},
	}
	buf, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := math3d.V3(1.0/3, 1.0/3, 0)
	got := buf.Centroids[0]
	if math.Abs(got.X-want.X) > 1e-4 || math.Abs(got.Y-want.Y) > 1e-4 || math.Abs(got.Z-want.Z) > 1e-4 {
		t.Errorf("centroid = %v, want %v", got, want)
	}
}

func TestBuildRejectsMismatchedOpacityCount(t *testing.T) {
	in := quadScene([4]float64{0.5, 0.5, 0.5, 0.5})
	in.Opacities = in.Opacities[:3]
	if _, err := Build(in); err == nil {
		t.Fatal("expected error for mismatched opacity count")
	}
}

func TestBuildRejectsOutOfRangeTriangleIndex(t *testing.T) {
	in := quadScene([4]float64{0.5, 0.5, 0.5, 0.5})
	in.Triangles = append(in.Triangles, [3]uint32{0, 1, 99})
	if _, err := Build(in); err == nil {
		t.Fatal("expected error for out-of-range vertex index")
	}
}

func TestBuildRejectsBadRestLength(t *testing.T) {
	in := quadScene([4]float64{0.5, 0.5, 0.5, 0.5})
	in.Degree = 1
	in.FeaturesDC = make([][3]float64, 4)
	in.FeaturesRest = make([][]float64, 4)
	for i := range in.FeaturesRest {
		in.FeaturesRest[i] = make([]float64, 2) // wrong: degree 1 wants 3*3=9
	}
	if _, err := Build(in); err == nil {
		t.Fatal("expected error for malformed SH rest buffer")
	}
}

func TestBuildEmptyScene(t *testing.T) {
	in := &SceneInput{Opacities: nil}
	buf, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(buf.Records) != 0 || buf.TriangleCount != 0 {
		t.Fatalf("expected empty buffers for T=0 scene, got %+v", buf)
	}
}

func TestSHTableRoundTrip(t *testing.T) {
	table := NewSHTable(5)
	dc := [3]float64{0.1, 0.2, 0.3}
	rest := make([]float64, 9)
	for i := range rest {
		rest[i] = float64(i) * 0.01
	}
	table.Set(2, dc, rest)

	gotDC, gotRest := table.Get(2)
	if gotDC != dc {
		t.Errorf("dc = %v, want %v", gotDC, dc)
	}
	for i, v := range rest {
		if math.Abs(gotRest[i]-v) > 1e-12 {
			t.Errorf("rest[%d] = %v, want %v", i, gotRest[i], v)
		}
	}
	for i := len(rest); i < len(gotRest); i++ {
		if gotRest[i] != 0 {
			t.Errorf("rest[%d] = %v, want 0 (zero-padded)", i, gotRest[i])
		}
	}
}

func TestSHTableWidthAndHeight(t *testing.T) {
	table := NewSHTable(100)
	if table.Width != 1024 {
		t.Errorf("width = %d, want 1024", table.Width)
	}
	wantHeight := ceilDiv(12*100, 1024)
	if table.Height != wantHeight {
		t.Errorf("height = %d, want %d", table.Height, wantHeight)
	}
}
