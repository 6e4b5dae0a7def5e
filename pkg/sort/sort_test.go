package sort

import (
	"context"
	"testing"
	"time"

	"github.com/taigrr/splatview/pkg/math3d"
)

// identityViewForDepths builds a model-view matrix whose camera-space z
// equals the given centroid's Z component, so test depths can be encoded
// directly as centroid.Z.
func identityViewForDepths() math3d.Mat4 {
	return math3d.Identity()
}

func centroidsFromDepths(depths []float64) []math3d.Vec3 {
	out := make([]math3d.Vec3, len(depths))
	for i, z := range depths {
		out[i] = math3d.V3(0, 0, z)
	}
	return out
}

// A known set of depths sorts to a known back-to-front order, and resorting
// an unchanged view produces the identical permutation.
func TestComputeOrderAndStability(t *testing.T) {
	depths := []float64{-10, -5, -15, -1, -20}
	centers := centroidsFromDepths(depths)
	req := Request{NumTriangles: len(depths), Centers: centers, ViewMatrix: identityViewForDepths(), RequestID: 1}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	wantOrder := []int{4, 2, 0, 1, 3}
	for k, tri := range wantOrder {
		base := k * 3
		if res.PreparedIndexArray[base] != uint32(tri*3) ||
			res.PreparedIndexArray[base+1] != uint32(tri*3+1) ||
			res.PreparedIndexArray[base+2] != uint32(tri*3+2) {
			t.Fatalf("position %d: got corners %v, want triangle %d's corners",
				k, res.PreparedIndexArray[base:base+3], tri)
		}
	}

	res2, err := Compute(req)
	if err != nil {
		t.Fatalf("Compute (repeat): %v", err)
	}
	for i := range res.PreparedIndexArray {
		if res.PreparedIndexArray[i] != res2.PreparedIndexArray[i] {
			t.Fatalf("repeat sort diverged at %d: %d vs %d", i, res.PreparedIndexArray[i], res2.PreparedIndexArray[i])
		}
	}
}

func TestComputeFlatDepthEmitsIdentity(t *testing.T) {
	depths := []float64{5, 5, 5, 5.0000000001}
	req := Request{NumTriangles: len(depths), Centers: centroidsFromDepths(depths), ViewMatrix: identityViewForDepths(), RequestID: 2}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i, v := range res.PreparedIndexArray {
		if v != uint32(i) {
			t.Fatalf("index[%d] = %d, want identity %d", i, v, i)
		}
	}
}

func TestComputeEmptyScene(t *testing.T) {
	res, err := Compute(Request{NumTriangles: 0, RequestID: 3})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.PreparedIndexArray) != 0 {
		t.Fatalf("expected empty index array, got %v", res.PreparedIndexArray)
	}
}

// The output is always a permutation of triangle-triples: every corner
// index appears exactly once.
func TestComputeIsValidPermutation(t *testing.T) {
	depths := []float64{3, -8, 1, 9, -2, 0, 7}
	req := Request{NumTriangles: len(depths), Centers: centroidsFromDepths(depths), ViewMatrix: identityViewForDepths(), RequestID: 4}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	seen := make(map[uint32]bool)
	for _, idx := range res.PreparedIndexArray {
		if seen[idx] {
			t.Fatalf("corner index %d appears more than once", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 3*len(depths) {
		t.Fatalf("got %d distinct corner indices, want %d", len(seen), 3*len(depths))
	}
	for tri := 0; tri < len(depths); tri++ {
		base := tri * 3
		if !seen[uint32(base)] || !seen[uint32(base+1)] || !seen[uint32(base+2)] {
			t.Fatalf("triangle %d's corners are not all present", tri)
		}
	}
}

func TestComputeRejectsMismatchedCentroidCount(t *testing.T) {
	_, err := Compute(Request{NumTriangles: 3, Centers: centroidsFromDepths([]float64{1, 2}), RequestID: 5})
	if err == nil {
		t.Fatal("expected error for mismatched centroid count")
	}
}

func TestWorkerRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(ctx)
	depths := []float64{-1, -2, -3}
	w.Submit(Request{NumTriangles: 3, Centers: centroidsFromDepths(depths), ViewMatrix: identityViewForDepths(), RequestID: 42})

	select {
	case res := <-w.Results():
		if res.RequestID != 42 {
			t.Fatalf("requestID = %d, want 42", res.RequestID)
		}
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sort result")
	}
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(ctx)
	cancel()

	// Give the goroutine a moment to observe cancellation; this is a
	// best-effort liveness check, not a strict timing assertion.
	time.Sleep(10 * time.Millisecond)

	select {
	case w.requests <- Request{NumTriangles: 0}:
		// The buffered channel may still accept one send even after the
		// worker has exited; that's fine, nothing will ever read it back.
	default:
	}
}
