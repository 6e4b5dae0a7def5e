package scene

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/render"
	"github.com/taigrr/splatview/pkg/splat"
)

func flatScene() *splat.SceneInput {
	return &splat.SceneInput{
		Vertices: []math3d.Vec3{
			math3d.V3(-1, -1, -5),
			math3d.V3(1, -1, -5),
			math3d.V3(0, 1, -5),
		},
		Triangles: [][3]uint32{{0, 1, 2}},
		Opacities: []float64{0.9, 0.9, 0.9},
		Colors:    [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}},
	}
}

func TestNewDriverBuildsGeometry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := NewDriver(ctx, flatScene())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if d.buf.TriangleCount != 1 {
		t.Fatalf("triangle count = %d, want 1", d.buf.TriangleCount)
	}
}

func TestDriverThrottlesSortDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := NewDriver(ctx, flatScene())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	base := time.Unix(1000, 0)
	view1 := math3d.Translate(math3d.V3(1, 0, 0))
	d.Update(base, view1)
	if !d.sortInFlight {
		t.Fatal("expected first view change to dispatch a sort")
	}
	firstID := d.currentRequestID

	// Drain the result so a second dispatch is possible once throttle opens.
	select {
	case res := <-d.worker.Results():
		if res.RequestID == d.currentRequestID {
			d.sortInFlight = false
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first sort result")
	}

	view2 := math3d.Translate(math3d.V3(2, 0, 0))
	d.Update(base.Add(10*time.Millisecond), view2)
	if d.currentRequestID != firstID {
		t.Fatal("expected throttle to suppress a second dispatch within 100ms")
	}

	d.Update(base.Add(150*time.Millisecond), view2)
	if d.currentRequestID == firstID {
		t.Fatal("expected a new dispatch once the throttle window elapsed")
	}
}

func TestDriverIgnoresStaleResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := NewDriver(ctx, flatScene())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	originalIndex := append([]uint32(nil), d.buf.IndexBuffer...)

	// A result tagged with an id below the driver's current one (e.g. one
	// superseded by a later dispatch) must not be installed.
	d.currentRequestID = 5
	d.installResult(result{requestID: 3, indexArray: []uint32{99, 99, 99}})

	for i, v := range originalIndex {
		if d.buf.IndexBuffer[i] != v {
			t.Fatalf("stale result was installed: index buffer[%d] = %d, want %d", i, d.buf.IndexBuffer[i], v)
		}
	}
}

func TestDriverDrawProducesVisiblePixels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := NewDriver(ctx, flatScene())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	fb := render.NewFramebuffer(200, 200)
	fb.Clear(render.ColorBlack)

	proj := math3d.Perspective(math.Pi/3, 1, 0.1, 100)
	d.Draw(fb, math3d.V3(0, 0, 0), math3d.Identity(), proj)

	lit := false
	for _, px := range fb.Pixels {
		if px.R != 0 || px.G != 0 || px.B != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatal("expected Draw to light at least one pixel for a front-facing triangle")
	}
}
