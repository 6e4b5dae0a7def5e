// Package scene owns a loaded splat scene across frames: it holds the
// immutable geometry buffer, the sorter worker, the per-frame uniforms, and
// the index-buffer install logic that keeps the render loop non-blocking
// while sorting happens off-thread.
package scene

import (
	"context"
	"log"
	"time"

	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/raster"
	"github.com/taigrr/splatview/pkg/render"
	"github.com/taigrr/splatview/pkg/sh"
	"github.com/taigrr/splatview/pkg/sort"
	"github.com/taigrr/splatview/pkg/splat"
)

// SortThrottle bounds how often a sort may be dispatched: at most one per
// 100ms per scene instance, with at most one in flight.
const SortThrottle = 100 * time.Millisecond

// Driver is the render-actor side of the scene: it updates uniforms each
// frame, throttles and dispatches sort requests, installs completed
// results by requestId, and draws the current index order through the
// raster package into a framebuffer.
type Driver struct {
	buf    *splat.Buffers
	in     *splat.SceneInput
	degree int
	sigma  float64
	opts   raster.Options
	worker *sort.Worker

	prevViewMatrix   math3d.Mat4
	haveView         bool
	lastSortTime     time.Time
	sortInFlight     bool
	currentRequestID uint32
}

// NewDriver builds the geometry tables for in and starts a sort worker tied
// to ctx. The worker goroutine exits when ctx is cancelled.
func NewDriver(ctx context.Context, in *splat.SceneInput) (*Driver, error) {
	buf, err := splat.Build(in)
	if err != nil {
		return nil, err
	}
	return &Driver{
		buf:    buf,
		in:     in,
		degree: in.Degree,
		sigma:  in.EffectiveSigma(),
		worker: sort.NewWorker(ctx),
	}, nil
}

// SetSigma updates the edge-shrink exponent used by subsequent frames.
func (d *Driver) SetSigma(sigma float64) {
	if sigma <= 0 {
		sigma = 1.0
	}
	d.sigma = sigma
}

// SetOptions updates the culling options used by subsequent frames.
func (d *Driver) SetOptions(opts raster.Options) {
	d.opts = opts
}

// Update runs one frame's worth of driver bookkeeping: it dispatches a sort
// request if the view changed, the throttle window has elapsed, and no
// sort is already in flight; it then drains and installs any completed
// result whose requestId matches the one currently in flight.
func (d *Driver) Update(now time.Time, viewMatrix math3d.Mat4) {
	viewChanged := !d.haveView || viewMatrix != d.prevViewMatrix

	if !d.sortInFlight && viewChanged && now.Sub(d.lastSortTime) >= SortThrottle {
		d.currentRequestID++
		d.sortInFlight = true
		d.lastSortTime = now
		d.worker.Submit(sort.Request{
			NumTriangles: d.buf.TriangleCount,
			Centers:      d.buf.Centroids,
			ViewMatrix:   viewMatrix,
			RequestID:    d.currentRequestID,
		})
		// Only consume the view-change signal once a sort for it is
		// actually requested; a throttled or in-flight change must stay
		// pending so it isn't silently dropped once the gate reopens.
		d.prevViewMatrix = viewMatrix
		d.haveView = true
	}

	select {
	case res := <-d.worker.Results():
		d.installResult(result{requestID: res.RequestID, indexArray: res.PreparedIndexArray, err: res.Err})
	default:
	}
}

// result is the install-time shape of a completed sort, decoupled from
// sort.Result so the installation rule — only a result whose id matches
// the driver's current id is installed — can be exercised directly.
type result struct {
	requestID  uint32
	indexArray []uint32
	err        error
}

func (d *Driver) installResult(res result) {
	if res.requestID != d.currentRequestID {
		return
	}
	if res.err != nil {
		log.Printf("scene: sort request %d failed: %v", res.requestID, res.err)
	} else {
		d.buf.IndexBuffer = res.indexArray
	}
	d.sortInFlight = false
}

// Draw rasterizes the current index order into fb using the given camera
// uniforms. It does not clear fb; callers composite splats onto whatever
// background they already cleared to.
func (d *Driver) Draw(fb *render.Framebuffer, cameraPos math3d.Vec3, modelView, projection math3d.Mat4) {
	u := raster.Uniforms{
		CameraPos:  cameraPos,
		ModelView:  modelView,
		Projection: projection,
		Width:      fb.Width,
		Height:     fb.Height,
		Sigma:      d.sigma,
	}

	ib := d.buf.IndexBuffer
	for tri := 0; tri < d.buf.TriangleCount; tri++ {
		r0 := d.buf.Records[ib[tri*3]]
		r1 := d.buf.Records[ib[tri*3+1]]
		r2 := d.buf.Records[ib[tri*3+2]]

		color0, color1, color2 := d.cornerColors(r0, r1, r2, cameraPos)

		prep, ok := raster.CullAndShrink(r0.V0, r0.V1, r0.V2, r0.M, color0, color1, color2, u, d.opts)
		if !ok {
			continue
		}
		raster.Draw(fb, prep)
	}
}

func (d *Driver) cornerColors(r0, r1, r2 splat.VertexRecord, cameraPos math3d.Vec3) (c0, c1, c2 [3]float64) {
	if d.buf.HasSH {
		c0 = d.shColorAt(r0.VertexIndex, r0.Position, cameraPos)
		c1 = d.shColorAt(r1.VertexIndex, r1.Position, cameraPos)
		c2 = d.shColorAt(r2.VertexIndex, r2.Position, cameraPos)
		return c0, c1, c2
	}
	if d.buf.HasColor {
		return r0.Color, r1.Color, r2.Color
	}
	white := [3]float64{1, 1, 1}
	return white, white, white
}

func (d *Driver) shColorAt(vertexIndex int, worldPos, cameraPos math3d.Vec3) [3]float64 {
	dc, rest := d.buf.SH.Get(vertexIndex)
	u := worldPos.Sub(cameraPos).Normalize()
	restLen := sh.RestCount(d.degree) * 3
	r, g, b := sh.Eval(d.degree, dc, rest[:restLen], u)
	return [3]float64{r, g, b}
}
