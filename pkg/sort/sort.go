// Package sort computes the back-to-front triangle depth order for a splat
// scene and runs it asynchronously on a worker goroutine so the render loop
// is never blocked waiting on it.
package sort

import (
	"context"
	"fmt"

	"github.com/taigrr/splatview/pkg/math3d"
)

// depthRangeEps is the minimum camera-space depth spread a scene must have
// before sorting is worthwhile; below this the scene is treated as
// depth-flat and the identity permutation is emitted.
const depthRangeEps = 1e-7

const bucketCount = 65536

// Request is a sort job: the camera-space model-view matrix and the
// triangle centroid table, tagged with a monotonically increasing id so
// stale results can be discarded by the caller.
type Request struct {
	NumTriangles int
	Centers      []math3d.Vec3
	ViewMatrix   math3d.Mat4
	RequestID    uint32
}

// Result is a completed (or failed) sort job, tagged with the RequestID of
// the Request it answers.
type Result struct {
	PreparedIndexArray []uint32
	RequestID          uint32
	Err                error
}

// Compute performs the depth sort synchronously: camera-space z per
// triangle, bucket into 16-bit buckets, counting sort ascending (farthest
// first), and emit 3*T corner indices. It never blocks and allocates only
// what it returns plus O(T) scratch and two fixed 65536-entry count tables.
func Compute(req Request) (*Result, error) {
	t := req.NumTriangles
	if len(req.Centers) != t {
		return nil, fmt.Errorf("sort: %d centroids for %d triangles", len(req.Centers), t)
	}

	indexArray := make([]uint32, 3*t)
	if t == 0 {
		return &Result{PreparedIndexArray: indexArray, RequestID: req.RequestID}, nil
	}

	m := req.ViewMatrix
	depths := make([]float64, t)
	minZ, maxZ := depthAt(m, req.Centers[0]), depthAt(m, req.Centers[0])
	for i, c := range req.Centers {
		z := depthAt(m, c)
		depths[i] = z
		if z < minZ {
			minZ = z
		}
		if z > maxZ {
			maxZ = z
		}
	}

	if maxZ-minZ <= depthRangeEps {
		for i := 0; i < t; i++ {
			writeTriangle(indexArray, i, i)
		}
		return &Result{PreparedIndexArray: indexArray, RequestID: req.RequestID}, nil
	}

	order := countingSortByBucket(depths, minZ, maxZ)
	for k, triIdx := range order {
		writeTriangle(indexArray, k, triIdx)
	}

	return &Result{PreparedIndexArray: indexArray, RequestID: req.RequestID}, nil
}

func depthAt(m math3d.Mat4, c math3d.Vec3) float64 {
	return m[2]*c.X + m[6]*c.Y + m[10]*c.Z + m[14]
}

func writeTriangle(indexArray []uint32, position, triangle int) {
	base := position * 3
	triBase := uint32(triangle * 3)
	indexArray[base] = triBase
	indexArray[base+1] = triBase + 1
	indexArray[base+2] = triBase + 2
}

// countingSortByBucket maps each depth into a 16-bit bucket and performs a
// stable counting sort ascending by bucket, so bucket 0 (farthest) is
// emitted first — back-to-front order for "over" blending.
func countingSortByBucket(depths []float64, minZ, maxZ float64) []int {
	t := len(depths)
	scale := float64(bucketCount-1) / (maxZ - minZ)

	buckets := make([]int, t)
	counts := make([]int, bucketCount+1)
	for i, z := range depths {
		b := int((z - minZ) * scale)
		if b < 0 {
			b = 0
		}
		if b >= bucketCount {
			b = bucketCount - 1
		}
		buckets[i] = b
		counts[b+1]++
	}

	for b := 0; b < bucketCount; b++ {
		counts[b+1] += counts[b]
	}

	order := make([]int, t)
	cursor := make([]int, bucketCount)
	copy(cursor, counts[:bucketCount])
	for i := 0; i < t; i++ {
		b := buckets[i]
		order[cursor[b]] = i
		cursor[b]++
	}
	return order
}

// Worker runs Compute on a background goroutine, reading Requests and
// writing Results, until its context is cancelled. It never shares mutable
// state with the caller: each Request/Result payload is self-contained and
// ownership moves across the channel send.
type Worker struct {
	requests chan Request
	results  chan Result
}

// NewWorker starts a worker goroutine. Cancel ctx to tear it down; the
// goroutine exits once ctx is done and no further sends occur.
func NewWorker(ctx context.Context) *Worker {
	w := &Worker{
		requests: make(chan Request, 1),
		results:  make(chan Result, 1),
	}
	go w.run(ctx)
	return w
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			result, err := Compute(req)
			if err != nil {
				result = &Result{RequestID: req.RequestID, Err: err}
			}
			select {
			case w.results <- *result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a sort request. It does not block the caller beyond the
// channel's single-slot buffer; if a submit is already pending it blocks
// until the worker drains it (the driver is expected to throttle so this
// never happens in practice — see pkg/scene).
func (w *Worker) Submit(req Request) {
	w.requests <- req
}

// Results returns the channel of completed sort results.
func (w *Worker) Results() <-chan Result {
	return w.results
}
