// Package rbc implements a Random Ball Cover: an approximate
// nearest-neighbour structure over a set of landmarks, indexed by a
// smaller set of representatives. The ICP core treats this package as an
// external collaborator; any type satisfying the same Build/Query contract
// may substitute (a GPU-backed index, say) without the controller changing.
package rbc

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Point is the 4-D photogeometric coordinate (x, y, z, colour) the index
// partitions and searches over; it deliberately does not depend on the icp
// package so this collaborator stays swappable.
type Point [4]float32

// Correspondence is the per-query nearest-neighbour result: the squared
// distance and the index into the landmark set the index was built over.
type Correspondence struct {
	Dist float32
	ID   uint32
}

// ball is the set of landmark indices assigned to one representative.
type ball struct {
	repIdx  int
	members []int
}

// Index is a built Random Ball Cover: landmarks partitioned into len(reps)
// balls, each ball holding the landmarks nearest to its representative.
type Index struct {
	reps      []Point
	landmarks []Point
	balls     []ball
	workers   int64
}

// Build partitions landmarks into len(reps) balls, one per representative,
// by nearest representative under squared Euclidean distance in the 4-D
// photogeometric space. Returns an error if either input
// is empty.
func Build(reps, landmarks []Point, workers int) (*Index, error) {
	if len(reps) == 0 {
		return nil, fmt.Errorf("rbc: build: no representatives")
	}
	if len(landmarks) == 0 {
		return nil, fmt.Errorf("rbc: build: no landmarks")
	}
	if workers < 1 {
		workers = 1
	}

	balls := make([]ball, len(reps))
	for i := range balls {
		balls[i].repIdx = i
	}

	// Assign each landmark to its nearest representative. This is itself a
	// data-parallel map (each landmark independent), so it honours the same
	// bounded-concurrency kernel-launch model as the rest of the core.
	assignments := make([]int, len(landmarks))
	if err := parallelFor(len(landmarks), workers, func(li int) {
		best, bestDist := 0, float32(math.MaxFloat32)
		lp := landmarks[li]
		for ri, rp := range reps {
			d := distSq(lp, rp)
			if d < bestDist {
				bestDist = d
				best = ri
			}
		}
		assignments[li] = best
	}); err != nil {
		return nil, err
	}

	for li, ri := range assignments {
		balls[ri].members = append(balls[ri].members, li)
	}

	return &Index{reps: reps, landmarks: landmarks, balls: balls, workers: int64(workers)}, nil
}

// Query returns, for each query point, the nearest landmark found by
// consulting only the ball of the query's own nearest representative: an
// approximate, conservative search that trades a little recall for avoiding
// an exhaustive scan of every landmark.
func (idx *Index) Query(ctx context.Context, queries []Point) ([]Correspondence, error) {
	out := make([]Correspondence, len(queries))
	sem := semaphore.NewWeighted(idx.workers)
	g, gctx := errgroup.WithContext(ctx)

	for qi := range queries {
		qi := qi
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			q := queries[qi]
			nearestRep, nearestRepDist := 0, float32(math.MaxFloat32)
			for ri, rp := range idx.reps {
				d := distSq(q, rp)
				if d < nearestRepDist {
					nearestRepDist = d
					nearestRep = ri
				}
			}

			best := Correspondence{Dist: float32(math.MaxFloat32), ID: 0}
			for _, li := range idx.balls[nearestRep].members {
				d := distSq(q, idx.landmarks[li])
				if d < best.Dist {
					best = Correspondence{Dist: d, ID: uint32(li)}
				}
			}
			out[qi] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rbc: query: %w", err)
	}
	return out, nil
}

func distSq(a, b Point) float32 {
	dx, dy, dz, dc := a[0]-b[0], a[1]-b[1], a[2]-b[2], a[3]-b[3]
	return dx*dx + dy*dy + dz*dz + dc*dc
}

// parallelFor runs fn(i) for i in [0,n) across up to `workers` goroutines.
func parallelFor(n int, workers int, fn func(i int)) error {
	sem := semaphore.NewWeighted(int64(workers))
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			fn(i)
			return nil
		})
	}
	return g.Wait()
}
