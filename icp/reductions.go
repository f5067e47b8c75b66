package icp

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// reduceSum performs a block-tree parallel sum over n scalar values, each
// produced by valueAt(i), accumulating in float64 regardless of the
// public-facing precision. Block partials are combined pairwise in
// block-index order, so summation order, and therefore rounding, is a
// function only of defaultBlockSize, never of goroutine scheduling.
func (d *device) reduceSum(ctx context.Context, n int, stage Stage, valueAt func(i int) float64) (float64, error) {
	if n == 0 {
		return 0, nil
	}
	blocks := d.blockCount(n)
	partials := make([]float64, blocks)

	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < blocks; b++ {
		b := b
		g.Go(func() error {
			release, err := d.acquire(gctx)
			if err != nil {
				return err
			}
			defer release()

			start := b * d.blockSize
			end := start + d.blockSize
			if end > n {
				end = n
			}
			var sum float64
			for i := start; i < end; i++ {
				sum += valueAt(i)
			}
			partials[b] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, newStageError(stage, err)
	}
	return pairwiseSum(partials), nil
}

// reduceVector is reduceSum generalised to a fixed-width accumulator,
// used by the means and S-matrix stages which each emit
// several scalars from one pass over the landmarks. accumulate must add
// item i's contribution into out (which is zeroed per block before use).
func (d *device) reduceVector(ctx context.Context, n, width int, stage Stage, accumulate func(i int, out []float64)) ([]float64, error) {
	out := make([]float64, width)
	if n == 0 {
		return out, nil
	}
	blocks := d.blockCount(n)
	partials := make([][]float64, blocks)

	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < blocks; b++ {
		b := b
		g.Go(func() error {
			release, err := d.acquire(gctx)
			if err != nil {
				return err
			}
			defer release()

			start := b * d.blockSize
			end := start + d.blockSize
			if end > n {
				end = n
			}
			local := make([]float64, width)
			for i := start; i < end; i++ {
				accumulate(i, local)
			}
			partials[b] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, newStageError(stage, err)
	}
	return pairwiseVectorSum(partials, width), nil
}

// mapBlocks applies fn to every index in [0,n) across bounded-concurrency
// kernel blocks, for pure data-parallel stages that emit no reduction
// (sampling, deviations, transform).
func (d *device) mapBlocks(ctx context.Context, n int, stage Stage, fn func(i int)) error {
	if n == 0 {
		return nil
	}
	blocks := d.blockCount(n)
	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < blocks; b++ {
		b := b
		g.Go(func() error {
			release, err := d.acquire(gctx)
			if err != nil {
				return err
			}
			defer release()

			start := b * d.blockSize
			end := start + d.blockSize
			if end > n {
				end = n
			}
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return newStageError(stage, err)
	}
	return nil
}

// pairwiseSum combines partials via tree-structured fan-in for a
// numerically stable, deterministic summation order.
func pairwiseSum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	if len(xs) == 1 {
		return xs[0]
	}
	mid := len(xs) / 2
	return pairwiseSum(xs[:mid]) + pairwiseSum(xs[mid:])
}

// pairwiseVectorSum is pairwiseSum generalised to fixed-width vectors.
func pairwiseVectorSum(xs [][]float64, width int) []float64 {
	out := make([]float64, width)
	if len(xs) == 0 {
		return out
	}
	if len(xs) == 1 {
		copy(out, xs[0])
		return out
	}
	mid := len(xs) / 2
	left := pairwiseVectorSum(xs[:mid], width)
	right := pairwiseVectorSum(xs[mid:], width)
	for i := range out {
		out[i] = left[i] + right[i]
	}
	return out
}
