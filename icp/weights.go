package icp

import "context"

// Weights computes, given per-correspondence squared distances,
// produce wi = 1/(di^2+eps) and their sum in double precision, in one pass
// with block reduction. EmptyInput is returned if there are no
// correspondences.
func Weights(ctx context.Context, dev *device, corr []Correspondence, eps float64) (w []float64, sum float64, err error) {
	n := len(corr)
	if n == 0 {
		return nil, 0, newEmptyInput("weights: no correspondences")
	}

	w = make([]float64, n)
	if err := dev.mapBlocks(ctx, n, StageWeights, func(i int) {
		w[i] = 1.0 / (float64(corr[i].Dist) + eps)
	}); err != nil {
		return nil, 0, err
	}

	sum, err = dev.reduceSum(ctx, n, StageWeights, func(i int) float64 { return w[i] })
	if err != nil {
		return nil, 0, err
	}
	return w, sum, nil
}
