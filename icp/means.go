package icp

import "context"

// Means computes the weighted or unweighted geometric centroid of the
// corresponded F-subset and M-landmarks. Only the 4-D geometric lane
// is averaged; colour lanes are untouched here.
func Means(ctx context.Context, dev *device, fLandmarks, mLandmarks Cloud, corr []Correspondence, w []float64, weighting Weighting, weightSum float64) (MeanPair, error) {
	n := len(corr)
	if n == 0 {
		return MeanPair{}, newEmptyInput("means: no correspondences")
	}

	sums, err := dev.reduceVector(ctx, n, 8, StageMeans, func(i int, out []float64) {
		fp := fLandmarks.At(int(corr[i].ID)).Geom()
		mp := mLandmarks.At(i).Geom()
		weight := 1.0
		if weighting == DistanceWeighted {
			weight = w[i]
		}
		for k := 0; k < 4; k++ {
			out[k] += weight * float64(fp[k])
			out[4+k] += weight * float64(mp[k])
		}
	})
	if err != nil {
		return MeanPair{}, err
	}

	denom := float64(n)
	if weighting == DistanceWeighted {
		denom = weightSum
	}
	if denom == 0 {
		return MeanPair{}, newDegenerateError("zero weight sum in means")
	}

	var mp MeanPair
	for k := 0; k < 4; k++ {
		mp.F[k] = sums[k] / denom
		mp.M[k] = sums[4+k] / denom
	}
	// Fourth lane (homogeneous padding) is carried as zero, not averaged.
	mp.F[3] = 0
	mp.M[3] = 0
	return mp, nil
}
