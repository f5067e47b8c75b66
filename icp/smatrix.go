package icp

import "context"

// AccumulateSMatrix computes the 3x3 cross-covariance of the
// centred, corresponded landmarks plus the two scale-recovery scalars
// Sc_num = sum(wi * fi.mi), Sc_den = sum(wi * mi.mi), computed over the
// three geometric lanes of the *original*, non-centred landmarks. The
// WEIGHTED variant multiplies every summand by wi; REGULAR uses wi=1.
func AccumulateSMatrix(ctx context.Context, dev *device, fLandmarks, mLandmarks Cloud, corr []Correspondence, dF, dM [][4]float64, w []float64, weighting Weighting) (SMatrix, error) {
	n := len(corr)
	if n == 0 {
		return SMatrix{}, newEmptyInput("smatrix: no correspondences")
	}

	sums, err := dev.reduceVector(ctx, n, 11, StageSMatrix, func(i int, out []float64) {
		weight := 1.0
		if weighting == DistanceWeighted {
			weight = w[i]
		}
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[j*3+k] += weight * dF[i][j] * dM[i][k]
			}
		}

		fp := fLandmarks.At(int(corr[i].ID)).Geom()
		mp := mLandmarks.At(i).Geom()
		var fDotM, mDotM float64
		for k := 0; k < 3; k++ {
			fDotM += float64(fp[k]) * float64(mp[k])
			mDotM += float64(mp[k]) * float64(mp[k])
		}
		out[9] += weight * fDotM
		out[10] += weight * mDotM
	})
	if err != nil {
		return SMatrix{}, err
	}

	var s SMatrix
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			s.S[j][k] = sums[j*3+k]
		}
	}
	s.ScNum = sums[9]
	s.ScDen = sums[10]
	return s, nil
}

// nearZero reports whether the Frobenius norm of S's 3x3 block is below tol;
// ExtractIncrementalTransform uses it to detect an all-zero (degenerate) S.
func (s SMatrix) nearZero(tol float64) bool {
	var sumSq float64
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			sumSq += s.S[j][k] * s.S[j][k]
		}
	}
	return sumSq < tol*tol
}
