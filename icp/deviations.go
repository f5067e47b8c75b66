package icp

import "context"

// Deviations computes dFi = fi - muF, dMi = mi - muM over the
// geometric lanes, a pure map with no reduction. The fourth lane is carried
// as zero.
func Deviations(ctx context.Context, dev *device, fLandmarks, mLandmarks Cloud, corr []Correspondence, means MeanPair) (dF, dM [][4]float64, err error) {
	n := len(corr)
	dF = make([][4]float64, n)
	dM = make([][4]float64, n)

	err = dev.mapBlocks(ctx, n, StageDeviations, func(i int) {
		fp := fLandmarks.At(int(corr[i].ID)).Geom()
		mp := mLandmarks.At(i).Geom()
		for k := 0; k < 3; k++ {
			dF[i][k] = float64(fp[k]) - means.F[k]
			dM[i][k] = float64(mp[k]) - means.M[k]
		}
		dF[i][3] = 0
		dM[i][3] = 0
	})
	if err != nil {
		return nil, nil, err
	}
	return dF, dM, nil
}
