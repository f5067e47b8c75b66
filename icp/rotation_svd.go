package icp

import "gonum.org/v1/gonum/mat"

// svdRankTolerance is the ratio of smallest to largest singular value below
// which the cross-covariance is treated as rank-deficient.
const svdRankTolerance = 1e-9

// ExtractRotationSVD implements the host-side SVD variant of rotation
// extraction: decompose the 3x3 cross-covariance S = U*Sigma*V^T, then
// R = V * diag(1,1,det(V*U^T)) * U^T, which guarantees det(R)=+1 when V*U^T
// is a reflection. A rank-deficient S (smallest to largest singular value
// ratio below svdRankTolerance) is reported as a DegenerateError instead.
func ExtractRotationSVD(s SMatrix) ([3][3]float64, error) {
	var r [3][3]float64

	a := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			a.Set(j, k, s.S[j][k])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return r, newStageError(StageRotation, ErrComputeFailed)
	}

	values := svd.Values(nil)
	if values[0] == 0 || values[2]/values[0] < svdRankTolerance {
		return r, newDegenerateError("3x3 cross-covariance is rank-deficient")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())
	det := mat.Det(&vut)
	d := 1.0
	if det < 0 {
		d = -1.0
	}

	var vd mat.Dense
	vd.Mul(&v, mat.NewDiagDense(3, []float64{1, 1, d}))
	var rm mat.Dense
	rm.Mul(&vd, u.T())

	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			r[j][k] = rm.At(j, k)
		}
	}
	return r, nil
}
