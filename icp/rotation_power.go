package icp

import "math"

const (
	powerMethodMaxIterations = 200
	powerMethodTolerance     = 1e-6
)

// nMatrixFromS builds the symmetric 4x4 matrix of Horn's quaternion method:
//
//	N = [ tr(S)       Δ^T            ]
//	    [ Δ       S+S^T-tr(S)*I      ]
//
// whose dominant eigenvector is the optimal unit quaternion, scalar part
// first (Horn's formulation), i.e. v = (w, x, y, z).
func nMatrixFromS(s SMatrix) [4][4]float64 {
	trace := s.S[0][0] + s.S[1][1] + s.S[2][2]
	delta := [3]float64{
		s.S[1][2] - s.S[2][1],
		s.S[2][0] - s.S[0][2],
		s.S[0][1] - s.S[1][0],
	}

	var n [4][4]float64
	n[0][0] = trace
	for i := 0; i < 3; i++ {
		n[0][i+1] = delta[i]
		n[i+1][0] = delta[i]
	}
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			v := s.S[j][k] + s.S[k][j]
			if j == k {
				v -= trace
			}
			n[j+1][k+1] = v
		}
	}
	return n
}

// gershgorinLowerBound returns a lower bound on N's smallest eigenvalue,
// used to shift N into positive-semidefinite territory so that plain power
// iteration (rather than inverse iteration) converges to N's dominant
// eigenvector.
func gershgorinLowerBound(n [4][4]float64) float64 {
	bound := math.Inf(1)
	for i := 0; i < 4; i++ {
		radius := 0.0
		for j := 0; j < 4; j++ {
			if j != i {
				radius += math.Abs(n[i][j])
			}
		}
		lb := n[i][i] - radius
		if lb < bound {
			bound = lb
		}
	}
	return bound
}

func matVec4(n [4][4]float64, v [4]float64) [4]float64 {
	var out [4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i] += n[i][j] * v[j]
		}
	}
	return out
}

func vecNorm4(v [4]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2] + v[3]*v[3])
}

func vecSub4(a, b [4]float64) [4]float64 {
	return [4]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func vecAdd4(a, b [4]float64) [4]float64 {
	return [4]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func vecNormalize4(v [4]float64) ([4]float64, bool) {
	n := vecNorm4(v)
	if n < 1e-15 {
		return v, false
	}
	return [4]float64{v[0] / n, v[1] / n, v[2] / n, v[3] / n}, true
}

// ExtractRotationPowerMethod implements the device-simulated rotation
// variant: run the Power Method with deflation against the identity on
// the 4x4 matrix built from S, until ‖Δv‖ < 1e-6 or 200 iterations. Returns
// a Degenerate error if convergence is not reached.
func ExtractRotationPowerMethod(s SMatrix) (Quaternion, error) {
	n := nMatrixFromS(s)
	shift := gershgorinLowerBound(n)

	v := [4]float64{1, 0, 0, 0}
	for iter := 0; iter < powerMethodMaxIterations; iter++ {
		w := matVec4(n, v)
		for i := range w {
			w[i] -= shift * v[i]
		}
		next, ok := vecNormalize4(w)
		if !ok {
			return Quaternion{}, newDegenerateError("power method iterate collapsed to zero")
		}

		// Tie-break: pick the sign of `next` closer to the previous
		// iterate so the convergence delta reflects true motion, not a
		// sign flip of the same eigenvector.
		if vecNorm4(vecSub4(next, v)) >= vecNorm4(vecAdd4(next, v)) {
			next = [4]float64{-next[0], -next[1], -next[2], -next[3]}
		}

		delta := vecNorm4(vecSub4(next, v))
		v = next
		if delta < powerMethodTolerance {
			q := Quaternion{X: v[1], Y: v[2], Z: v[3], W: v[0]}.Normalized()
			return q.Canonical(), nil
		}
	}
	return Quaternion{}, newDegenerateError("power method did not converge within 200 iterations")
}
