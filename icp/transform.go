package icp

import "context"

// Mul is the Hamilton product a*b, satisfying (a*b).Rotate(v) ==
// a.Rotate(b.Rotate(v)); b's rotation is applied first.
func (a Quaternion) Mul(b Quaternion) Quaternion {
	return Quaternion{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

// Compose returns the Transform equivalent to applying `inner` first and
// `outer` second, the accumulation rule the controller uses to fold each
// iteration's incremental Transform into the running global T.
func Compose(outer, inner Transform) Transform {
	scale := outer.S * inner.S
	q := outer.Q.Mul(inner.Q).Normalized()
	rotatedInnerT := outer.Q.Rotate(inner.T)
	t := Vec3{
		X: outer.S*rotatedInnerT.X + outer.T.X,
		Y: outer.S*rotatedInnerT.Y + outer.T.Y,
		Z: outer.S*rotatedInnerT.Z + outer.T.Z,
	}
	return Transform{Q: q, T: t, S: scale}
}

// Inverse returns the Transform that undoes t: Inverse(t).Apply(t.Apply(p)) == p.
func (t Transform) Inverse() Transform {
	qInv := Quaternion{X: -t.Q.X, Y: -t.Q.Y, Z: -t.Q.Z, W: t.Q.W}
	sInv := 1.0 / t.S
	negT := qInv.Rotate(Vec3{X: -t.T.X, Y: -t.T.Y, Z: -t.T.Z})
	return Transform{
		Q: qInv,
		S: sInv,
		T: Vec3{X: sInv * negT.X, Y: sInv * negT.Y, Z: sInv * negT.Z},
	}
}

// Apply implements the QUATERNION variant for a single point:
// p' = s*rotate(q,p)+t; colour passes through.
func (t Transform) Apply(p Point8) Point8 {
	geomIn := Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
	rotated := t.Q.Rotate(geomIn)
	out := p
	out[0] = float32(t.S*rotated.X + t.T.X)
	out[1] = float32(t.S*rotated.Y + t.T.Y)
	out[2] = float32(t.S*rotated.Z + t.T.Z)
	return out
}

// Matrix4 implements the MATRIX variant: a 4x4 homogeneous matrix
// with the upper-left 3x3 already pre-multiplied by s.
func (t Transform) Matrix4() [4][4]float64 {
	r := t.Q.Matrix()
	var m [4][4]float64
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			m[j][k] = t.S * r[j][k]
		}
	}
	m[0][3], m[1][3], m[2][3] = t.T.X, t.T.Y, t.T.Z
	m[3][3] = 1
	return m
}

// applyMatrix4 applies a pre-scaled 4x4 homogeneous matrix to a point,
// producing identical output to Apply for the same (s,R,t).
func applyMatrix4(m [4][4]float64, p Point8) Point8 {
	x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
	out := p
	out[0] = float32(m[0][0]*x + m[0][1]*y + m[0][2]*z + m[0][3])
	out[1] = float32(m[1][0]*x + m[1][1]*y + m[1][2]*z + m[1][3])
	out[2] = float32(m[2][0]*x + m[2][1]*y + m[2][2]*z + m[2][3])
	return out
}

// TransformCloud applies t (or, for TransformMatrix configs, t's
// pre-multiplied 4x4 form) to every point of c in place, fully
// data-parallel.
func TransformCloud(ctx context.Context, dev *device, c Cloud, t Transform, method TransformMethod) error {
	n := c.Len()
	if method == TransformMatrix {
		m := t.Matrix4()
		return dev.mapBlocks(ctx, n, StageTransform, func(i int) {
			c.Set(i, applyMatrix4(m, c.At(i)))
		})
	}
	return dev.mapBlocks(ctx, n, StageTransform, func(i int) {
		c.Set(i, t.Apply(c.At(i)))
	})
}
