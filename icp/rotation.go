package icp

// ScaleAndTranslation implements the scale/translation recovery:
// s = Sc_num / (Sc_den + c), t = muF - s*R*muM, shared by both the SVD and
// Power Method rotation variants once R (or q) is known.
func ScaleAndTranslation(s SMatrix, means MeanPair, rotate func(Vec3) Vec3, damping float64) (scale float64, t Vec3) {
	scale = s.ScNum / (s.ScDen + damping)
	if scale <= 0 {
		scale = 1e-9 // reported scale must be strictly positive
	}

	muM := Vec3{X: means.M[0], Y: means.M[1], Z: means.M[2]}
	muF := Vec3{X: means.F[0], Y: means.F[1], Z: means.F[2]}

	rotated := rotate(muM)
	t = Vec3{
		X: muF.X - scale*rotated.X,
		Y: muF.Y - scale*rotated.Y,
		Z: muF.Z - scale*rotated.Z,
	}
	return scale, t
}

// RotateVec3 applies a 3x3 rotation matrix to v.
func RotateVec3(r [3][3]float64, v Vec3) Vec3 {
	return Vec3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Rotate applies q's rotation to v.
func (q Quaternion) Rotate(v Vec3) Vec3 {
	r := q.Matrix()
	return RotateVec3(r, v)
}

// ExtractIncrementalTransform runs the configured rotation-extraction
// variant and recovers (q|R, t, s) as a single incremental
// Transform record, ready to compose into the controller's running global
// transform. On a Degenerate S-matrix it returns the identity transform and
// the DegenerateError so the caller can implement non-fatal degenerate
// handling.
func ExtractIncrementalTransform(cfg Config, s SMatrix, means MeanPair) (Transform, error) {
	if s.nearZero(1e-12) {
		return IdentityTransform(), newDegenerateError("S-matrix is numerically zero")
	}

	switch cfg.Rotation {
	case RotationSVD:
		r, err := ExtractRotationSVD(s)
		if err != nil {
			return IdentityTransform(), err
		}
		q := QuaternionFromMatrix(r)
		scale, t := ScaleAndTranslation(s, means, func(v Vec3) Vec3 { return RotateVec3(r, v) }, cfg.ScaleDamping)
		return Transform{Q: q, T: t, S: scale}, nil

	case RotationPowerMethod:
		q, err := ExtractRotationPowerMethod(s)
		if err != nil {
			return IdentityTransform(), err
		}
		scale, t := ScaleAndTranslation(s, means, q.Rotate, cfg.ScaleDamping)
		return Transform{Q: q, T: t, S: scale}, nil

	default:
		return IdentityTransform(), newInvalidShape("unknown rotation method %d", cfg.Rotation)
	}
}
