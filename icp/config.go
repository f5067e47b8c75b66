package icp

// Weighting selects whether means and S-matrix accumulation weight each
// correspondence by wi = 1/(di^2+ε), computed from its squared distance.
type Weighting int

const (
	Unweighted Weighting = iota
	DistanceWeighted
)

// RotationMethod selects the rotation-extraction strategy.
type RotationMethod int

const (
	RotationSVD RotationMethod = iota
	RotationPowerMethod
)

// TransformMethod selects how the recovered motion is applied to M.
// Both produce identical output; MATRIX is provided for collaborators that
// prefer a single pre-multiplied 4x4.
type TransformMethod int

const (
	TransformQuaternion TransformMethod = iota
	TransformMatrix
)

// Config is the enumerated configuration table driving one registration run.
type Config struct {
	// M is the landmark count (power of two).
	M int
	// NR is the representative count (power of two, <= M).
	NR int
	// ColourWeight (a) mixes colour into the 4-D photogeometric metric:
	// c = a*(r+g+b)/3, with r,g,b in [0,1] and a in millimetres.
	ColourWeight float64
	// ScaleDamping (c) prevents scale blow-up when M is near the origin.
	ScaleDamping float64
	// WeightEpsilon (ε) guarantees wi = 1/(di^2+ε) never divides by zero.
	WeightEpsilon float64

	Weighting Weighting
	Rotation  RotationMethod
	Transform TransformMethod

	MaxIterations        int
	AngleThreshold       float64 // radians
	TranslationThreshold float64 // millimetres
}

// DefaultConfig returns the standard tuning for real-time registration.
func DefaultConfig() Config {
	return Config{
		M:                    16384,
		NR:                   256,
		ColourWeight:         1e-6,
		ScaleDamping:         1e-6,
		WeightEpsilon:        1,
		Weighting:            DistanceWeighted,
		Rotation:             RotationPowerMethod,
		Transform:            TransformQuaternion,
		MaxIterations:        30,
		AngleThreshold:       1e-3,
		TranslationThreshold: 1e-2,
	}
}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate checks the config's invariants: m and nr are powers of two,
// nr <= m, and the numeric knobs are physically sane.
func (c Config) Validate() error {
	if !isPowerOfTwo(c.M) {
		return newInvalidShape("m must be a power of two, got %d", c.M)
	}
	if !isPowerOfTwo(c.NR) {
		return newInvalidShape("nr must be a power of two, got %d", c.NR)
	}
	if c.NR > c.M {
		return newInvalidShape("nr (%d) must be <= m (%d)", c.NR, c.M)
	}
	if c.WeightEpsilon <= 0 {
		return newInvalidShape("weight epsilon must be > 0, got %g", c.WeightEpsilon)
	}
	if c.MaxIterations <= 0 {
		return newInvalidShape("max_iterations must be > 0, got %d", c.MaxIterations)
	}
	return nil
}
