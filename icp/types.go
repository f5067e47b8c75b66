package icp

import "math"

// pointStride is the width of a single 8-D photogeometric point:
// (x, y, z, 1, r, g, b, 1). Geometry is in millimetres, colour in [0,1].
const pointStride = 8

// Point8 is a view of a single 8-D point inside a flat Cloud buffer.
// The fourth geometric lane and the eighth colour lane are reserved
// (homogeneous padding / future colour channel) and are carried through
// transforms unchanged.
type Point8 [pointStride]float32

// Geom returns the 4-D geometric lane (x, y, z, w).
func (p Point8) Geom() [4]float32 { return [4]float32{p[0], p[1], p[2], p[3]} }

// Colour returns the 4-D colour lane (r, g, b, reserved).
func (p Point8) Colour() [4]float32 { return [4]float32{p[4], p[5], p[6], p[7]} }

// Cloud is an ordered sequence of 8-D points stored flat, row-major, matching
// the persisted wire layout. Index k's point occupies floats [k*8, k*8+8).
type Cloud struct {
	data []float32
}

// NewCloud wraps a flat []float32 of length n*8 as a Cloud. It does not copy.
func NewCloud(data []float32) Cloud {
	return Cloud{data: data}
}

// MakeCloud allocates a zeroed Cloud holding n points.
func MakeCloud(n int) Cloud {
	return Cloud{data: make([]float32, n*pointStride)}
}

// Len returns the number of points held.
func (c Cloud) Len() int { return len(c.data) / pointStride }

// At returns the point at index i.
func (c Cloud) At(i int) Point8 {
	var p Point8
	copy(p[:], c.data[i*pointStride:i*pointStride+pointStride])
	return p
}

// Set overwrites the point at index i.
func (c Cloud) Set(i int, p Point8) {
	copy(c.data[i*pointStride:i*pointStride+pointStride], p[:])
}

// Raw returns the underlying flat buffer. Callers must not resize it.
func (c Cloud) Raw() []float32 { return c.data }

// Clone returns a deep copy of the cloud.
func (c Cloud) Clone() Cloud {
	out := make([]float32, len(c.data))
	copy(out, c.data)
	return Cloud{data: out}
}

// Vec3 is a 3-D vector used for translation and transformed geometry.
type Vec3 struct{ X, Y, Z float64 }

// Quaternion is a unit 4-vector (X, Y, Z, W) representing a 3-D rotation,
// scalar part last to match the common graphics convention.
type Quaternion struct{ X, Y, Z, W float64 }

// IdentityQuaternion is the no-rotation quaternion.
func IdentityQuaternion() Quaternion { return Quaternion{0, 0, 0, 1} }

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalized returns q scaled to unit length. Returns the identity
// quaternion if q is (numerically) the zero vector.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n < 1e-12 {
		return IdentityQuaternion()
	}
	return Quaternion{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Canonical flips the sign of q so its scalar part is non-negative, removing
// the double-cover ambiguity of unit quaternions for comparison/testing.
// When the scalar part is zero, the first non-zero vector component is made
// positive instead.
func (q Quaternion) Canonical() Quaternion {
	flip := q.W < 0
	if q.W == 0 {
		switch {
		case q.X != 0:
			flip = q.X < 0
		case q.Y != 0:
			flip = q.Y < 0
		default:
			flip = q.Z < 0
		}
	}
	if flip {
		return Quaternion{-q.X, -q.Y, -q.Z, -q.W}
	}
	return q
}

// Transform is the per-iteration and accumulated-global transform record:
// rotation q, translation t, uniform scale s, 8 floats total.
type Transform struct {
	Q Quaternion
	T Vec3
	S float64
}

// IdentityTransform is the zero-motion, unit-scale transform.
func IdentityTransform() Transform {
	return Transform{Q: IdentityQuaternion(), T: Vec3{}, S: 1}
}

// Matrix returns the 3x3 rotation matrix corresponding to q, built so that
// R is orthogonal with det(R) = +1 for any unit q.
func (q Quaternion) Matrix() [3][3]float64 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	x2, y2, z2 := x+x, y+y, z+z
	xx, yy, zz := x*x2, y*y2, z*z2
	xy, xz, yz := x*y2, x*z2, y*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	return [3][3]float64{
		{1 - (yy + zz), xy - wz, xz + wy},
		{xy + wz, 1 - (xx + zz), yz - wx},
		{xz - wy, yz + wx, 1 - (xx + yy)},
	}
}

// QuaternionFromMatrix recovers a unit quaternion from an orthogonal 3x3
// rotation matrix (Shepperd's method), used when consuming the SVD variant's
// R for the shared Transform representation.
func QuaternionFromMatrix(r [3][3]float64) Quaternion {
	trace := r[0][0] + r[1][1] + r[2][2]
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		return Quaternion{
			X: (r[2][1] - r[1][2]) * s,
			Y: (r[0][2] - r[2][0]) * s,
			Z: (r[1][0] - r[0][1]) * s,
			W: 0.25 / s,
		}.Normalized()
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := 2.0 * math.Sqrt(1.0+r[0][0]-r[1][1]-r[2][2])
		return Quaternion{
			X: 0.25 * s,
			Y: (r[0][1] + r[1][0]) / s,
			Z: (r[0][2] + r[2][0]) / s,
			W: (r[2][1] - r[1][2]) / s,
		}.Normalized()
	case r[1][1] > r[2][2]:
		s := 2.0 * math.Sqrt(1.0+r[1][1]-r[0][0]-r[2][2])
		return Quaternion{
			X: (r[0][1] + r[1][0]) / s,
			Y: 0.25 * s,
			Z: (r[1][2] + r[2][1]) / s,
			W: (r[0][2] - r[2][0]) / s,
		}.Normalized()
	default:
		s := 2.0 * math.Sqrt(1.0+r[2][2]-r[0][0]-r[1][1])
		return Quaternion{
			X: (r[0][2] + r[2][0]) / s,
			Y: (r[1][2] + r[2][1]) / s,
			Z: 0.25 * s,
			W: (r[1][0] - r[0][1]) / s,
		}.Normalized()
	}
}

// AngleDelta returns the rotation angle (radians, unsigned) represented by q.
func (q Quaternion) AngleDelta() float64 {
	w := q.Normalized().W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	return 2 * math.Acos(math.Abs(w))
}

// Norm returns ‖t‖.
func (t Vec3) Norm() float64 { return math.Sqrt(t.X*t.X + t.Y*t.Y + t.Z*t.Z) }

// Correspondence pairs a query landmark with its nearest fixed landmark,
// carrying the squared photogeometric distance.
type Correspondence struct {
	Dist float32 // squared distance
	ID   uint32  // index into F's landmarks
}

// SMatrix is the eleven-scalar cross-covariance accumulator:
// 3x3 cross-covariance plus two scale-recovery scalars.
type SMatrix struct {
	S      [3][3]float64
	ScNum  float64
	ScDen  float64
}

// MeanPair holds the weighted or unweighted geometric centroids of the
// paired fixed/moving landmark subsets. The fourth lane is
// always zero; colour is not averaged here.
type MeanPair struct {
	F, M [4]float64
}
