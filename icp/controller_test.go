package icp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeScatteredCloud lays out points on a 4x4 grid in x,y, stacking a new
// grid along z every 16 points (a 4x4x2 lattice for n=32), then applies
// shift. With m=8 the controller samples every fourth point, which keeps
// only the x=0 column, so the registered landmarks are coplanar; the default
// Power Method rotation does not report that as degenerate. The degenerate
// tests use a cloud of one repeated point instead (see degenerateClouds).
func makeScatteredCloud(n int, shift Vec3) Cloud {
	c := MakeCloud(n)
	for i := 0; i < n; i++ {
		x := float32(i%4) * 100
		y := float32((i/4)%4) * 100
		z := float32(i/16)*100 + 1000
		c.Set(i, Point8{
			x + float32(shift.X),
			y + float32(shift.Y),
			z + float32(shift.Z),
			1, 0, 0, 0, 1,
		})
	}
	return c
}

func rotateCloud(c Cloud, q Quaternion) Cloud {
	out := MakeCloud(c.Len())
	for i := 0; i < c.Len(); i++ {
		p := c.At(i)
		geom := Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		rotated := q.Rotate(geom)
		out.Set(i, Point8{
			float32(rotated.X), float32(rotated.Y), float32(rotated.Z), 1,
			p[4], p[5], p[6], p[7],
		})
	}
	return out
}

func axisAngleQuaternion(axis Vec3, angleRad float64) Quaternion {
	n := axis.Norm()
	axis = Vec3{X: axis.X / n, Y: axis.Y / n, Z: axis.Z / n}
	s := math.Sin(angleRad / 2)
	return Quaternion{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: math.Cos(angleRad / 2)}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.M = 8
	cfg.NR = 2
	cfg.MaxIterations = 5
	return cfg
}

func TestController_Identity(t *testing.T) {
	cfg := testConfig()
	ctrl, err := New(cfg)
	require.NoError(t, err)

	f := makeScatteredCloud(32, Vec3{})
	m := f.Clone()

	require.NoError(t, ctrl.Init(context.Background(), f, m))

	transform, iterations, status, err := ctrl.Register(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusConverged, status)
	require.LessOrEqual(t, iterations, 3)
	require.InDelta(t, 1.0, transform.S, 1e-2)
	require.InDelta(t, 0.0, transform.T.Norm(), 1e-2)
	require.InDelta(t, 0.0, transform.Q.AngleDelta(), 1e-2)
}

func TestController_PureTranslation(t *testing.T) {
	cfg := testConfig()
	ctrl, err := New(cfg)
	require.NoError(t, err)

	shift := Vec3{X: 10, Y: -5, Z: 2}
	f := makeScatteredCloud(32, Vec3{})
	m := makeScatteredCloud(32, shift)

	require.NoError(t, ctrl.Init(context.Background(), f, m))

	transform, _, status, err := ctrl.Register(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusConverged, status)
	require.InDelta(t, -shift.X, transform.T.X, 1e-1)
	require.InDelta(t, -shift.Y, transform.T.Y, 1e-1)
	require.InDelta(t, -shift.Z, transform.T.Z, 1e-1)
	require.InDelta(t, 0.0, transform.Q.AngleDelta(), 1e-2)
}

func TestController_PureRotation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIterations = 10
	ctrl, err := New(cfg)
	require.NoError(t, err)

	axis := Vec3{X: 1, Y: 1, Z: 1}
	angle := 15.0 * math.Pi / 180.0
	q := axisAngleQuaternion(axis, angle)

	f := makeScatteredCloud(32, Vec3{})
	m := rotateCloud(f, q)

	require.NoError(t, ctrl.Init(context.Background(), f, m))

	transform, iterations, status, err := ctrl.Register(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusConverged, status)
	require.LessOrEqual(t, iterations, 10)

	// The recovered global rotation should undo q: composing them should be
	// close to identity.
	recombined := transform.Q.Mul(q).Normalized().Canonical()
	identity := IdentityQuaternion().Canonical()
	require.InDelta(t, identity.W, recombined.W, 1e-2)
}

func degenerateClouds() (Cloud, Cloud) {
	f := makeScatteredCloud(32, Vec3{})
	m := MakeCloud(32)
	repeated := Point8{500, 0, 0, 1, 0, 0, 0, 1}
	for i := 0; i < 32; i++ {
		m.Set(i, repeated)
	}
	return f, m
}

func TestController_Degenerate_SingleStep(t *testing.T) {
	cfg := testConfig()
	ctrl, err := New(cfg)
	require.NoError(t, err)

	f, m := degenerateClouds()
	require.NoError(t, ctrl.Init(context.Background(), f, m))

	_, _, degenerate, err := ctrl.Step(context.Background())
	require.NoError(t, err)
	require.True(t, degenerate)
}

func TestController_Degenerate_RegisterExceeds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIterations = 3
	ctrl, err := New(cfg)
	require.NoError(t, err)

	f, m := degenerateClouds()
	require.NoError(t, ctrl.Init(context.Background(), f, m))

	_, iterations, status, err := ctrl.Register(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusExceeded, status)
	require.Equal(t, cfg.MaxIterations, iterations)
}

func TestController_Cancellation(t *testing.T) {
	cfg := testConfig()
	ctrl, err := New(cfg)
	require.NoError(t, err)

	f := makeScatteredCloud(32, Vec3{})
	m := f.Clone()
	require.NoError(t, ctrl.Init(context.Background(), f, m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, status, err := ctrl.Register(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	require.Equal(t, StatusCancelled, status)
}

func TestController_InitRejectsShapeMismatch(t *testing.T) {
	cfg := testConfig()
	ctrl, err := New(cfg)
	require.NoError(t, err)

	f := makeScatteredCloud(10, Vec3{}) // not a multiple of M=8
	m := makeScatteredCloud(10, Vec3{})
	err = ctrl.Init(context.Background(), f, m)
	require.ErrorIs(t, err, ErrInvalidShape)
}
