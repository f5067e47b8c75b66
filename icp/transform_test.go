package icp

import (
	"context"
	"math"
	"testing"
)

func TestTransform_ApplyThenInverseIsIdentity(t *testing.T) {
	q := Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 1.0}.Normalized()
	tr := Transform{Q: q, T: Vec3{X: 5, Y: -3, Z: 2}, S: 1.5}

	p := Point8{10, 20, 30, 1, 0.2, 0.4, 0.6, 1}
	moved := tr.Apply(p)
	back := tr.Inverse().Apply(moved)

	const tol = 1e-6
	if math.Abs(float64(back[0]-p[0])) > tol || math.Abs(float64(back[1]-p[1])) > tol || math.Abs(float64(back[2]-p[2])) > tol {
		t.Errorf("inverse round trip: got %v, want %v", back.Geom(), p.Geom())
	}
	if back.Colour() != p.Colour() {
		t.Errorf("colour should pass through unchanged, got %v want %v", back.Colour(), p.Colour())
	}
}

func TestTransform_ComposeOrderMatches(t *testing.T) {
	inner := Transform{Q: IdentityQuaternion(), T: Vec3{X: 1, Y: 0, Z: 0}, S: 1}
	outer := Transform{Q: IdentityQuaternion(), T: Vec3{X: 0, Y: 2, Z: 0}, S: 2}

	composed := Compose(outer, inner)

	p := Point8{0, 0, 0, 1, 0, 0, 0, 1}
	viaCompose := composed.Apply(p)
	viaSequential := outer.Apply(inner.Apply(p))

	if viaCompose != viaSequential {
		t.Errorf("Compose(outer,inner).Apply != outer.Apply(inner.Apply): %v vs %v", viaCompose, viaSequential)
	}
}

func TestTransform_MatrixVariantMatchesQuaternionVariant(t *testing.T) {
	dev := newDevice()
	q := Quaternion{X: 0.05, Y: -0.1, Z: 0.15, W: 1}.Normalized()
	tr := Transform{Q: q, T: Vec3{X: 1, Y: -2, Z: 3}, S: 1.02}

	c1 := cloudFromGeom([][3]float32{{1, 2, 3}, {-4, 5, -6}, {0, 0, 0}})
	c2 := c1.Clone()

	if err := TransformCloud(context.Background(), dev, c1, tr, TransformQuaternion); err != nil {
		t.Fatalf("TransformCloud quaternion: %v", err)
	}
	if err := TransformCloud(context.Background(), dev, c2, tr, TransformMatrix); err != nil {
		t.Fatalf("TransformCloud matrix: %v", err)
	}

	for i := 0; i < c1.Len(); i++ {
		p1, p2 := c1.At(i), c2.At(i)
		for lane := 0; lane < 3; lane++ {
			if math.Abs(float64(p1[lane]-p2[lane])) > 1e-4 {
				t.Errorf("point %d lane %d: quaternion=%g matrix=%g", i, lane, p1[lane], p2[lane])
			}
		}
	}
}

func TestQuaternionMul_RotationOrder(t *testing.T) {
	qx := Quaternion{X: math.Sin(math.Pi / 4), Y: 0, Z: 0, W: math.Cos(math.Pi / 4)}
	qy := Quaternion{X: 0, Y: math.Sin(math.Pi / 4), Z: 0, W: math.Cos(math.Pi / 4)}

	combined := qx.Mul(qy)
	v := Vec3{X: 0, Y: 0, Z: 1}

	got := combined.Rotate(v)
	want := qx.Rotate(qy.Rotate(v))

	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
		t.Errorf("(a*b).Rotate(v) = %+v, want a.Rotate(b.Rotate(v)) = %+v", got, want)
	}
}
