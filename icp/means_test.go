package icp

import (
	"context"
	"math"
	"testing"
)

func cloudFromGeom(points [][3]float32) Cloud {
	c := MakeCloud(len(points))
	for i, p := range points {
		c.Set(i, Point8{p[0], p[1], p[2], 1, 0, 0, 0, 1})
	}
	return c
}

func TestMeans_Regular(t *testing.T) {
	dev := newDevice()
	f := cloudFromGeom([][3]float32{{0, 0, 0}, {2, 0, 0}, {4, 0, 0}, {6, 0, 0}})
	m := cloudFromGeom([][3]float32{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}})
	corr := []Correspondence{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}}

	means, err := Means(context.Background(), dev, f, m, corr, nil, Unweighted, 0)
	if err != nil {
		t.Fatalf("Means: %v", err)
	}
	if math.Abs(means.F[0]-3.0) > 1e-9 {
		t.Errorf("muF.x = %g, want 3", means.F[0])
	}
	if math.Abs(means.M[0]-1.0) > 1e-9 || math.Abs(means.M[1]-1.0) > 1e-9 {
		t.Errorf("muM = %v, want (1,1,1)", means.M)
	}
	if means.F[3] != 0 || means.M[3] != 0 {
		t.Errorf("fourth lane should be zero, got F[3]=%g M[3]=%g", means.F[3], means.M[3])
	}
}

func TestMeans_Weighted(t *testing.T) {
	dev := newDevice()
	f := cloudFromGeom([][3]float32{{0, 0, 0}, {10, 0, 0}})
	m := cloudFromGeom([][3]float32{{0, 0, 0}, {0, 0, 0}})
	corr := []Correspondence{{ID: 0}, {ID: 1}}
	w := []float64{3, 1} // weight heavily toward f[0]=0

	means, err := Means(context.Background(), dev, f, m, corr, w, DistanceWeighted, 4)
	if err != nil {
		t.Fatalf("Means: %v", err)
	}
	want := (3*0.0 + 1*10.0) / 4.0
	if math.Abs(means.F[0]-want) > 1e-9 {
		t.Errorf("weighted muF.x = %g, want %g", means.F[0], want)
	}
}

func TestDeviations_ExactDifference(t *testing.T) {
	dev := newDevice()
	f := cloudFromGeom([][3]float32{{1, 2, 3}, {4, 5, 6}})
	m := cloudFromGeom([][3]float32{{0, 0, 0}, {1, 1, 1}})
	corr := []Correspondence{{ID: 0}, {ID: 1}}
	means := MeanPair{F: [4]float64{1, 1, 1, 0}, M: [4]float64{0.5, 0.5, 0.5, 0}}

	dF, dM, err := Deviations(context.Background(), dev, f, m, corr, means)
	if err != nil {
		t.Fatalf("Deviations: %v", err)
	}
	wantDF0 := [4]float64{0, 1, 2, 0}
	if dF[0] != wantDF0 {
		t.Errorf("dF[0] = %v, want %v", dF[0], wantDF0)
	}
	wantDM1 := [4]float64{0.5, 0.5, 0.5, 0}
	if dM[1] != wantDM1 {
		t.Errorf("dM[1] = %v, want %v", dM[1], wantDM1)
	}
}
