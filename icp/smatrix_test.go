package icp

import (
	"context"
	"math"
	"testing"
)

func TestAccumulateSMatrix_SingleCorrespondence(t *testing.T) {
	dev := newDevice()
	f := cloudFromGeom([][3]float32{{2, 0, 0}})
	m := cloudFromGeom([][3]float32{{0, 3, 0}})
	corr := []Correspondence{{ID: 0}}
	dF := [][4]float64{{2, 0, 0, 0}}
	dM := [][4]float64{{0, 3, 0, 0}}
	w := []float64{1}

	s, err := AccumulateSMatrix(context.Background(), dev, f, m, corr, dF, dM, w, Unweighted)
	if err != nil {
		t.Fatalf("AccumulateSMatrix: %v", err)
	}
	if math.Abs(s.S[0][1]-6.0) > 1e-9 {
		t.Errorf("S[0][1] = %g, want 6 (2*3)", s.S[0][1])
	}
	wantScNum := 2.0*0 + 0*3 + 0*0
	if math.Abs(s.ScNum-wantScNum) > 1e-9 {
		t.Errorf("ScNum = %g, want %g", s.ScNum, wantScNum)
	}
	wantScDen := 0.0*0 + 3.0*3 + 0*0
	if math.Abs(s.ScDen-wantScDen) > 1e-9 {
		t.Errorf("ScDen = %g, want %g", s.ScDen, wantScDen)
	}
}

func TestSMatrix_NearZero(t *testing.T) {
	var s SMatrix
	if !s.nearZero(1e-12) {
		t.Error("zero S-matrix should report nearZero")
	}
	s.S[0][0] = 1.0
	if s.nearZero(1e-12) {
		t.Error("non-zero S-matrix should not report nearZero")
	}
}

func TestAccumulateSMatrix_EmptyInput(t *testing.T) {
	dev := newDevice()
	f := cloudFromGeom(nil)
	m := cloudFromGeom(nil)
	_, err := AccumulateSMatrix(context.Background(), dev, f, m, nil, nil, nil, nil, Unweighted)
	if err == nil {
		t.Fatal("expected error for empty correspondences")
	}
}
