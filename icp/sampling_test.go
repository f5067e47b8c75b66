package icp

import (
	"context"
	"errors"
	"testing"
)

func makeSequentialCloud(n int) Cloud {
	c := MakeCloud(n)
	for i := 0; i < n; i++ {
		c.Set(i, Point8{float32(i), float32(i), float32(i), 1, 0, 0, 0, 1})
	}
	return c
}

func TestSample_StrideIsOrderPreserving(t *testing.T) {
	dev := newDevice()
	src := makeSequentialCloud(64)

	dst, err := Sample(context.Background(), dev, src, 8)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	stride := 64 / 8
	for k := 0; k < 8; k++ {
		got := dst.At(k)
		want := src.At(k * stride)
		if got != want {
			t.Errorf("dst[%d] = %v, want %v (src[%d])", k, got, want, k*stride)
		}
	}
}

func TestSample_InvalidShape(t *testing.T) {
	dev := newDevice()
	src := makeSequentialCloud(10)

	_, err := Sample(context.Background(), dev, src, 3)
	if !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}

func TestSample_ZeroCount(t *testing.T) {
	dev := newDevice()
	src := makeSequentialCloud(10)

	_, err := Sample(context.Background(), dev, src, 0)
	if !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}

func TestSampleLandmarksThenRepresentatives(t *testing.T) {
	dev := newDevice()
	raw := makeSequentialCloud(1024)

	landmarks, err := SampleLandmarks(context.Background(), dev, raw, 64)
	if err != nil {
		t.Fatalf("SampleLandmarks: %v", err)
	}
	if landmarks.Len() != 64 {
		t.Fatalf("got %d landmarks, want 64", landmarks.Len())
	}

	reps, err := SampleRepresentatives(context.Background(), dev, landmarks, 8)
	if err != nil {
		t.Fatalf("SampleRepresentatives: %v", err)
	}
	if reps.Len() != 8 {
		t.Fatalf("got %d representatives, want 8", reps.Len())
	}
	// stride over landmarks is 64/8=8, so reps[1] == landmarks[8] == raw[8*16]
	if reps.At(1) != raw.At(8*16) {
		t.Errorf("representative stride mismatch: got %v want %v", reps.At(1), raw.At(8*16))
	}
}
