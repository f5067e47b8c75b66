package icp

import "context"

// Sample computes dst[k] = src[k*(N/K)] for 0<=k<K, a fully
// data-parallel stride subsample with no reduction. N must be an exact
// multiple of K (InvalidShape otherwise), giving deterministic,
// order-preserving sampling for landmarks and representatives.
func Sample(ctx context.Context, dev *device, src Cloud, k int) (Cloud, error) {
	n := src.Len()
	if k <= 0 {
		return Cloud{}, newInvalidShape("sample count must be > 0, got %d", k)
	}
	if n%k != 0 {
		return Cloud{}, newInvalidShape("src length %d is not a multiple of dst length %d", n, k)
	}
	stride := n / k
	dst := MakeCloud(k)
	err := dev.mapBlocks(ctx, k, StageSampling, func(i int) {
		dst.Set(i, src.At(i*stride))
	})
	if err != nil {
		return Cloud{}, err
	}
	return dst, nil
}

// SampleLandmarks draws the m landmarks L from a raw n-pixel cloud.
func SampleLandmarks(ctx context.Context, dev *device, raw Cloud, m int) (Cloud, error) {
	return Sample(ctx, dev, raw, m)
}

// SampleRepresentatives draws the nr representatives R from the landmarks L.
func SampleRepresentatives(ctx context.Context, dev *device, landmarks Cloud, nr int) (Cloud, error) {
	return Sample(ctx, dev, landmarks, nr)
}
