package icp

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// device simulates a GPU command-queue/kernel-launch boundary: a fixed-size
// worker pool that the reduction/map stages submit blocks of work to,
// awaited before the next stage is submitted. Acquiring and releasing the
// pool is scoped to a single block's duration.
type device struct {
	sem       *semaphore.Weighted
	blockSize int
}

// defaultBlockSize is the fixed block width used by every tree-reduction in
// this package, matching the requirement that "tree fan-in is a
// compile-time or init-time constant".
const defaultBlockSize = 1024

// newDevice builds a device bound to runtime.GOMAXPROCS concurrent kernel
// blocks.
func newDevice() *device {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	return &device{sem: semaphore.NewWeighted(int64(workers)), blockSize: defaultBlockSize}
}

// acquire blocks until a kernel-launch slot is free and returns a release
// function; callers must defer the release on every exit path, including
// errors.
func (d *device) acquire(ctx context.Context) (func(), error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	return func() { d.sem.Release(1) }, nil
}

// blockCount returns how many fixed-size blocks n items split into.
func (d *device) blockCount(n int) int {
	if n == 0 {
		return 0
	}
	return (n + d.blockSize - 1) / d.blockSize
}
