package icp

import (
	"context"
	"errors"
)

// State is the controller's outer-loop state machine:
// Idle -> Prepared -> Iterating -> Converged | Exceeded.
type State int

const (
	StateIdle State = iota
	StatePrepared
	StateIterating
	StateConverged
	StateExceeded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrepared:
		return "prepared"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateExceeded:
		return "exceeded"
	default:
		return "unknown"
	}
}

// Status is the terminal outcome of Register.
type Status int

const (
	StatusConverged Status = iota
	StatusExceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusExceeded:
		return "exceeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Controller is the host-side registration instance: New / Init / Step /
// Register / TransformedM. One Controller registers exactly one
// frame pair (F, M). Init builds F's landmarks, representatives and RBC
// index once; every Step allocates fresh buffers for M's landmarks,
// correspondences, weights and deviations rather than reusing them.
type Controller struct {
	cfg   Config
	dev   *device
	state State

	f         Cloud // raw fixed cloud
	m         Cloud // current moving cloud, transformed in place each Step
	landmarksF Cloud
	repsF      Cloud
	corrIdx    *correspondenceIndex

	global     Transform
	iterations int
}

// New validates cfg and returns an Icp controller ready for Init.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg, dev: newDevice(), state: StateIdle}, nil
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.cfg }

// State returns the controller's current state-machine state.
func (c *Controller) State() State { return c.state }

// Iterations returns the number of outer iterations run so far.
func (c *Controller) Iterations() int { return c.iterations }

// Init registers the fixed and moving clouds: computes L_F, R_F, and builds
// the RBC index over them, all done once per frame pair. M is cloned so
// the caller's buffer is never mutated.
func (c *Controller) Init(ctx context.Context, f, m Cloud) error {
	if f.Len()%c.cfg.M != 0 {
		return newInvalidShape("|F|=%d is not a multiple of m=%d", f.Len(), c.cfg.M)
	}
	if m.Len()%c.cfg.M != 0 {
		return newInvalidShape("|M|=%d is not a multiple of m=%d", m.Len(), c.cfg.M)
	}

	landmarksF, err := SampleLandmarks(ctx, c.dev, f, c.cfg.M)
	if err != nil {
		return err
	}
	repsF, err := SampleRepresentatives(ctx, c.dev, landmarksF, c.cfg.NR)
	if err != nil {
		return err
	}
	idx, err := buildCorrespondenceIndex(repsF, landmarksF, c.cfg.ColourWeight)
	if err != nil {
		return err
	}

	c.f = f
	c.m = m.Clone()
	c.landmarksF = landmarksF
	c.repsF = repsF
	c.corrIdx = idx
	c.global = IdentityTransform()
	c.iterations = 0
	c.state = StatePrepared
	return nil
}

// Step runs one outer iteration of the Iterating state: sample
// L_M, query the RBC, run the weighting/means/S-matrix/rotation chain,
// compose the incremental transform into the running global T, and
// transform M in place.
//
// A Degenerate S-matrix is non-fatal: Step returns the identity delta with
// degenerate=true and leaves the controller able to continue; the next
// iteration often recovers once clouds are closer.
// ComputeFailed errors are fatal for this Step call. A failure before the
// transform stage leaves the controller in its pre-Step state; a failure
// inside the transform stage can leave M partly transformed. Either way the
// instance can be reinitialised with Init.
func (c *Controller) Step(ctx context.Context) (delta Transform, converged bool, degenerate bool, err error) {
	if c.state != StatePrepared && c.state != StateIterating {
		return Transform{}, false, false, newInvalidShape("step called in state %s", c.state)
	}

	landmarksM, err := SampleLandmarks(ctx, c.dev, c.m, c.cfg.M)
	if err != nil {
		return Transform{}, false, false, err
	}

	corr, err := c.corrIdx.query(ctx, landmarksM)
	if err != nil {
		return Transform{}, false, false, err
	}

	w, wSum, err := Weights(ctx, c.dev, corr, c.cfg.WeightEpsilon)
	if err != nil {
		return Transform{}, false, false, err
	}

	means, err := Means(ctx, c.dev, c.landmarksF, landmarksM, corr, w, c.cfg.Weighting, wSum)
	if err != nil {
		return Transform{}, false, false, err
	}

	dF, dM, err := Deviations(ctx, c.dev, c.landmarksF, landmarksM, corr, means)
	if err != nil {
		return Transform{}, false, false, err
	}

	s, err := AccumulateSMatrix(ctx, c.dev, c.landmarksF, landmarksM, corr, dF, dM, w, c.cfg.Weighting)
	if err != nil {
		return Transform{}, false, false, err
	}

	incremental, extractErr := ExtractIncrementalTransform(c.cfg, s, means)
	var degErr *DegenerateError
	switch {
	case errors.As(extractErr, &degErr):
		incremental = IdentityTransform()
		degenerate = true
	case extractErr != nil:
		return Transform{}, false, false, extractErr
	}

	if err := TransformCloud(ctx, c.dev, c.m, incremental, c.cfg.Transform); err != nil {
		return Transform{}, false, false, err
	}

	c.global = Compose(incremental, c.global)
	c.iterations++

	// A degenerate step leaves the global transform unchanged, which would
	// otherwise look identical to a converged identity delta; degenerate
	// iterations never count as convergence.
	converged = !degenerate &&
		incremental.Q.AngleDelta() < c.cfg.AngleThreshold &&
		incremental.T.Norm() < c.cfg.TranslationThreshold

	switch {
	case converged:
		c.state = StateConverged
	case c.iterations >= c.cfg.MaxIterations:
		c.state = StateExceeded
	default:
		c.state = StateIterating
	}

	return incremental, converged, degenerate, nil
}

// Register runs the full outer loop until convergence, the iteration cap,
// a fatal stage error, or ctx cancellation.
func (c *Controller) Register(ctx context.Context) (Transform, int, Status, error) {
	if c.state != StatePrepared {
		return c.global, c.iterations, StatusFailed, newInvalidShape("register called in state %s, expected prepared", c.state)
	}

	for {
		select {
		case <-ctx.Done():
			return c.global, c.iterations, StatusCancelled, ErrCancelled
		default:
		}

		_, converged, _, err := c.Step(ctx)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				return c.global, c.iterations, StatusCancelled, err
			}
			return c.global, c.iterations, StatusFailed, err
		}
		if converged {
			return c.global, c.iterations, StatusConverged, nil
		}
		if c.iterations >= c.cfg.MaxIterations {
			return c.global, c.iterations, StatusExceeded, nil
		}
	}
}

// TransformedM returns the current state of M after all transforms applied
// so far.
func (c *Controller) TransformedM() Cloud { return c.m }

// GlobalTransform returns the accumulated transform T computed so far.
func (c *Controller) GlobalTransform() Transform { return c.global }
