package icp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy. ComputeFailed and Degenerate
// additionally carry a stage tag / rank diagnosis and are returned as
// *StageError / *DegenerateError so callers can errors.As() for detail
// while errors.Is() still matches the sentinel.
var (
	ErrInvalidShape  = errors.New("icp: invalid shape")
	ErrEmptyInput    = errors.New("icp: empty input")
	ErrComputeFailed = errors.New("icp: compute failed")
	ErrDegenerate    = errors.New("icp: degenerate S-matrix")
	ErrCancelled     = errors.New("icp: cancelled")
)

// Stage identifies the pipeline stage a ComputeFailed error originated from.
type Stage string

const (
	StageReductions Stage = "reductions"
	StageSampling   Stage = "sampling"
	StageRBC        Stage = "rbc"
	StageWeights    Stage = "weights"
	StageMeans      Stage = "means"
	StageDeviations Stage = "deviations"
	StageSMatrix    Stage = "smatrix"
	StageRotation   Stage = "rotation"
	StageTransform  Stage = "transform"
)

// StageError reports a fatal failure surfaced by a specific pipeline stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("icp: stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return ErrComputeFailed }

func newStageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// DegenerateError reports that the S-matrix was rank-deficient or that the
// Power Method failed to converge within its iteration cap. It is non-fatal:
// callers are expected to fall back to an identity delta.
type DegenerateError struct {
	Reason string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("icp: degenerate (%s)", e.Reason)
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerate }

func newDegenerateError(reason string) error {
	return &DegenerateError{Reason: reason}
}

// newInvalidShape wraps ErrInvalidShape with a formatted detail message.
func newInvalidShape(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidShape}, args...)...)
}

// newEmptyInput wraps ErrEmptyInput with a formatted detail message.
func newEmptyInput(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrEmptyInput}, args...)...)
}
