package rl

import (
	"errors"
	"fmt"
)

// Domain errors for the learning core.
var (
	// ErrShapeMismatch indicates a pushed frame or transition does not match
	// the declared schema.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyBuffer indicates a sample was requested from an empty buffer.
	ErrEmptyBuffer = errors.New("replay buffer is empty")

	// ErrInvalidBatchSize indicates a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrEmptyTrajectory indicates a policy-gradient update without a
	// finished episode.
	ErrEmptyTrajectory = errors.New("trajectory has no finished episode")

	// ErrInvalidConfig indicates an invalid or incomplete configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedDevice indicates a compute device this build cannot use.
	ErrUnsupportedDevice = errors.New("unsupported device")

	// ErrUnknownAlgorithm indicates an unrecognised algorithm name.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrUnknownEnvironment indicates an unregistered environment name.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrCheckpointCorrupt indicates a checkpoint failed verification or does
	// not fit the network it is loaded into.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt or incompatible")

	// ErrCheckpointNotFound indicates no checkpoint matched the query.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the run store has been closed.
	ErrStoreClosed = errors.New("run store is closed")
)

// UnknownAlgorithmError is returned for an unrecognised algorithm name.
type UnknownAlgorithmError struct {
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("unknown algorithm: %q", e.Name)
}

func (e *UnknownAlgorithmError) Unwrap() error {
	return ErrUnknownAlgorithm
}

// ShapeError builds an ErrShapeMismatch with the offending sizes.
func ShapeError(what string, want, got int) error {
	return fmt.Errorf("%w: %s has %d elements, want %d", ErrShapeMismatch, what, got, want)
}
