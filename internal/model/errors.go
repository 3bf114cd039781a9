package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyUnavailable marks a required external collaborator that could not answer
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrNotFraudConfirmed is returned when indexing a claim that was never confirmed
	ErrNotFraudConfirmed = errors.New("claim is not fraud-confirmed")

	// ErrAlreadyIndexed is returned by the local index for a claim it already holds
	ErrAlreadyIndexed = errors.New("claim already indexed")

	// ErrClaimNotFound is returned by stores for an unknown claim id
	ErrClaimNotFound = errors.New("claim not found")

	// ErrInvalidClaim is returned when a claim cannot be stored at all
	ErrInvalidClaim = errors.New("invalid claim")
)

// Dependency names used in DependencyError
const (
	DependencyClassifier     = "classifier"
	DependencySemanticMemory = "semantic_memory"
	DependencyNarrative      = "narrative_generator"
)

// DependencyError reports that an external collaborator failed or timed out
type DependencyError struct {
	Dependency string
	Err        error
}

// NewDependencyError wraps err as unavailability of the named dependency
func NewDependencyError(dependency string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Err: err}
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Dependency)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

// Unwrap exposes the cause
func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrDependencyUnavailable
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}
