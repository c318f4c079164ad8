package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a missing or malformed input field. Nothing was changed.
	ErrValidation = errors.New("invalid input")

	// ErrResolution indicates the remote profile lookup failed. Nothing was changed.
	ErrResolution = errors.New("profile lookup failed")

	// ErrApplier indicates the git configuration read/write/reset failed.
	// Registry state changed before the call is kept.
	ErrApplier = errors.New("git config failed")

	// ErrPersistence indicates the store write failed and the saved state
	// may differ from memory.
	ErrPersistence = errors.New("saving identities failed")

	// ErrNotFound indicates no identity has the requested id.
	ErrNotFound = errors.New("identity not found")

	// ErrNotInitialized indicates an operation ran before Init.
	ErrNotInitialized = errors.New("registry not initialized")
)

// ValidationError names the first offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func notFound(id int) error {
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func applierError(err error) error {
	return fmt.Errorf("%w: %w", ErrApplier, err)
}
