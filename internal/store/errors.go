package store

import "errors"

// Sentinel errors returned by every backend. Wrap them with fmt.Errorf("...: %w").
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write lost a race or would violate a
	// uniqueness rule (an existing version, an existing object id).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned when a record violates a storage constraint.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when the backing store cannot be reached
	// or failed underneath the backend.
	ErrUnavailable = errors.New("storage unavailable")
)
