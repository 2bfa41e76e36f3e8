package repository

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by one optimistic compare-and-commit round
	// when the watched state changed between read and write. Callers decide
	// whether to retry.
	ErrConflict = errors.New("state changed concurrently")

	// ErrDuplicateEntry is returned when a unique constraint is violated.
	ErrDuplicateEntry = errors.New("duplicate entry")
)
