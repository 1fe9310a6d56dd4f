package repository

import "errors"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a unique field (email, provider id) is taken.
	ErrDuplicate = errors.New("repository: duplicate key")
)
