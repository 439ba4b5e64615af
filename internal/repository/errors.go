package repository

import "errors"

// Sentinel errors shared by every repository implementation.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a version append lost a race.
	ErrVersionConflict = errors.New("version number conflict")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
	// ErrLinkUnavailable is returned when a public link cannot be consumed
	// because it is expired or already at max_uses.
	ErrLinkUnavailable = errors.New("public link unavailable")
)
