package service

import (
	"errors"
	"fmt"

	"docvault/internal/repository"
)

// Errors returned by the document core. Operations wrap them with detail, so
// callers should match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrStorage         = errors.New("blob store failure")
	ErrLogging         = errors.New("access log write failed")
	ErrUnauthenticated = errors.New("authentication required")
)

// translate maps repository sentinels onto service errors.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %s", ErrConflict, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
