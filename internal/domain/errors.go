package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that carry their own HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// NotFoundError names the kind of item that was not found. The message is
// what clients display, e.g. "No sub stage found".
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("No %s found", e.Kind)
	}
	return fmt.Sprintf("No %s found with id %s", e.Kind, e.ID)
}

func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PositionError reports a position outside the range a collection accepts.
type PositionError struct {
	Position int
	Max      int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position %d out of range 0..%d", e.Position, e.Max)
}

func (e *PositionError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation
func (e *PositionError) Is(target error) bool { return target == ErrValidation }
