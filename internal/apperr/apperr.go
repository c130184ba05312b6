// Package apperr defines the error taxonomy shared by the catalog client,
// the shelf store and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a shelf entry or catalog record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when a store operation runs without a session.
	ErrUnauthorized = errors.New("authentication required")

	// ErrDuplicate is returned when an insert hits the (user, movie) uniqueness
	// constraint.
	ErrDuplicate = errors.New("entry already on shelf")
)

// TransportError wraps a failed catalog request, tagged with the action that
// was attempted so callers can tell a failed search from a failed details load.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("catalog %s failed: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport tags err with the catalog action that produced it.
func Transport(action string, err error) error {
	return &TransportError{Action: action, Err: err}
}

// ValidationError reports a rejected input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a single field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StoreError wraps a backing-store failure that is not a simple not-found.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store tags err with the repository operation that produced it.
func Store(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
