/**
 * @description
 * This file defines the error taxonomy for the membership service. The API
 * layer maps these to HTTP status codes; nothing in this package writes an
 * HTTP response itself.
 */

package app

import "errors"

// ErrUnauthorized is returned when a mutating operation runs without an
// authenticated caller identity.
var ErrUnauthorized = errors.New("not authenticated")

// ErrAllocationConflict is returned when member creation hit the assignment
// number unique constraint twice: once with the originally allocated number
// and once after a single re-allocation retry.
var ErrAllocationConflict = errors.New("could not allocate a unique assignment number, please retry")

// ValidationError is a client-detectable input problem, surfaced before any
// persistence call. Message is user-facing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError wraps a user-facing message as a ValidationError.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
