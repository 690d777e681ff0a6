package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the category of every ValidationError.
var ErrValidation = errors.New("validation failed")

// ErrNoVariants is returned when segmenting an experiment with no registered variants.
var ErrNoVariants = errors.New("experiment has no variants")

// ErrExpired is returned when segmenting an experiment past its expiry.
var ErrExpired = errors.New("experiment has expired")

// ErrAlreadyCompleted is returned by a second completion of the same experiment.
var ErrAlreadyCompleted = errors.New("experiment already completed")

// ErrStorageUnavailable is returned when the key-value store is missing or unreachable.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrKeyNotFound is returned by a store when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ValidationError represents a single invalid argument.
type ValidationError struct {
	Field  string // Argument name
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
