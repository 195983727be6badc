// Package errors provides standardized domain errors that express harness intent
// rather than transport details. These errors are returned by the datastore,
// queue and blob clients and inspected by the scenario layer to decide whether
// a failure is expected (not found during cleanup) or scenario-terminal.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors shared across the harness packages.
var (
	// ErrNotFound indicates the requested document or blob does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with an existing document (duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a fixture or configuration input failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransport indicates a datastore, queue or blob operation failed for a
	// reason other than not-found (authentication, network, throttling).
	ErrTransport = errors.New("transport failure")

	// ErrAssertion indicates an observed state did not match the expected one.
	// Scenario-terminal, distinct from transport failures.
	ErrAssertion = errors.New("assertion failed")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
