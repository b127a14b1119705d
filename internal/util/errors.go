// Package util provides shared error and response helpers for the gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrServiceNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., DownstreamError). Each type implements
//     Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrBackendUnavail  = errors.New("backend unavailable")
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid bearer token")
)

// DownstreamError represents a failed call to a backend service.
type DownstreamError struct {
	Service string
	Cause   error
}

// Error implements the error interface.
func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream call to %s failed: %v", e.Service, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DownstreamError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *DownstreamError) Is(target error) bool {
	var de *DownstreamError
	if errors.As(target, &de) {
		return de.Service == "" || de.Service == e.Service
	}
	return errors.Is(e.Cause, target)
}

// NewDownstreamError creates a new DownstreamError.
func NewDownstreamError(service string, cause error) *DownstreamError {
	return &DownstreamError{Service: service, Cause: cause}
}
