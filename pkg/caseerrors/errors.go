// Package caseerrors defines the error-kind taxonomy used across caseforge.
// Kinds are sentinel errors; callers classify with errors.Is and wrap with
// fmt.Errorf("...: %w", ...).
package caseerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound maps to HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput maps to HTTP 400.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized maps to HTTP 401/403; recovered via degraded path where one exists.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream wraps a failure in an external store/adapter.
	ErrUpstream = errors.New("upstream failure")
	// ErrIntegrityViolation marks a hash-chain mismatch or signature failure.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrApprovalDenied marks a rejected or expired approval (first-class outcome).
	ErrApprovalDenied = errors.New("approval denied")
	// ErrDeadlineExceeded marks a request-level deadline hit.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// InvalidInputf wraps ErrInvalidInput with context.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// Upstreamf wraps ErrUpstream with context and a cause.
func Upstreamf(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %v", fmt.Sprintf(format, args...), ErrUpstream, cause)
}

// IntegrityViolationf wraps ErrIntegrityViolation with context.
func IntegrityViolationf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrIntegrityViolation)
}

// Is reports whether err's chain contains target, a thin re-export so callers
// only need to import this package when classifying caseforge errors.
func Is(err, target error) bool { return errors.Is(err, target) }
