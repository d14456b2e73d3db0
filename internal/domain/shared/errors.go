package shared

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Domain error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeDisposed      = "DISPOSED"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeTimeout       = "TIMEOUT"

	// Sign-in specific errors
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeLockedOut          = "LOCKED_OUT"
	ErrCodeThrottled          = "THROTTLED"
	ErrCodeStaleToken         = "STALE_TOKEN"
)

// NewDomainError creates a new domain error using oops
func NewDomainError(code string, message string) error {
	return oops.
		Code(code).
		In("domain").
		Errorf(message)
}

// NewDomainErrorf creates a new domain error with formatted message
func NewDomainErrorf(code string, format string, args ...interface{}) error {
	return oops.
		Code(code).
		In("domain").
		Errorf(format, args...)
}

// WrapDomainError wraps an existing error with domain context
func WrapDomainError(err error, code string, message string) error {
	return oops.
		Code(code).
		In("domain").
		Wrapf(err, message)
}

// HasCode reports whether err carries the given domain error code
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}

	return oopsErr.Code() == code
}

// Common domain error builders
func ErrInvalidInput(msg string) error {
	return NewDomainError(ErrCodeInvalidInput, msg)
}

func ErrNotFound(resource string) error {
	return NewDomainErrorf(ErrCodeNotFound, "%s not found", resource)
}

func ErrAlreadyExists(resource string) error {
	return NewDomainErrorf(ErrCodeAlreadyExists, "%s already exists", resource)
}

func ErrConflict(resource string) error {
	return NewDomainErrorf(ErrCodeConflict, "%s was modified concurrently", resource)
}

func ErrDisposed() error {
	return NewDomainError(ErrCodeDisposed, "store handle has been disposed")
}

func ErrInvalidCredentials() error {
	return NewDomainError(ErrCodeInvalidCredentials, "invalid username or password")
}

func ErrLockedOut() error {
	return NewDomainError(ErrCodeLockedOut, "account is temporarily locked out")
}

func ErrThrottled() error {
	return NewDomainError(ErrCodeThrottled, "too many sign-in attempts")
}

func ErrStaleToken() error {
	return NewDomainError(ErrCodeStaleToken, "token security stamp no longer matches")
}

// ClassifyStoreError maps transport-level failures onto the domain taxonomy.
// Deadline expirations become TIMEOUT so callers can tell them apart from
// NOT_FOUND and CONFLICT; everything else is UNAVAILABLE.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() != "" {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return WrapDomainError(err, ErrCodeTimeout, "backing store operation timed out")
	}

	return WrapDomainError(err, ErrCodeUnavailable, "backing store unavailable")
}
