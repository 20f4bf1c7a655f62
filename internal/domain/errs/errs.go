// Package errs defines the error taxonomy shared by services and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindUnauth     Kind = "UNAUTHORIZED"
	KindPermission Kind = "FORBIDDEN"
	KindRateLimit  Kind = "RATE_LIMITED"
	KindInternal   Kind = "INTERNAL_ERROR"
)

// Error is a structured business rejection.
type Error struct {
	Kind       Kind
	Field      string
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Validation names the first offending input field.
func Validation(field, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: reason}
}

// NotFound reports an absent entity or one not owned by the caller.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauth, Message: message}
}

// Permission reports an action the owner has not opted into.
func Permission(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

// RateLimited carries the wait until the current window closes.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Message: "too many requests", RetryAfter: retryAfter}
}

// Internal hides cause behind a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
