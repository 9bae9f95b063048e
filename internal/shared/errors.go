package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies core failures for the boundary layer.
type ErrorKind string

const (
	// KindValidation marks malformed or missing input; no state changed.
	KindValidation ErrorKind = "VALIDATION"
	// KindNotFound marks an id that does not resolve to a stored record.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInvariant marks a rejected commit: negative pending balance,
	// duplicate document number, insufficient stock.
	KindInvariant ErrorKind = "INVARIANT"
	// KindInternal marks an unexpected store or I/O failure.
	KindInternal ErrorKind = "INTERNAL"
)

// Error is the structured error surfaced by every core operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	wrapped error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is chains.
func (e *Error) Unwrap() error { return e.wrapped }

// Validation builds a caller-fault input error bound to a field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// NotFound builds a missing-record error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Invariant builds an invariant-violation error.
func Invariant(message string) *Error {
	return &Error{Kind: KindInvariant, Message: message}
}

// Internal wraps an unexpected failure without leaking its detail.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", wrapped: err}
}

// Wrap attaches a cause to a structured error.
func Wrap(e *Error, cause error) *Error {
	out := *e
	out.wrapped = cause
	return &out
}

// KindOf extracts the error kind, defaulting to internal.
func KindOf(err error) ErrorKind {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	return KindInternal
}

// UserSafeMessage returns a message suitable for API responses. Internal
// detail stays in the logs.
func UserSafeMessage(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) && coreErr.Kind != KindInternal {
		return coreErr.Message
	}
	return "internal error"
}
