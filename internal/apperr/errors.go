// Package apperr defines the error kinds returned by the gym core and their
// transport mapping.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindNotFound            Kind = "not_found"
	KindInvalidState        Kind = "invalid_state"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindCapacityExceeded    Kind = "capacity_exceeded"
	KindAlreadyRegistered   Kind = "already_registered"
	KindConflict            Kind = "conflict"
	KindStorageFailure      Kind = "storage_failure"
	KindInvalidArgument     Kind = "invalid_argument"
	KindForbidden           Kind = "forbidden"
	KindUnauthenticated     Kind = "unauthenticated"
)

// HTTPStatus maps a kind to the status code the request layer responds with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindCapacityExceeded, KindAlreadyRegistered, KindConflict:
		return http.StatusConflict
	case KindInsufficientCredits:
		return http.StatusPaymentRequired
	case KindStorageFailure:
		return http.StatusServiceUnavailable
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a message safe to show to callers and an optional
// underlying cause that is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error            { return New(KindNotFound, message) }
func InvalidState(message string) *Error        { return New(KindInvalidState, message) }
func InvalidArgument(message string) *Error     { return New(KindInvalidArgument, message) }
func Forbidden(message string) *Error           { return New(KindForbidden, message) }
func Unauthenticated(message string) *Error     { return New(KindUnauthenticated, message) }
func CapacityExceeded(message string) *Error    { return New(KindCapacityExceeded, message) }
func AlreadyRegistered(message string) *Error   { return New(KindAlreadyRegistered, message) }
func InsufficientCredits(message string) *Error { return New(KindInsufficientCredits, message) }

// Conflict reports a unit of work that lost a race with a concurrent mutation.
func Conflict(err error) *Error {
	return Wrap(KindConflict, "concurrent update, please retry", err)
}

// StorageFailure hides the storage error behind a generic message.
func StorageFailure(err error) *Error {
	return Wrap(KindStorageFailure, "storage unavailable", err)
}

// KindOf extracts the kind from any error; non-domain errors are KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// RetryConflict runs fn and, if it fails with KindConflict, runs it exactly
// one more time. Any other outcome is returned as is.
func RetryConflict[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if Is(err, KindConflict) {
		return fn()
	}
	return v, err
}
