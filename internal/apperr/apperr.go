// Package apperr defines the stable error taxonomy shared by every
// service operation. Each error carries a Kind that maps one-to-one onto
// an HTTP status, so handlers never inspect error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, enumerable error code.
type Kind string

const (
	ValidationFailed  Kind = "VALIDATION_FAILED"
	NotFound          Kind = "NOT_FOUND"
	InvalidTransition Kind = "INVALID_TRANSITION"
	AuthFailed        Kind = "AUTH_FAILED"
	AccountLocked     Kind = "ACCOUNT_LOCKED"
	StoreUnavailable  Kind = "STORE_UNAVAILABLE"
)

// Error is an application error with a stable code and a human message.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match on Kind, so sentinel comparisons like
// errors.Is(err, apperr.New(apperr.NotFound, "")) work across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from any error, defaulting to StoreUnavailable
// for errors that did not originate in a service operation.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StoreUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case ValidationFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case InvalidTransition:
		return http.StatusConflict
	case AuthFailed:
		return http.StatusUnauthorized
	case AccountLocked:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
