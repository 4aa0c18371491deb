// Package apperr defines the error taxonomy shared by all services.
// Every expected failure carries a Kind so handlers can map it to an
// HTTP status in one place instead of matching sentinel errors per route.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindBadRequest
	KindUnauthorized
	KindInternal
)

// Error is a failure with a classified kind and a user-facing message.
// An optional wrapped cause is kept for logging only and never reaches
// the response body.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperr.Errors by kind, so tests and
// handlers can compare against a bare E(kind, "") probe.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error     { return E(KindNotFound, message) }
func Conflict(message string) *Error     { return E(KindConflict, message) }
func Forbidden(message string) *Error    { return E(KindForbidden, message) }
func BadRequest(message string) *Error   { return E(KindBadRequest, message) }
func Unauthorized(message string) *Error { return E(KindUnauthorized, message) }

// Internal wraps an unexpected storage or infrastructure fault. The
// message shown to clients stays generic; err carries the detail.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf classifies any error. Non-apperr errors are treated as internal
// faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message for err. Foreign errors
// collapse to a generic message so stack details never leak into
// responses; apperr messages are written by us and safe to surface.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal Server Error"
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
