package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies application errors for transport mapping and for the
// availability checks the analytics layer performs on store results.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidArg
	CodeNotFound
	CodeUnavailable
	CodeAnalyzer
)

// Error is the application error type. Cause keeps the underlying error
// reachable through errors.Unwrap chains.
type Error struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to an HTTP status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidArg:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// InvalidArg reports an unusable request parameter.
func InvalidArg(name string) *Error {
	return New(CodeInvalidArg, "invalid argument: "+name)
}

// NotFound reports a missing entity.
func NotFound(what string) *Error {
	return New(CodeNotFound, what+" not found")
}

// StoreUnavailable marks a failed store call. The analytics layer swallows
// these and substitutes documented defaults; the HTTP layer maps them to 503
// when they do surface.
func StoreUnavailable(store string, cause error) *Error {
	return Wrap(CodeUnavailable, store+" store unavailable", cause)
}

// AnalyzerFailed marks a failed text analysis run.
func AnalyzerFailed(cause error) *Error {
	return Wrap(CodeAnalyzer, "text analysis failed", cause)
}

var (
	ErrRoomNotFound = NotFound("chat room")
	ErrFileNotFound = NotFound("db file")
)

// IsUnavailable reports whether err (or anything it wraps) marks a store as
// unavailable.
func IsUnavailable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeUnavailable
	}
	return false
}

// IsNotFound reports whether err (or anything it wraps) is a not-found error.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeNotFound
	}
	return false
}
