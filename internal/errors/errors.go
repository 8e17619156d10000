// Package errors provides coded errors for the book catalog client.
//
// Every catalog operation reports failure as an *Error, so callers can branch on
// the kind of failure instead of parsing messages:
//
//	book, err := cat.AddBook(ctx, draft)
//	if errors.Is(err, errors.ErrMissingCredential) {
//	    // prompt for login
//	}
//
//	var catErr *errors.Error
//	if errors.As(err, &catErr) {
//	    switch catErr.Code {
//	    case errors.CodeUpstream:
//	        showBanner(catErr.Message)
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error kind.
type Code string

// Error codes used throughout the client.
const (
	CodeMissingCredential Code = "MISSING_CREDENTIAL"
	CodeValidation        Code = "VALIDATION"
	CodeTransport         Code = "TRANSPORT"
	CodeUpstream          Code = "UPSTREAM"
	CodeDecode            Code = "DECODE"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus returns the status the local API answers with for this code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingCredential:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstream, CodeDecode:
		return http.StatusBadGateway
	case CodeTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with a human-readable message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrMissingCredential = &Error{Code: CodeMissingCredential, Message: "missing credential"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrTransport         = &Error{Code: CodeTransport, Message: "transport error"}
	ErrUpstream          = &Error{Code: CodeUpstream, Message: "upstream error"}
	ErrDecode            = &Error{Code: CodeDecode, Message: "decode error"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// MissingCredential creates a missing credential error.
func MissingCredential(msg string) *Error {
	return &Error{Code: CodeMissingCredential, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Upstream creates an error for a non-success reply from the book service.
func Upstream(msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
