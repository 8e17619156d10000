package bookapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for book service calls.
var (
	ErrTransport = errors.New("bookapi: request failed")
	ErrDecode    = errors.New("bookapi: malformed response")
)

// StatusError reports a non-2xx reply from the book service.
type StatusError struct {
	// ServerMessage is the "error" field of a JSON reply body, if there was one.
	ServerMessage string
	StatusCode    int
}

func (e *StatusError) Error() string {
	if e.ServerMessage != "" {
		return fmt.Sprintf("bookapi: status %d: %s", e.StatusCode, e.ServerMessage)
	}
	return fmt.Sprintf("bookapi: status %d", e.StatusCode)
}

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // list, create, get, update, delete
	ID  string // book id, if applicable
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("bookapi %s [%s]: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("bookapi %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}

// StatusCode returns the HTTP status carried by err, or 0 when the
// request never produced a reply.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
