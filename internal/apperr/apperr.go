// Package apperr holds the error kinds services return and handlers map to HTTP status codes.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a user-facing message and wraps one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Msg: msg} }
func Validation(msg string) error   { return &Error{Kind: ErrValidation, Msg: msg} }
func Conflict(msg string) error     { return &Error{Kind: ErrConflict, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Msg: msg} }

// Message returns the user-facing message of err, or "" if err is not an *Error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
