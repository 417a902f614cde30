package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Code classifies an error; match with errors.Is(err, SomeCode).
type Code string

func (c Code) Error() string { return string(c) }

// Failure classes shared by every layer of the client.
const (
	// ErrValidation is returned before any network call for malformed input.
	ErrValidation Code = "validation error"
	// ErrNetwork covers transport failures and non-success HTTP replies.
	ErrNetwork Code = "network error"
	// ErrAuth means the server rejected our credentials even after a refresh.
	ErrAuth Code = "auth error"
	// ErrConnection means the media engine could not establish a room connection.
	ErrConnection Code = "connection error"
)

// Error pairs a Code with the underlying cause.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(Code)
	return ok && e.Code == t
}

func New(code Code, message string) error {
	return &Error{Code: code, Err: errors.New(message)}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Err: errors.Errorf(format, args...)}
}

// Wrap returns nil when err is nil.
func Wrap(code Code, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: errors.Wrap(err, message)}
}

// Wrapf returns nil when err is nil.
func Wrapf(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: errors.Wrapf(err, format, args...)}
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// CodeOf returns the outermost Code attached to err, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	var c Code
	if stderrors.As(err, &c) {
		return c
	}
	return ""
}
