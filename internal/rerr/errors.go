// Package rerr provides the closed set of structured error kinds used
// throughout rash: InvalidData, NotFound, SubprocessFail, IOError,
// Other, and the GracefulExit sentinel.
package rerr

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error categories a rash operation can fail with.
type ErrorKind string

const (
	InvalidData   ErrorKind = "InvalidData"
	NotFound      ErrorKind = "NotFound"
	SubprocessFail ErrorKind = "SubprocessFail"
	IOError       ErrorKind = "IOError"
	Other         ErrorKind = "Other"
	GracefulExit  ErrorKind = "GracefulExit"
)

// RashError is the structured error type for rash operations.
type RashError struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Cause   error

	// Payload carries the GracefulExit help text, when Kind == GracefulExit.
	Payload string
}

// Error implements the error interface.
func (e *RashError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *RashError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a context key/value to the error.
func (e *RashError) WithDetail(key string, value any) *RashError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *RashError) WithCause(err error) *RashError {
	e.Cause = err
	return e
}

// New creates a RashError with the given kind and message.
func New(kind ErrorKind, message string) *RashError {
	return &RashError{Kind: kind, Message: message}
}

// Newf creates a RashError with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *RashError {
	return &RashError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err in a RashError of the given kind.
func Wrap(kind ErrorKind, message string, err error) *RashError {
	return &RashError{Kind: kind, Message: message, Cause: err}
}

// Wrapf wraps err in a RashError with a formatted message.
func Wrapf(kind ErrorKind, err error, format string, args ...any) *RashError {
	return &RashError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// --- convenience constructors, one per common failure site ---

// InvalidDataf builds an InvalidData error.
func InvalidDataf(format string, args ...any) *RashError {
	return Newf(InvalidData, format, args...)
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *RashError {
	return Newf(NotFound, format, args...)
}

// SubprocessFailf builds a SubprocessFail error, with the exit code and
// stderr attached as the "exit_code" and "stderr" details.
func SubprocessFailf(stderr string, exitCode int) *RashError {
	return Newf(SubprocessFail, "subprocess exited with code %d", exitCode).
		WithDetail("exit_code", exitCode).
		WithDetail("stderr", stderr)
}

// SubprocessSignaled builds a SubprocessFail error for a child killed by signal.
func SubprocessSignaled() *RashError {
	return New(SubprocessFail, "subprocess terminated with unknown status (killed by signal)")
}

// IOErrorf wraps an *os.PathError-shaped failure.
func IOErrorf(path string, err error) *RashError {
	return Wrapf(IOError, err, "I/O error on %s", path)
}

// Otherf builds a catch-all error.
func Otherf(format string, args ...any) *RashError {
	return Newf(Other, format, args...)
}

// NewGracefulExit builds the non-error sentinel carrying help text.
func NewGracefulExit(helpText string) *RashError {
	return &RashError{Kind: GracefulExit, Message: "help requested", Payload: helpText}
}

// HasKind reports whether err is a *RashError with the given kind.
func HasKind(err error, kind ErrorKind) bool {
	var re *RashError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// KindOf returns the kind of err if it is a *RashError, or "" otherwise.
func KindOf(err error) ErrorKind {
	var re *RashError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsGracefulExit reports whether err is the GracefulExit sentinel.
func IsGracefulExit(err error) bool {
	return HasKind(err, GracefulExit)
}
