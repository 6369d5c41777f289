// Package apperr defines the error taxonomy shared by backends and the notes store.
package apperr

import "errors"

var (
	// ErrNotFound marks a lookup that matched no note. It is an outcome, not a failure.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable is wrapped by every *OpError (storage or transport failure).
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnsupported is returned when the selected backend lacks a capability.
	ErrUnsupported = errors.New("unsupported by backend")
)

// ValidationError is a field-level input error raised before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// OpError is a storage or transport failure. Error returns the user-facing
// Message only; Err carries the diagnostic cause and is meant for logs.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Err}
}

// Op builds an *OpError.
func Op(op, message string, err error) *OpError {
	return &OpError{Op: op, Message: message, Err: err}
}

// UserMessage returns the message safe to show to an end user for err.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return "something went wrong"
}
