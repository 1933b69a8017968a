package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig            = "CONFIG"
	ErrBus               = "BUS"
	ErrServiceNotFound   = "SERVICE_NOT_FOUND"
	ErrUnrecognizedEvent = "UNRECOGNIZED_EVENT"
	ErrPayload           = "PAYLOAD"
	ErrSerial            = "SERIAL"
	ErrUI                = "UI"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrBus code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrBus,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
// Only the outermost structured error is inspected.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pcErr *Error
	if errors.As(err, &pcErr) {
		return pcErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured error, or "" if err
// carries none.
func CodeOf(err error) string {
	var pcErr *Error
	if errors.As(err, &pcErr) {
		return pcErr.Code
	}
	return ""
}

// Summary returns a one-line description of err: the message of the
// outermost structured error, or err.Error() otherwise.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var pcErr *Error
	if errors.As(err, &pcErr) {
		return pcErr.Message
	}
	return err.Error()
}
