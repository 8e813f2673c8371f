// Package domainerrors provides coded errors for service-layer failures.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those into coded domain errors
// that the transport layer maps to a status exactly once.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for boundary mapping.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded domain error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates a cause with a code and message. Returns nil for a nil cause.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is delegates to errors.Is so callers can keep a single import.
func Is(err, target error) bool { return errors.Is(err, target) }
