package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed set of authentication failure kinds. Services
// return these typed; the transport layer maps each kind to a status
// exactly once.
type ErrorKind string

const (
	KindAccountNotFound       ErrorKind = "account_not_found"
	KindAccountInactive       ErrorKind = "account_inactive"
	KindAccountLocked         ErrorKind = "account_locked"
	KindInvalidCredentials    ErrorKind = "invalid_credentials"
	KindTokenExpired          ErrorKind = "token_expired"
	KindTokenInvalid          ErrorKind = "token_invalid"
	KindSessionNotFound       ErrorKind = "session_not_found"
	KindSessionRevoked        ErrorKind = "session_revoked"
	KindDependencyUnavailable ErrorKind = "dependency_unavailable"
)

// Error is a typed authentication failure. RetryAfter is populated only
// for KindAccountLocked.
type Error struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.Kind == KindAccountLocked {
		return fmt.Sprintf("%s: retry after %ds", e.Kind, int(e.RetryAfter.Seconds()))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError creates a typed authentication error.
func NewError(kind ErrorKind) error {
	return &Error{Kind: kind}
}

// NewLockedError creates an account-locked error carrying the time until
// the lock expires.
func NewLockedError(retryAfter time.Duration) error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{Kind: KindAccountLocked, RetryAfter: retryAfter}
}

// WrapError attaches a cause (e.g. a store failure) to a typed kind.
func WrapError(kind ErrorKind, cause error) error {
	return &Error{Kind: kind, cause: cause}
}

// IsKind reports whether err carries the given authentication error kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the kind from err, if it is a typed authentication error.
func KindOf(err error) (ErrorKind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// RetryAfterOf extracts the retry-after hint from a locked error.
func RetryAfterOf(err error) (time.Duration, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindAccountLocked {
		return ae.RetryAfter, true
	}
	return 0, false
}
