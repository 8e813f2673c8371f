// Package domain defines typed identifiers shared across services.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a SessionID can never be passed where a UserID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "authgate/pkg/domain-errors"
)

type (
	// UserID identifies a user account.
	UserID uuid.UUID

	// SessionID identifies a session ledger entry.
	SessionID uuid.UUID

	// AuditID identifies an audit trail entry.
	AuditID uuid.UUID
)

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewAuditID returns a fresh random audit entry ID.
func NewAuditID() AuditID { return AuditID(uuid.New()) }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id AuditID) String() string   { return uuid.UUID(id).String() }

// Text marshaling keeps the canonical UUID form in JSON bodies.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AuditID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := parseUUID(string(text), "user ID")
	if err != nil {
		return err
	}
	*id = UserID(parsed)
	return nil
}

func (id *SessionID) UnmarshalText(text []byte) error {
	parsed, err := parseUUID(string(text), "session ID")
	if err != nil {
		return err
	}
	*id = SessionID(parsed)
	return nil
}

func (id *AuditID) UnmarshalText(text []byte) error {
	parsed, err := parseUUID(string(text), "audit ID")
	if err != nil {
		return err
	}
	*id = AuditID(parsed)
	return nil
}

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user ID")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseSessionID parses and validates a session ID from its string form.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session ID")
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(parsed), nil
}
