package models

import (
	"time"

	id "authgate/pkg/domain"
)

// Session is one row of the revocable session ledger. A session is valid
// iff RevokedAt is nil and now is before ExpiresAt, checked against the
// ledger rather than the token's embedded expiry, so revocation takes
// effect even while the token signature still verifies.
type Session struct {
	ID        id.SessionID
	UserID    id.UserID
	Token     string
	IPAddress string
	UserAgent string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ValidAt reports whether the session grants access at the given time.
func (s *Session) ValidAt(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// IsRevoked reports whether the session has been explicitly revoked.
func (s *Session) IsRevoked() bool { return s.RevokedAt != nil }

// ApplyRevocation marks the session revoked. Idempotent: an earlier
// revocation timestamp is preserved.
func (s *Session) ApplyRevocation(now time.Time) {
	if s.RevokedAt == nil {
		t := now
		s.RevokedAt = &t
	}
}
