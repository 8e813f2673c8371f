package models

import (
	"time"

	id "authgate/pkg/domain"
)

// User is the credential record tracked by the user store. The password
// hash is adaptive and per-record salted (bcrypt); FailedAttempts and
// LockedUntil drive the lockout policy.
//
// Invariant: FailedAttempts resets to zero only on a successful
// verification, never on mere lock expiry.
type User struct {
	ID             id.UserID
	Username       string
	Email          string
	PasswordHash   string
	Role           string
	Active         bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLockedAt reports whether the account lock is engaged at the given time.
func (u *User) IsLockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Summary is the caller-facing projection of a user. It never carries the
// password hash or counters.
type Summary struct {
	ID       id.UserID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// Summary projects the user for inclusion in authentication results.
func (u *User) Summary() Summary {
	return Summary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}
