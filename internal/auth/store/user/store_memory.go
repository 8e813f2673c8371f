// Package user persists credential records. Stores are pure I/O; lockout
// decisions (thresholds, durations) belong to the policy engine and the
// orchestrator; stores only guarantee the atomicity of each mutation.
package user

import (
	"context"
	"sync"
	"time"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

// InMemoryStore is the test and single-process implementation.
type InMemoryStore struct {
	mu         sync.Mutex
	byID       map[id.UserID]*models.User
	byUsername map[string]id.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
	}
}

// Create inserts a new user. Duplicate usernames surface ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUsername[u.Username]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[u.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byUsername[u.Username] = u.ID
	return nil
}

// FindByUsername returns a copy of the user record.
func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[uid]
	return &cp, nil
}

// FindByID returns a copy of the user record.
func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// IncrementFailures atomically bumps the failure counter and returns the
// updated record. Concurrent callers each observe a distinct counter value.
func (s *InMemoryStore) IncrementFailures(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u.FailedAttempts++
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

// ApplyLock engages the lock unless one is already active at "now".
// Returns whether the lock was applied, so an engaged lock is never
// re-armed mid-window by a racing attempt.
func (s *InMemoryStore) ApplyLock(_ context.Context, userID id.UserID, until, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if u.LockedUntil != nil && now.Before(*u.LockedUntil) {
		return false, nil
	}
	t := until
	u.LockedUntil = &t
	u.UpdatedAt = now
	return true, nil
}

// ResetFailedAttempts clears the counter and any lock after a successful
// verification, and stamps the login time.
func (s *InMemoryStore) ResetFailedAttempts(_ context.Context, userID id.UserID, loginAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.FailedAttempts = 0
	u.LockedUntil = nil
	t := loginAt
	u.LastLoginAt = &t
	u.UpdatedAt = loginAt
	return nil
}

// SetPasswordHash installs a freshly salted hash. Callers must treat this
// as mandating revocation of all sessions for the user.
func (s *InMemoryStore) SetPasswordHash(_ context.Context, userID id.UserID, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}
