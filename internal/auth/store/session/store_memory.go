// Package session persists the revocable session ledger. The ledger is
// the source of truth for token liveness: a token whose signature still
// verifies is dead the moment its ledger row is revoked. Stores are pure
// I/O; validity rules live on the model and in the service.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

// InMemoryStore is the test and single-process implementation.
type InMemoryStore struct {
	mu      sync.Mutex
	byID    map[id.SessionID]*models.Session
	byToken map[string]id.SessionID
	byUser  map[id.UserID][]id.SessionID
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.SessionID]*models.Session),
		byToken: make(map[string]id.SessionID),
		byUser:  make(map[id.UserID][]id.SessionID),
	}
}

// Create registers a newly issued session.
func (s *InMemoryStore) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[sess.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *sess
	s.byID[sess.ID] = &cp
	s.byToken[sess.Token] = sess.ID
	s.byUser[sess.UserID] = append(s.byUser[sess.UserID], sess.ID)
	return nil
}

// FindByID returns a copy of the session.
func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// FindByToken returns a copy of the session holding the given token.
func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[sessionID]
	return &cp, nil
}

// Revoke marks the session revoked. Revoking an already-revoked session
// returns ErrRevoked so callers can treat double logout as idempotent.
func (s *InMemoryStore) Revoke(_ context.Context, sessionID id.SessionID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sess.RevokedAt != nil {
		return sentinel.ErrRevoked
	}
	sess.ApplyRevocation(now)
	return nil
}

// RevokeByToken revokes the session holding the given token.
func (s *InMemoryStore) RevokeByToken(ctx context.Context, token string, now time.Time) error {
	s.mu.Lock()
	sessionID, ok := s.byToken[token]
	s.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	return s.Revoke(ctx, sessionID, now)
}

// RevokeAllForUser revokes every live session for the user, optionally
// sparing the session that holds exceptToken. Returns the number revoked.
// A session created strictly after the call may survive; callers relying
// on total revocation must pair this with a credential change.
func (s *InMemoryStore) RevokeAllForUser(_ context.Context, userID id.UserID, exceptToken string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for _, sessionID := range s.byUser[userID] {
		sess := s.byID[sessionID]
		if sess.RevokedAt != nil {
			continue
		}
		if exceptToken != "" && sess.Token == exceptToken {
			continue
		}
		sess.ApplyRevocation(now)
		revoked++
	}
	return revoked, nil
}

// ListByUser returns the user's sessions, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]*models.Session, 0, len(s.byUser[userID]))
	for _, sessionID := range s.byUser[userID] {
		cp := *s.byID[sessionID]
		sessions = append(sessions, &cp)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].IssuedAt.After(sessions[j].IssuedAt)
	})
	return sessions, nil
}

// DeleteExpired removes sessions whose expiry passed before cutoff.
// Used by the background janitor; idempotent.
func (s *InMemoryStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for sessionID, sess := range s.byID {
		if !sess.ExpiresAt.Before(cutoff) {
			continue
		}
		delete(s.byID, sessionID)
		delete(s.byToken, sess.Token)
		ids := s.byUser[sess.UserID]
		for i, sid := range ids {
			if sid == sessionID {
				s.byUser[sess.UserID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		deleted++
	}
	return deleted, nil
}
