package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

type InMemorySessionStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemorySessionStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionStoreSuite))
}

func (s *InMemorySessionStoreSuite) SetupTest() {
	s.store = New()
}

func makeSession(userID id.UserID, token string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        id.SessionID(uuid.New()),
		UserID:    userID,
		Token:     token,
		IPAddress: "203.0.113.9",
		UserAgent: "test-agent",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func (s *InMemorySessionStoreSuite) TestLookup() {
	ctx := context.Background()

	s.Run("find by id and by token", func() {
		sess := makeSession(id.UserID(uuid.New()), "tok-1")
		s.Require().NoError(s.store.Create(ctx, sess))

		byID, err := s.store.FindByID(ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(sess.Token, byID.Token)

		byToken, err := s.store.FindByToken(ctx, "tok-1")
		s.Require().NoError(err)
		s.Equal(sess.ID, byToken.ID)
	})

	s.Run("missing token returns ErrNotFound", func() {
		_, err := s.store.FindByToken(ctx, "no-such-token")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySessionStoreSuite) TestRevocation() {
	ctx := context.Background()
	now := time.Now()

	s.Run("revoke sets RevokedAt", func() {
		sess := makeSession(id.UserID(uuid.New()), "tok-r1")
		s.Require().NoError(s.store.Create(ctx, sess))

		s.Require().NoError(s.store.Revoke(ctx, sess.ID, now))

		found, err := s.store.FindByID(ctx, sess.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.RevokedAt)
		s.False(found.ValidAt(now))
	})

	s.Run("double revoke returns ErrRevoked and keeps first timestamp", func() {
		sess := makeSession(id.UserID(uuid.New()), "tok-r2")
		s.Require().NoError(s.store.Create(ctx, sess))

		s.Require().NoError(s.store.Revoke(ctx, sess.ID, now))
		err := s.store.Revoke(ctx, sess.ID, now.Add(time.Minute))
		s.Require().ErrorIs(err, sentinel.ErrRevoked)

		found, err := s.store.FindByID(ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(now, *found.RevokedAt)
	})

	s.Run("concurrent revokes: exactly one wins", func() {
		sess := makeSession(id.UserID(uuid.New()), "tok-r3")
		s.Require().NoError(s.store.Create(ctx, sess))

		const goroutines = 20
		var wg sync.WaitGroup
		var wins atomic.Int32
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.store.Revoke(ctx, sess.ID, time.Now()); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), wins.Load())
	})

	s.Run("revoke by token on missing token returns ErrNotFound", func() {
		err := s.store.RevokeByToken(ctx, "ghost-token", now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySessionStoreSuite) TestRevokeAllForUser() {
	ctx := context.Background()
	now := time.Now()

	s.Run("revokes every live session for the user", func() {
		userID := id.UserID(uuid.New())
		for _, token := range []string{"a", "b", "c"} {
			s.Require().NoError(s.store.Create(ctx, makeSession(userID, token)))
		}
		other := makeSession(id.UserID(uuid.New()), "other")
		s.Require().NoError(s.store.Create(ctx, other))

		revoked, err := s.store.RevokeAllForUser(ctx, userID, "", now)
		s.Require().NoError(err)
		s.Equal(3, revoked)

		untouched, err := s.store.FindByID(ctx, other.ID)
		s.Require().NoError(err)
		s.Nil(untouched.RevokedAt)
	})

	s.Run("spares the excepted token", func() {
		userID := id.UserID(uuid.New())
		keep := makeSession(userID, "keep-me")
		s.Require().NoError(s.store.Create(ctx, keep))
		s.Require().NoError(s.store.Create(ctx, makeSession(userID, "drop-me")))

		revoked, err := s.store.RevokeAllForUser(ctx, userID, "keep-me", now)
		s.Require().NoError(err)
		s.Equal(1, revoked)

		found, err := s.store.FindByToken(ctx, "keep-me")
		s.Require().NoError(err)
		s.Nil(found.RevokedAt)
	})

	s.Run("skips already-revoked sessions", func() {
		userID := id.UserID(uuid.New())
		first := makeSession(userID, "first")
		s.Require().NoError(s.store.Create(ctx, first))
		s.Require().NoError(s.store.Revoke(ctx, first.ID, now))
		s.Require().NoError(s.store.Create(ctx, makeSession(userID, "second")))

		revoked, err := s.store.RevokeAllForUser(ctx, userID, "", now)
		s.Require().NoError(err)
		s.Equal(1, revoked)
	})
}

func (s *InMemorySessionStoreSuite) TestDeleteExpired() {
	ctx := context.Background()
	now := time.Now()

	s.Run("removes only sessions past expiry", func() {
		userID := id.UserID(uuid.New())
		stale := makeSession(userID, "stale")
		stale.ExpiresAt = now.Add(-time.Minute)
		live := makeSession(userID, "live")
		s.Require().NoError(s.store.Create(ctx, stale))
		s.Require().NoError(s.store.Create(ctx, live))

		deleted, err := s.store.DeleteExpired(ctx, now)
		s.Require().NoError(err)
		s.Equal(1, deleted)

		_, err = s.store.FindByToken(ctx, "stale")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByToken(ctx, "live")
		s.Require().NoError(err)

		remaining, err := s.store.ListByUser(ctx, userID)
		s.Require().NoError(err)
		s.Len(remaining, 1)
	})

	s.Run("idempotent on empty store", func() {
		deleted, err := s.store.DeleteExpired(ctx, now)
		s.Require().NoError(err)
		s.Equal(0, deleted)
	})
}
