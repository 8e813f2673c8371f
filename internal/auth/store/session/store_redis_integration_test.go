//go:build integration

package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"authgate/internal/auth/models"
	"authgate/internal/auth/store/session"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/testutil/containers"
)

type RedisSessionStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionStoreSuite))
}

func (s *RedisSessionStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = session.NewRedis(s.redis.Client)
}

func (s *RedisSessionStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeSession(userID id.UserID) *models.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Session{
		ID:        id.NewSessionID(),
		UserID:    userID,
		Token:     "tok-" + uuid.NewString(),
		IPAddress: "203.0.113.7",
		UserAgent: "go-test",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func (s *RedisSessionStoreSuite) TestTokenIndexLookup() {
	ctx := context.Background()
	sess := makeSession(id.NewUserID())
	s.Require().NoError(s.store.Create(ctx, sess))

	found, err := s.store.FindByToken(ctx, sess.Token)
	s.Require().NoError(err)
	s.Equal(sess.ID, found.ID)
	s.Equal(sess.UserID, found.UserID)

	_, err = s.store.FindByToken(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSessionStoreSuite) TestKeysCarryExpiry() {
	ctx := context.Background()
	sess := makeSession(id.NewUserID())
	s.Require().NoError(s.store.Create(ctx, sess))

	ttl, err := s.redis.Client.TTL(ctx, "authgate:session:"+sess.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Hour, "session key should outlive the session for the retention window")

	ttl, err = s.redis.Client.TTL(ctx, "authgate:session_token:"+sess.Token).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Hour)
}

// Concurrent revocations of one session race through WATCH transactions;
// exactly one wins and the rest observe the revocation.
func (s *RedisSessionStoreSuite) TestConcurrentRevocationSingleWinner() {
	ctx := context.Background()
	sess := makeSession(id.NewUserID())
	s.Require().NoError(s.store.Create(ctx, sess))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins atomic.Int32
	var alreadyRevoked atomic.Int32
	var otherErrors atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.store.Revoke(ctx, sess.ID, time.Now().UTC()); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrRevoked):
				alreadyRevoked.Add(1)
			default:
				otherErrors.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one revoke should succeed")
	s.Equal(int32(goroutines-1), alreadyRevoked.Load())
	s.Equal(int32(0), otherErrors.Load())
}

func (s *RedisSessionStoreSuite) TestRevokePreservesTTL() {
	ctx := context.Background()
	sess := makeSession(id.NewUserID())
	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().NoError(s.store.Revoke(ctx, sess.ID, time.Now().UTC()))

	found, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.NotNil(found.RevokedAt)

	ttl, err := s.redis.Client.TTL(ctx, "authgate:session:"+sess.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0), "revocation must not strip the retention TTL")
}

func (s *RedisSessionStoreSuite) TestRevokeAllExceptCurrent() {
	ctx := context.Background()
	userID := id.NewUserID()
	current := makeSession(userID)
	other1 := makeSession(userID)
	other2 := makeSession(userID)
	for _, sess := range []*models.Session{current, other1, other2} {
		s.Require().NoError(s.store.Create(ctx, sess))
	}

	revoked, err := s.store.RevokeAllForUser(ctx, userID, current.Token, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(2, revoked)

	kept, err := s.store.FindByToken(ctx, current.Token)
	s.Require().NoError(err)
	s.Nil(kept.RevokedAt)

	sessions, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Len(sessions, 3)
}

func (s *RedisSessionStoreSuite) TestListByUserNewestFirst() {
	ctx := context.Background()
	userID := id.NewUserID()

	base := time.Now().UTC().Truncate(time.Second)
	oldest := makeSession(userID)
	oldest.IssuedAt = base.Add(-2 * time.Hour)
	middle := makeSession(userID)
	middle.IssuedAt = base.Add(-time.Hour)
	newest := makeSession(userID)
	newest.IssuedAt = base

	// Insertion order differs from issue order; the listing must not
	// depend on set-member order.
	for _, sess := range []*models.Session{middle, newest, oldest} {
		s.Require().NoError(s.store.Create(ctx, sess))
	}

	sessions, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 3)
	s.Equal(newest.ID, sessions[0].ID)
	s.Equal(middle.ID, sessions[1].ID)
	s.Equal(oldest.ID, sessions[2].ID)
}
