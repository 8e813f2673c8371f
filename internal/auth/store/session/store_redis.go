package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "authgate:session:"
	tokenKeyPrefix   = "authgate:session_token:"
	userSetKeyPrefix = "authgate:user_sessions:"

	// retentionGrace keeps expired rows queryable for a while before Redis
	// expires them; liveness checks treat them as invalid regardless.
	retentionGrace = 24 * time.Hour

	// revokeRetries bounds optimistic-lock retries on WATCH conflicts.
	revokeRetries = 3
)

// RedisStore is the distributed session ledger implementation. Per-row
// mutations use WATCH-based optimistic transactions; Redis key expiry
// doubles as the janitor.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// sessionDoc is the stored JSON shape of a ledger row.
type sessionDoc struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	IPAddress string     `json:"ip_address"`
	UserAgent string     `json:"user_agent"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func docFromSession(sess *models.Session) sessionDoc {
	return sessionDoc{
		ID:        sess.ID.String(),
		UserID:    sess.UserID.String(),
		Token:     sess.Token,
		IPAddress: sess.IPAddress,
		UserAgent: sess.UserAgent,
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt,
		RevokedAt: sess.RevokedAt,
	}
}

func (d sessionDoc) toSession() (*models.Session, error) {
	sessionID, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &models.Session{
		ID:        id.SessionID(sessionID),
		UserID:    id.UserID(userID),
		Token:     d.Token,
		IPAddress: d.IPAddress,
		UserAgent: d.UserAgent,
		IssuedAt:  d.IssuedAt,
		ExpiresAt: d.ExpiresAt,
		RevokedAt: d.RevokedAt,
	}, nil
}

func (s *RedisStore) Create(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(docFromSession(sess))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	expireAt := sess.ExpiresAt.Add(retentionGrace)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sess.ID.String(), payload, 0)
	pipe.ExpireAt(ctx, sessionKeyPrefix+sess.ID.String(), expireAt)
	pipe.Set(ctx, tokenKeyPrefix+sess.Token, sess.ID.String(), 0)
	pipe.ExpireAt(ctx, tokenKeyPrefix+sess.Token, expireAt)
	pipe.SAdd(ctx, userSetKeyPrefix+sess.UserID.String(), sess.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	return s.get(ctx, sessionKeyPrefix+sessionID.String())
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	sessionID, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token index: %w", err)
	}
	return s.get(ctx, sessionKeyPrefix+sessionID)
}

func (s *RedisStore) get(ctx context.Context, key string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var doc sessionDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return doc.toSession()
}

// Revoke marks the session revoked under a WATCH transaction so exactly
// one concurrent revoker wins; the rest observe ErrRevoked.
func (s *RedisStore) Revoke(ctx context.Context, sessionID id.SessionID, now time.Time) error {
	key := sessionKeyPrefix + sessionID.String()

	revoke := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc sessionDoc
		if err := json.Unmarshal(payload, &doc); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if doc.RevokedAt != nil {
			return sentinel.ErrRevoked
		}
		t := now
		doc.RevokedAt = &t
		updated, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < revokeRetries; attempt++ {
		err = s.client.Watch(ctx, revoke, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *RedisStore) RevokeByToken(ctx context.Context, token string, now time.Time) error {
	sessionID, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve token index: %w", err)
	}
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("parse session id: %w", err)
	}
	return s.Revoke(ctx, id.SessionID(parsed), now)
}

// RevokeAllForUser revokes each live session in the user's index set.
// Already-revoked and vanished entries are skipped; a session created
// strictly after the set was read may survive.
func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID id.UserID, exceptToken string, now time.Time) (int, error) {
	members, err := s.client.SMembers(ctx, userSetKeyPrefix+userID.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	revoked := 0
	for _, member := range members {
		parsed, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		sessionID := id.SessionID(parsed)
		if exceptToken != "" {
			sess, err := s.FindByID(ctx, sessionID)
			if err != nil {
				continue
			}
			if sess.Token == exceptToken {
				continue
			}
		}
		switch err := s.Revoke(ctx, sessionID, now); {
		case err == nil:
			revoked++
		case errors.Is(err, sentinel.ErrRevoked), errors.Is(err, sentinel.ErrNotFound):
			// already dead
		default:
			return revoked, err
		}
	}
	return revoked, nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	members, err := s.client.SMembers(ctx, userSetKeyPrefix+userID.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	sessions := make([]*models.Session, 0, len(members))
	for _, member := range members {
		sess, err := s.get(ctx, sessionKeyPrefix+member)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Key expired; drop the stale index entry.
			s.client.SRem(ctx, userSetKeyPrefix+userID.String(), member)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	// Set members come back in arbitrary order; callers expect newest
	// first, same as the SQL-backed ledger.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].IssuedAt.After(sessions[j].IssuedAt)
	})
	return sessions, nil
}

// DeleteExpired is a no-op for Redis: key expiry performs the purge. It
// exists so the janitor can treat all ledger implementations uniformly.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
