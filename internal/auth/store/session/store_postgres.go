package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

// PostgresStore persists the session ledger in PostgreSQL. Indexed on
// token and on (user_id, revoked_at) so liveness checks and bulk
// revocation stay single-statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, token, ip_address, user_agent, issued_at, expires_at, revoked_at`

func (s *PostgresStore) Create(ctx context.Context, sess *models.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(sess.ID), uuid.UUID(sess.UserID), sess.Token,
		sess.IPAddress, sess.UserAgent, sess.IssuedAt, sess.ExpiresAt, sess.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(sessionID))
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1`
	return s.findOne(ctx, query, token)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return sess, nil
}

// Revoke marks the session revoked iff it is not revoked already, making
// double logout detectable without a read-modify-write race.
func (s *PostgresStore) Revoke(ctx context.Context, sessionID id.SessionID, now time.Time) error {
	query := `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(sessionID), now)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke session rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	// Distinguish missing from already-revoked for the caller.
	if _, err := s.FindByID(ctx, sessionID); err != nil {
		return err
	}
	return sentinel.ErrRevoked
}

func (s *PostgresStore) RevokeByToken(ctx context.Context, token string, now time.Time) error {
	query := `UPDATE sessions SET revoked_at = $2 WHERE token = $1 AND revoked_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, token, now)
	if err != nil {
		return fmt.Errorf("revoke session by token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke session by token rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.FindByToken(ctx, token); err != nil {
		return err
	}
	return sentinel.ErrRevoked
}

// RevokeAllForUser revokes every live session for the user in a single
// conditional statement. A session created strictly after the statement
// executes may survive; callers relying on total revocation must pair
// this with a credential change.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID id.UserID, exceptToken string, now time.Time) (int, error) {
	query := `
		UPDATE sessions
		SET revoked_at = $2
		WHERE user_id = $1
		  AND revoked_at IS NULL
		  AND ($3 = '' OR token <> $3)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), now, exceptToken)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY issued_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpired removes sessions whose expiry passed before cutoff.
func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows affected: %w", err)
	}
	return int(rows), nil
}

type sessionRow interface {
	Scan(dest ...any) error
}

func scanSession(row sessionRow) (*models.Session, error) {
	var (
		sess      models.Session
		rawID     uuid.UUID
		rawUserID uuid.UUID
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &rawUserID, &sess.Token,
		&sess.IPAddress, &sess.UserAgent, &sess.IssuedAt, &sess.ExpiresAt, &revokedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.ID = id.SessionID(rawID)
	sess.UserID = id.UserID(rawUserID)
	if revokedAt.Valid {
		sess.RevokedAt = &revokedAt.Time
	}
	return &sess, nil
}
