package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

// PostgresStore persists credential records in PostgreSQL. Counter
// mutations use single atomic statements so N concurrent failed attempts
// produce exactly N increments and the lock engages exactly once.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, username, email, password_hash, role, active,
	failed_attempts, locked_until, last_login_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Username, u.Email, u.PasswordHash, u.Role, u.Active,
		u.FailedAttempts, u.LockedUntil, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// IncrementFailures atomically bumps the failure counter via a single
// UPDATE ... RETURNING, preventing lost updates under concurrency.
func (s *PostgresStore) IncrementFailures(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `
		UPDATE users
		SET failed_attempts = failed_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns + `
	`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("increment failed attempts: %w", err)
	}
	return u, nil
}

// ApplyLock engages the lock with a conditional UPDATE so a lock already
// active at "now" is never re-armed by a racing attempt.
func (s *PostgresStore) ApplyLock(ctx context.Context, userID id.UserID, until, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET locked_until = $2, updated_at = $3
		WHERE id = $1
		  AND (locked_until IS NULL OR locked_until <= $3)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), until, now)
	if err != nil {
		return false, fmt.Errorf("apply lock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply lock rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) ResetFailedAttempts(ctx context.Context, userID id.UserID, loginAt time.Time) error {
	query := `
		UPDATE users
		SET failed_attempts = 0, locked_until = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), loginAt)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) SetPasswordHash(ctx context.Context, userID id.UserID, hash string, now time.Time) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), hash, now)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*models.User, error) {
	var (
		u           models.User
		rawID       uuid.UUID
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active,
		&u.FailedAttempts, &lockedUntil, &lastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(rawID)
	if lockedUntil.Valid {
		u.LockedUntil = &lockedUntil.Time
	}
	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	return &u, nil
}
