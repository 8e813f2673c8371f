// Package postgres persists the audit trail in PostgreSQL. The table is
// append-only: the only UPDATE-free mutation is the retention purge.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"authgate/internal/audit"
	id "authgate/pkg/domain"
)

// Store is the PostgreSQL audit store.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one audit row. Details are stored as JSONB.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var userID *uuid.UUID
	if entry.UserID != nil {
		uid := uuid.UUID(*entry.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO audit_entries (id, user_id, action, resource, details, ip_address, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID), userID, string(entry.Action), entry.Resource,
		details, entry.IPAddress, string(entry.Status), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns a filtered, paginated view, newest first.
func (s *Store) Query(ctx context.Context, filter audit.Filter) (*audit.Page, error) {
	filter.Normalize()

	where, args := buildWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_entries` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, action, resource, details, ip_address, status, created_at
		FROM audit_entries%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return &audit.Page{
		Entries: entries,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

// PurgeOlderThan deletes rows created before cutoff. The only deletion
// path for audit data.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit entries rows affected: %w", err)
	}
	return int(rows), nil
}

func buildWhere(filter audit.Filter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.UserID != nil {
		add("user_id = $%d", uuid.UUID(*filter.UserID))
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.IP != "" {
		add("ip_address = $%d", filter.IP)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanEntry(rows *sql.Rows) (*audit.Entry, error) {
	var (
		entry      audit.Entry
		rawID      uuid.UUID
		rawUserID  *uuid.UUID
		rawDetails []byte
		action     string
		status     string
	)
	err := rows.Scan(&rawID, &rawUserID, &action, &entry.Resource, &rawDetails,
		&entry.IPAddress, &status, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.ID = id.AuditID(rawID)
	if rawUserID != nil {
		uid := id.UserID(*rawUserID)
		entry.UserID = &uid
	}
	entry.Action = audit.Action(action)
	entry.Status = audit.Status(status)
	if len(rawDetails) > 0 {
		if err := json.Unmarshal(rawDetails, &entry.Details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
	}
	return &entry, nil
}
