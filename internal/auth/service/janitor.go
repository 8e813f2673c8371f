package service

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger removes session rows whose expiry plus retention has
// passed. Stores with native TTL may implement this as a no-op.
type SessionPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// AuditPurger enforces the audit retention window.
type AuditPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

const (
	defaultSweepInterval    = time.Hour
	defaultSessionRetention = 24 * time.Hour
	defaultAuditRetention   = 90 * 24 * time.Hour
)

// Janitor periodically purges expired sessions and aged audit rows.
// Revoked-but-unexpired sessions are kept: they are evidence, not garbage.
type Janitor struct {
	sessions         SessionPurger
	auditStore       AuditPurger
	logger           *slog.Logger
	interval         time.Duration
	sessionRetention time.Duration
	auditRetention   time.Duration
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithSweepInterval sets how often the janitor runs.
func WithSweepInterval(interval time.Duration) JanitorOption {
	return func(j *Janitor) {
		if interval > 0 {
			j.interval = interval
		}
	}
}

// WithSessionRetention sets how long expired sessions are kept before
// deletion.
func WithSessionRetention(retention time.Duration) JanitorOption {
	return func(j *Janitor) {
		if retention > 0 {
			j.sessionRetention = retention
		}
	}
}

// WithAuditRetention sets the audit retention window.
func WithAuditRetention(retention time.Duration) JanitorOption {
	return func(j *Janitor) {
		if retention > 0 {
			j.auditRetention = retention
		}
	}
}

// NewJanitor constructs the maintenance sweeper.
func NewJanitor(sessions SessionPurger, auditStore AuditPurger, logger *slog.Logger, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		sessions:         sessions,
		auditStore:       auditStore,
		logger:           logger,
		interval:         defaultSweepInterval,
		sessionRetention: defaultSessionRetention,
		auditRetention:   defaultAuditRetention,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run sweeps on the configured interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass. Failures are logged and do not stop future
// sweeps.
func (j *Janitor) Sweep(ctx context.Context) {
	now := time.Now()

	if j.sessions != nil {
		purged, err := j.sessions.DeleteExpired(ctx, now.Add(-j.sessionRetention))
		if err != nil {
			j.logger.ErrorContext(ctx, "session purge failed", "error", err)
		} else if purged > 0 {
			j.logger.InfoContext(ctx, "purged expired sessions", "count", purged)
		}
	}

	if j.auditStore != nil {
		purged, err := j.auditStore.PurgeOlderThan(ctx, now.Add(-j.auditRetention))
		if err != nil {
			j.logger.ErrorContext(ctx, "audit purge failed", "error", err)
		} else if purged > 0 {
			j.logger.InfoContext(ctx, "purged aged audit entries", "count", purged)
		}
	}
}
