// Package service implements the authentication orchestrator. It
// coordinates the credential store, lockout policy, token issuer, session
// ledger, and audit recorder behind the four inbound operations:
// Authenticate, Logout, Refresh, and ChangePassword.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"authgate/internal/audit"
	"authgate/internal/auth/lockout"
	"authgate/internal/auth/models"
	jwttoken "authgate/internal/jwt_token"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AuditPublisher

// UserStore is the credential store surface the orchestrator needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	IncrementFailures(ctx context.Context, userID id.UserID) (*models.User, error)
	ApplyLock(ctx context.Context, userID id.UserID, until, now time.Time) (bool, error)
	ResetFailedAttempts(ctx context.Context, userID id.UserID, loginAt time.Time) error
	SetPasswordHash(ctx context.Context, userID id.UserID, hash string, now time.Time) error
}

// SessionStore is the session ledger surface the orchestrator needs.
type SessionStore interface {
	Create(ctx context.Context, sess *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	Revoke(ctx context.Context, sessionID id.SessionID, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID id.UserID, exceptToken string, now time.Time) (int, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
}

// TokenIssuer creates and verifies signed bearer tokens.
type TokenIssuer interface {
	Issue(userID id.UserID, username, role string, now time.Time) (string, time.Time, error)
	Verify(token string) (*jwttoken.Claims, error)
	TTL() time.Duration
}

// AuditPublisher accepts audit entries; it must never block or fail the
// primary operation.
type AuditPublisher interface {
	Emit(ctx context.Context, entry *audit.Entry)
}

// Metrics receives authentication counters. Implementations are optional.
type Metrics interface {
	IncLoginSuccess()
	IncLoginFailure(reason string)
	IncLockoutEngaged()
	AddSessionsRevoked(n int)
}

const (
	defaultStoreTimeout = 3 * time.Second
	storeRetryBackoff   = 100 * time.Millisecond
)

// Service is the authentication orchestrator.
type Service struct {
	users        UserStore
	sessions     SessionStore
	tokens       TokenIssuer
	policy       lockout.Policy
	auditor      AuditPublisher
	metrics      Metrics
	logger       *slog.Logger
	storeTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLockoutPolicy overrides the default lockout parameters.
func WithLockoutPolicy(policy lockout.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithStoreTimeout bounds each store call.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.storeTimeout = timeout
		}
	}
}

// New constructs the orchestrator. Users, sessions, and tokens are
// required; the rest default to no-ops.
func New(users UserStore, sessions SessionStore, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}

	svc := &Service{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		policy:       lockout.New(0, 0),
		logger:       slog.Default(),
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// callStore runs a store operation under a bounded timeout. Dependency
// failures get exactly one retry with backoff when the operation is
// idempotent; persistent failure surfaces as DependencyUnavailable and
// the attempt fails closed.
func (s *Service) callStore(ctx context.Context, idempotent bool, fn func(ctx context.Context) error) error {
	err := s.callOnce(ctx, fn)
	if err == nil || isDomainFact(err) {
		return err
	}
	if idempotent {
		select {
		case <-ctx.Done():
			return models.WrapError(models.KindDependencyUnavailable, ctx.Err())
		case <-time.After(storeRetryBackoff):
		}
		if err = s.callOnce(ctx, fn); err == nil || isDomainFact(err) {
			return err
		}
	}
	s.logger.ErrorContext(ctx, "store call failed", "error", err)
	return models.WrapError(models.KindDependencyUnavailable, err)
}

func (s *Service) callOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(callCtx)
}

// isDomainFact reports whether err is a factual store outcome rather than
// a dependency failure. Facts are never retried.
func isDomainFact(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrRevoked) ||
		errors.Is(err, sentinel.ErrExpired)
}

// emitAudit sends one entry to the audit recorder, if configured.
func (s *Service) emitAudit(ctx context.Context, userID *id.UserID, action audit.Action, status audit.Status, details map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, &audit.Entry{
		UserID:   userID,
		Action:   action,
		Resource: "auth",
		Status:   status,
		Details:  details,
	})
}
