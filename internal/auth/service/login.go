package service

import (
	"context"
	"errors"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	"authgate/internal/auth/password"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/requestcontext"
)

// Authenticate runs the login state machine:
// LOOKUP → LOCK_CHECK → VERIFY → RESET_COUNTERS → ISSUE_TOKEN →
// CREATE_SESSION. Exactly one audit entry is emitted per terminal state.
//
// An unknown username and a wrong password return the same
// InvalidCredentials error, so callers cannot enumerate accounts.
func (s *Service) Authenticate(ctx context.Context, req *models.AuthenticateRequest) (*models.AuthenticateResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var user *models.User
	err := s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByUsername(ctx, req.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.loginFailure(ctx, nil, "unknown_username")
			return nil, models.NewError(models.KindInvalidCredentials)
		}
		return nil, err
	}

	decision := s.policy.Evaluate(user.FailedAttempts, user.LockedUntil, now)
	if decision.Locked {
		s.loginFailure(ctx, user, "account_locked")
		return nil, models.NewLockedError(decision.RetryAfter)
	}

	if !user.Active {
		s.loginFailure(ctx, user, "account_inactive")
		return nil, models.NewError(models.KindAccountInactive)
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, s.recordFailedAttempt(ctx, user)
	}

	err = s.callStore(ctx, true, func(ctx context.Context) error {
		return s.users.ResetFailedAttempts(ctx, user.ID, now)
	})
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, user.Role, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "token issuance failed", "error", err, "user_id", user.ID)
		return nil, models.WrapError(models.KindDependencyUnavailable, err)
	}

	sess := &models.Session{
		ID:        id.NewSessionID(),
		UserID:    user.ID,
		Token:     token,
		IPAddress: requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	err = s.callStore(ctx, false, func(ctx context.Context) error {
		return s.sessions.Create(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	uid := user.ID
	s.emitAudit(ctx, &uid, audit.ActionLogin, audit.StatusSuccess, map[string]any{
		"username":   user.Username,
		"session_id": sess.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncLoginSuccess()
	}

	return &models.AuthenticateResult{
		Token:            token,
		ExpiresInSeconds: int(s.tokens.TTL().Seconds()),
		User:             user.Summary(),
	}, nil
}

// recordFailedAttempt increments the failure counter atomically and
// engages the lock at the threshold crossing. The increment is not
// retried: an ambiguous outcome must not become a double count.
func (s *Service) recordFailedAttempt(ctx context.Context, user *models.User) error {
	now := requestcontext.Now(ctx)

	var updated *models.User
	err := s.callStore(ctx, false, func(ctx context.Context) error {
		var err error
		updated, err = s.users.IncrementFailures(ctx, user.ID)
		return err
	})
	if err != nil {
		return err
	}

	if until := s.policy.OnFailure(updated.FailedAttempts, now); until != nil {
		var engaged bool
		lockErr := s.callStore(ctx, false, func(ctx context.Context) error {
			var err error
			engaged, err = s.users.ApplyLock(ctx, user.ID, *until, now)
			return err
		})
		if lockErr != nil {
			return lockErr
		}
		if engaged {
			uid := user.ID
			s.emitAudit(ctx, &uid, audit.ActionLockoutEngaged, audit.StatusFailure, map[string]any{
				"failed_attempts": updated.FailedAttempts,
				"locked_until":    until,
			})
			if s.metrics != nil {
				s.metrics.IncLockoutEngaged()
			}
			s.loginFailure(ctx, user, "account_locked")
			return models.NewLockedError(until.Sub(now))
		}
	}

	s.loginFailure(ctx, user, "invalid_password")
	return models.NewError(models.KindInvalidCredentials)
}

func (s *Service) loginFailure(ctx context.Context, user *models.User, reason string) {
	details := map[string]any{"reason": reason}
	var uid *id.UserID
	if user != nil {
		u := user.ID
		uid = &u
		details["username"] = user.Username
	}
	s.emitAudit(ctx, uid, audit.ActionLogin, audit.StatusFailure, details)
	if s.metrics != nil {
		s.metrics.IncLoginFailure(reason)
	}
}
