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

// ChangePassword verifies the current secret, installs the new hash, and
// revokes every live session of the user. The caller must obtain a fresh
// token afterwards.
//
// A wrong current password does not feed the lockout counter: the caller
// already holds a valid token, so this is not a guessing surface for an
// unauthenticated attacker.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, req *models.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	var user *models.User
	err := s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewError(models.KindAccountNotFound)
		}
		return err
	}

	if !password.Verify(req.CurrentPassword, user.PasswordHash) {
		uid := user.ID
		s.emitAudit(ctx, &uid, audit.ActionPasswordChanged, audit.StatusFailure, map[string]any{
			"username": user.Username,
			"reason":   "invalid_current_password",
		})
		return models.NewError(models.KindInvalidCredentials)
	}

	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		s.logger.ErrorContext(ctx, "password hashing failed", "error", err, "user_id", user.ID)
		return models.WrapError(models.KindDependencyUnavailable, err)
	}

	err = s.callStore(ctx, false, func(ctx context.Context) error {
		return s.users.SetPasswordHash(ctx, user.ID, hash, now)
	})
	if err != nil {
		return err
	}

	var revoked int
	err = s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		revoked, err = s.sessions.RevokeAllForUser(ctx, user.ID, "", now)
		return err
	})
	if err != nil {
		// The hash is already installed. Surface the failure so the caller
		// retries the revocation rather than assuming sessions are dead.
		return err
	}

	uid := user.ID
	s.emitAudit(ctx, &uid, audit.ActionPasswordChanged, audit.StatusSuccess, map[string]any{
		"username":         user.Username,
		"sessions_revoked": revoked,
	})
	if s.metrics != nil {
		s.metrics.AddSessionsRevoked(revoked)
	}
	return nil
}
