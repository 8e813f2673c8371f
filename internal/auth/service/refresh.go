package service

import (
	"context"
	"errors"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/requestcontext"
)

// Refresh exchanges a live session for a fresh token and session row. The
// old session is revoked before the new one is created, so a captured
// token cannot be refreshed twice.
func (s *Service) Refresh(ctx context.Context, token string) (*models.AuthenticateResult, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var sess *models.Session
	err = s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		sess, err = s.sessions.FindByToken(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.NewError(models.KindSessionNotFound)
		}
		return nil, err
	}
	if sess.IsRevoked() {
		return nil, models.NewError(models.KindSessionRevoked)
	}
	if !sess.ValidAt(now) {
		return nil, models.NewError(models.KindTokenExpired)
	}

	userID, err := claims.SubjectID()
	if err != nil {
		return nil, models.WrapError(models.KindTokenInvalid, err)
	}

	var user *models.User
	err = s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.NewError(models.KindAccountNotFound)
		}
		return nil, err
	}
	if !user.Active {
		return nil, models.NewError(models.KindAccountInactive)
	}

	// Revoke first. Two racing refreshes of the same token then produce at
	// most one new session: the loser observes the revocation and fails.
	err = s.callStore(ctx, false, func(ctx context.Context) error {
		return s.sessions.Revoke(ctx, sess.ID, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrRevoked) {
			return nil, models.NewError(models.KindSessionRevoked)
		}
		return nil, err
	}

	newToken, expiresAt, err := s.tokens.Issue(user.ID, user.Username, user.Role, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "token issuance failed", "error", err, "user_id", user.ID)
		return nil, models.WrapError(models.KindDependencyUnavailable, err)
	}

	newSess := &models.Session{
		ID:        id.NewSessionID(),
		UserID:    user.ID,
		Token:     newToken,
		IPAddress: requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	err = s.callStore(ctx, false, func(ctx context.Context) error {
		return s.sessions.Create(ctx, newSess)
	})
	if err != nil {
		return nil, err
	}

	uid := user.ID
	s.emitAudit(ctx, &uid, audit.ActionRefresh, audit.StatusSuccess, map[string]any{
		"username":       user.Username,
		"old_session_id": sess.ID.String(),
		"new_session_id": newSess.ID.String(),
	})

	return &models.AuthenticateResult{
		Token:            newToken,
		ExpiresInSeconds: int(s.tokens.TTL().Seconds()),
		User:             user.Summary(),
	}, nil
}
