package service

import (
	"context"
	"errors"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/requestcontext"
)

// Logout revokes the session bound to the bearer token. Revoking an
// already-revoked session is not an error: the caller's intent is already
// satisfied, so the operation succeeds without changing the ledger.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return err
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
			return models.NewError(models.KindSessionNotFound)
		}
		return err
	}

	alreadyRevoked := false
	err = s.callStore(ctx, false, func(ctx context.Context) error {
		return s.sessions.Revoke(ctx, sess.ID, now)
	})
	if err != nil {
		if !errors.Is(err, sentinel.ErrRevoked) {
			return err
		}
		alreadyRevoked = true
	}

	uid := sess.UserID
	s.emitAudit(ctx, &uid, audit.ActionLogout, audit.StatusSuccess, map[string]any{
		"username":        claims.Username,
		"session_id":      sess.ID.String(),
		"already_revoked": alreadyRevoked,
	})
	return nil
}
