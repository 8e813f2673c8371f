package service

import (
	"context"
	"errors"

	"authgate/internal/audit"
	"authgate/internal/auth/models"
	jwttoken "authgate/internal/jwt_token"
	id "authgate/pkg/domain"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/requestcontext"
)

// ValidateToken performs the dual check: the signature must verify and the
// session must still be live in the ledger. A token that passes signature
// verification but has been revoked is rejected.
func (s *Service) ValidateToken(ctx context.Context, token string) (*jwttoken.Claims, error) {
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
	return claims, nil
}

// ListSessions returns the user's sessions, newest first, including
// revoked and expired rows so the caller can audit device history.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	var sessions []*models.Session
	err := s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		sessions, err = s.sessions.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// LogoutOthers revokes every live session of the user except the one
// holding currentToken. Returns the number of sessions revoked.
func (s *Service) LogoutOthers(ctx context.Context, userID id.UserID, currentToken string) (int, error) {
	now := requestcontext.Now(ctx)

	var revoked int
	err := s.callStore(ctx, true, func(ctx context.Context) error {
		var err error
		revoked, err = s.sessions.RevokeAllForUser(ctx, userID, currentToken, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	uid := userID
	s.emitAudit(ctx, &uid, audit.ActionSessionsRevoked, audit.StatusSuccess, map[string]any{
		"sessions_revoked": revoked,
	})
	if s.metrics != nil {
		s.metrics.AddSessionsRevoked(revoked)
	}
	return revoked, nil
}
