// Package jwttoken issues and verifies signed bearer tokens.
//
// Tokens are HS256-signed with a server-held secret. Claims are
// tamper-evident but not confidential; never place secrets in them.
// Verification is local and synchronous; session liveness is the ledger's
// job, not this package's.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
)

// DefaultTTL applies when the configured TTL is non-positive.
const DefaultTTL = time.Hour

// Claims are the authenticated identity assertions embedded in a token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// New constructs a token service. ttl falls back to DefaultTTL.
func New(signingKey, issuer string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for the user and returns it with its absolute expiry.
func (s *Service) Issue(userID id.UserID, username, role string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID.String(),
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning its claims. Failures are
// typed: KindTokenExpired for an elapsed expiry, KindTokenInvalid for a
// malformed token or bad signature.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.WrapError(models.KindTokenExpired, err)
		}
		return nil, models.WrapError(models.KindTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, models.NewError(models.KindTokenInvalid)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, models.NewError(models.KindTokenInvalid)
	}
	return claims, nil
}

// SubjectID extracts the typed user ID from verified claims.
func (c *Claims) SubjectID() (id.UserID, error) {
	return id.ParseUserID(c.UserID)
}
