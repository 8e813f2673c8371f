package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth/models"
	id "authgate/pkg/domain"
)

func newTestService(ttl time.Duration) *Service {
	return New("test-signing-key", "authgate-test", ttl)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(time.Hour)
	userID := id.UserID(uuid.New())
	now := time.Now()

	t.Run("round trip returns claims unchanged", func(t *testing.T) {
		token, expiresAt, err := svc.Issue(userID, "admin", "admin", now)
		require.NoError(t, err)
		assert.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "authgate-test", claims.Issuer)

		subject, err := claims.SubjectID()
		require.NoError(t, err)
		assert.Equal(t, userID, subject)
	})

	t.Run("each token carries a unique JTI", func(t *testing.T) {
		first, _, err := svc.Issue(userID, "admin", "admin", now)
		require.NoError(t, err)
		second, _, err := svc.Issue(userID, "admin", "admin", now)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestVerifyFailures(t *testing.T) {
	svc := newTestService(time.Hour)
	userID := id.UserID(uuid.New())

	t.Run("expired token returns KindTokenExpired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		token, _, err := svc.Issue(userID, "admin", "admin", past)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindTokenExpired))
	})

	t.Run("malformed token returns KindTokenInvalid", func(t *testing.T) {
		_, err := svc.Verify("not.a.token")
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindTokenInvalid))
	})

	t.Run("token signed with a different key is invalid", func(t *testing.T) {
		other := New("other-key", "authgate-test", time.Hour)
		token, _, err := other.Issue(userID, "admin", "admin", time.Now())
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindTokenInvalid))
	})
}

func TestNewDefaults(t *testing.T) {
	t.Run("non-positive ttl falls back to an hour", func(t *testing.T) {
		svc := newTestService(0)
		assert.Equal(t, DefaultTTL, svc.TTL())
	})
}
