package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"authgate/internal/audit"
	auditmem "authgate/internal/audit/store/memory"
	"authgate/internal/auth/lockout"
	"authgate/internal/auth/models"
	"authgate/internal/auth/password"
	"authgate/internal/auth/service"
	sessionstore "authgate/internal/auth/store/session"
	userstore "authgate/internal/auth/store/user"
	jwttoken "authgate/internal/jwt_token"
	id "authgate/pkg/domain"
)

const testPassword = "correct-horse-battery"

// The transport suite runs against the real orchestrator over in-memory
// stores, so handler tests cover decode, delegate, and encode end to end.
type AuthHandlerSuite struct {
	suite.Suite
	users      *userstore.InMemoryStore
	auditStore *auditmem.InMemoryStore
	server     http.Handler
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.users = userstore.New()
	s.auditStore = auditmem.New()
	sessions := sessionstore.New()
	tokens := jwttoken.New("test-signing-key", "authgate-test", time.Hour)

	svc, err := service.New(s.users, sessions, tokens,
		service.WithLogger(logger),
		service.WithLockoutPolicy(lockout.New(5, 15*time.Minute)),
	)
	s.Require().NoError(err)

	authHandler := NewAuthHandler(svc, logger)
	auditHandler := NewAuditHandler(s.auditStore, svc, logger)
	s.server = NewRouter(logger, authHandler, auditHandler)
}

func (s *AuthHandlerSuite) seedUser(username, role string) {
	hash, err := password.Hash(testPassword)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), &models.User{
		ID:           id.NewUserID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}))
}

func (s *AuthHandlerSuite) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.server.ServeHTTP(w, req)
	return w
}

func (s *AuthHandlerSuite) login(username, pw string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, pw)
	return s.do(http.MethodPost, "/auth/login", body, "")
}

func (s *AuthHandlerSuite) loginToken(username string) string {
	w := s.login(username, testPassword)
	s.Require().Equal(http.StatusOK, w.Code)
	var result models.AuthenticateResult
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&result))
	return result.Token
}

func (s *AuthHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
	return body
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("valid credentials return a token", func() {
		s.seedUser("alice", "user")
		w := s.login("alice", testPassword)

		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.NotEmpty(body["token"])
		s.EqualValues(3600, body["expires_in_seconds"])
	})

	s.Run("wrong password and unknown user share one response", func() {
		s.seedUser("bob", "user")
		wrong := s.login("bob", "wrong")
		unknown := s.login("nobody", "wrong")

		s.Equal(http.StatusUnauthorized, wrong.Code)
		s.Equal(http.StatusUnauthorized, unknown.Code)
		s.Equal(wrong.Body.String(), unknown.Body.String())
	})

	s.Run("lockout returns 423 with retry-after", func() {
		s.seedUser("carol", "user")
		var w *httptest.ResponseRecorder
		for i := 0; i < 5; i++ {
			w = s.login("carol", "wrong")
		}

		s.Equal(http.StatusLocked, w.Code)
		s.Equal("900", w.Header().Get("Retry-After"))
		body := s.decode(w)
		s.Equal("account_locked", body["error"])
	})

	s.Run("malformed body is a 400", func() {
		w := s.do(http.MethodPost, "/auth/login", "{bad-json", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing username is a validation error", func() {
		w := s.do(http.MethodPost, "/auth/login", `{"password":"x"}`, "")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("validation", s.decode(w)["error"])
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	s.Run("logout revokes the session", func() {
		s.seedUser("alice", "user")
		token := s.loginToken("alice")

		s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/auth/logout", "", token).Code)

		w := s.do(http.MethodGet, "/auth/sessions", "", token)
		s.Equal(http.StatusUnauthorized, w.Code)
		s.Equal("session_revoked", s.decode(w)["error"])
	})

	s.Run("double logout stays successful", func() {
		s.seedUser("bob", "user")
		token := s.loginToken("bob")

		s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/auth/logout", "", token).Code)
		s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/auth/logout", "", token).Code)
	})

	s.Run("missing bearer is a 401", func() {
		w := s.do(http.MethodPost, "/auth/logout", "", "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *AuthHandlerSuite) TestRefresh() {
	s.Run("refresh rotates the session", func() {
		s.seedUser("alice", "user")
		token := s.loginToken("alice")

		w := s.do(http.MethodPost, "/auth/refresh", "", token)
		s.Equal(http.StatusOK, w.Code)
		fresh := s.decode(w)["token"].(string)
		s.NotEqual(token, fresh)

		// The old token is spent.
		s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/auth/refresh", "", token).Code)
		s.Equal(http.StatusOK, s.do(http.MethodGet, "/auth/sessions", "", fresh).Code)
	})
}

func (s *AuthHandlerSuite) TestChangePassword() {
	s.Run("change revokes the caller's sessions", func() {
		s.seedUser("alice", "user")
		token := s.loginToken("alice")

		body := fmt.Sprintf(`{"current_password":%q,"new_password":"brand-new-secret"}`, testPassword)
		s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/auth/password", body, token).Code)

		s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/auth/sessions", "", token).Code)
		s.Equal(http.StatusUnauthorized, s.login("alice", testPassword).Code)
		s.Equal(http.StatusOK, s.login("alice", "brand-new-secret").Code)
	})

	s.Run("wrong current password is a 401", func() {
		s.seedUser("bob", "user")
		token := s.loginToken("bob")

		body := `{"current_password":"wrong","new_password":"brand-new-secret"}`
		w := s.do(http.MethodPost, "/auth/password", body, token)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *AuthHandlerSuite) TestSessions() {
	s.Run("listing never exposes raw tokens", func() {
		s.seedUser("alice", "user")
		first := s.loginToken("alice")
		second := s.loginToken("alice")

		w := s.do(http.MethodGet, "/auth/sessions", "", second)
		s.Equal(http.StatusOK, w.Code)
		s.NotContains(w.Body.String(), first)
		s.NotContains(w.Body.String(), second)

		body := s.decode(w)
		views := body["sessions"].([]any)
		s.Len(views, 2)
		s.Equal(true, views[0].(map[string]any)["current"])
	})

	s.Run("device label derives from the stored user agent", func() {
		s.seedUser("carla", "user")

		body := fmt.Sprintf(`{"username":%q,"password":%q}`, "carla", testPassword)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		w := httptest.NewRecorder()
		s.server.ServeHTTP(w, req)
		s.Require().Equal(http.StatusOK, w.Code)
		var result models.AuthenticateResult
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&result))

		list := s.do(http.MethodGet, "/auth/sessions", "", result.Token)
		s.Require().Equal(http.StatusOK, list.Code)
		views := s.decode(list)["sessions"].([]any)
		s.Require().Len(views, 1)
		device := views[0].(map[string]any)["device"].(string)
		s.Contains(device, "Chrome")
		s.Contains(device, "Windows")
	})

	s.Run("revoke-others keeps only the caller's session", func() {
		s.seedUser("bob", "user")
		first := s.loginToken("bob")
		second := s.loginToken("bob")

		w := s.do(http.MethodPost, "/auth/sessions/revoke-others", "", second)
		s.Equal(http.StatusOK, w.Code)
		s.EqualValues(1, s.decode(w)["sessions_revoked"])

		s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/auth/sessions", "", first).Code)
		s.Equal(http.StatusOK, s.do(http.MethodGet, "/auth/sessions", "", second).Code)
	})
}

func (s *AuthHandlerSuite) TestAuditEndpoint() {
	seedEntry := func(action audit.Action) {
		s.Require().NoError(s.auditStore.Append(context.Background(), &audit.Entry{
			ID:        id.NewAuditID(),
			Action:    action,
			Status:    audit.StatusSuccess,
			CreatedAt: time.Now(),
		}))
	}

	s.Run("non-admin is forbidden", func() {
		s.seedUser("alice", "user")
		token := s.loginToken("alice")

		w := s.do(http.MethodGet, "/audit/entries", "", token)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("admin can filter the trail", func() {
		s.seedUser("root", "admin")
		token := s.loginToken("root")
		seedEntry(audit.ActionLogin)
		seedEntry(audit.ActionLogout)

		w := s.do(http.MethodGet, "/audit/entries?action=logout", "", token)
		s.Equal(http.StatusOK, w.Code)
		s.EqualValues(1, s.decode(w)["total"])
	})

	s.Run("bad filter values are rejected", func() {
		s.seedUser("admin2", "admin")
		token := s.loginToken("admin2")

		w := s.do(http.MethodGet, "/audit/entries?user_id=not-a-uuid", "", token)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *AuthHandlerSuite) TestHealthAndMetrics() {
	s.Run("healthz reports ok", func() {
		w := s.do(http.MethodGet, "/healthz", "", "")
		s.Equal(http.StatusOK, w.Code)
		s.Equal("ok", s.decode(w)["status"])
	})

	s.Run("metrics endpoint is mounted", func() {
		w := s.do(http.MethodGet, "/metrics", "", "")
		s.Equal(http.StatusOK, w.Code)
	})
}
