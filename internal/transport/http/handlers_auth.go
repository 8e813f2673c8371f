package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"authgate/internal/auth/models"
	jwttoken "authgate/internal/jwt_token"
	id "authgate/pkg/domain"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/httputil"
)

// AuthService is the orchestrator surface the transport needs.
type AuthService interface {
	Authenticate(ctx context.Context, req *models.AuthenticateRequest) (*models.AuthenticateResult, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*models.AuthenticateResult, error)
	ChangePassword(ctx context.Context, userID id.UserID, req *models.ChangePasswordRequest) error
	ValidateToken(ctx context.Context, token string) (*jwttoken.Claims, error)
	ListSessions(ctx context.Context, userID id.UserID) ([]*models.Session, error)
	LogoutOthers(ctx context.Context, userID id.UserID, currentToken string) (int, error)
}

// AuthHandler handles the authentication endpoints.
type AuthHandler struct {
	logger *slog.Logger
	auth   AuthService
}

// NewAuthHandler creates the authentication handler.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/password", h.handleChangePassword)
	r.Get("/auth/sessions", h.handleListSessions)
	r.Post("/auth/sessions/revoke-others", h.handleRevokeOthers)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.auth.Authenticate(r.Context(), &req)
	if err != nil {
		h.logFailure(r, "login failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.logFailure(r, "logout failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.logFailure(r, "refresh failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, _, err := h.authenticated(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	userID, err := claims.SubjectID()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, &req); err != nil {
		h.logFailure(r, "password change failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionView is the caller-facing projection of a session. Raw tokens
// never leave the server after issuance.
type sessionView struct {
	ID        id.SessionID `json:"id"`
	IPAddress string       `json:"ip_address"`
	UserAgent string       `json:"user_agent"`
	Device    string       `json:"device"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	RevokedAt *time.Time   `json:"revoked_at,omitempty"`
	Current   bool         `json:"current"`
}

// deviceLabel condenses the stored User-Agent into a short label so
// callers can recognize their sessions at a glance.
func deviceLabel(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	switch {
	case browser != "" && osName != "":
		return browser + " on " + osName
	case browser != "":
		return browser
	default:
		return raw
	}
}

func (h *AuthHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims, token, err := h.authenticated(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	userID, err := claims.SubjectID()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessions, err := h.auth.ListSessions(r.Context(), userID)
	if err != nil {
		h.logFailure(r, "list sessions failed", err)
		httputil.WriteError(w, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:        s.ID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			Device:    deviceLabel(s.UserAgent),
			IssuedAt:  s.IssuedAt,
			ExpiresAt: s.ExpiresAt,
			RevokedAt: s.RevokedAt,
			Current:   s.Token == token,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (h *AuthHandler) handleRevokeOthers(w http.ResponseWriter, r *http.Request) {
	claims, token, err := h.authenticated(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	userID, err := claims.SubjectID()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	revoked, err := h.auth.LogoutOthers(r.Context(), userID, token)
	if err != nil {
		h.logFailure(r, "revoke others failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"sessions_revoked": revoked})
}

// authenticated extracts the bearer token and verifies it against both the
// signature and the session ledger.
func (h *AuthHandler) authenticated(r *http.Request) (*jwttoken.Claims, string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, "", err
	}
	claims, err := h.auth.ValidateToken(r.Context(), token)
	if err != nil {
		return nil, "", err
	}
	return claims, token, nil
}

func (h *AuthHandler) logFailure(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg, "error", err.Error(), "path", r.URL.Path)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header")
	}
	return token, nil
}
