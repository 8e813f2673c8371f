package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"authgate/internal/audit"
	id "authgate/pkg/domain"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/httputil"
)

// AuditService exposes the audit trail query surface.
type AuditService interface {
	Query(ctx context.Context, filter audit.Filter) (*audit.Page, error)
}

// AuditHandler serves the admin-only audit query endpoint.
type AuditHandler struct {
	logger *slog.Logger
	audit  AuditService
	auth   AuthService
}

// NewAuditHandler creates the audit handler.
func NewAuditHandler(auditSvc AuditService, auth AuthService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{logger: logger, audit: auditSvc, auth: auth}
}

// Register mounts the audit routes.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit/entries", h.handleQuery)
}

func (h *AuditHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.auth.ValidateToken(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if claims.Role != "admin" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit query failed", "error", err.Error())
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit query failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func parseFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	var filter audit.Filter

	if raw := q.Get("user_id"); raw != "" {
		uid, err := id.ParseUserID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid user_id")
		}
		filter.UserID = &uid
	}
	filter.Action = audit.Action(q.Get("action"))
	filter.Status = audit.Status(q.Get("status"))
	filter.IP = q.Get("ip")

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid from timestamp")
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid to timestamp")
		}
		filter.To = &t
	}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid page")
		}
		filter.Page = n
	}
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid per_page")
		}
		filter.PerPage = n
	}
	return filter, nil
}
