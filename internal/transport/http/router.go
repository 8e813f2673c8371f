// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to domain services, and encode; business logic stays in the service
// packages.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authgate/pkg/platform/httputil"
	"authgate/pkg/platform/middleware/requesttime"
)

// HealthChecker reports liveness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router bundles the transport dependencies.
type Router struct {
	logger *slog.Logger
	health []HealthChecker
}

// NewRouter wires all endpoints.
func NewRouter(logger *slog.Logger, auth *AuthHandler, audit *AuditHandler, health ...HealthChecker) http.Handler {
	rt := &Router{logger: logger, health: health}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(requesttime.Middleware)

	auth.Register(r)
	if audit != nil {
		audit.Register(r)
	}

	r.Get("/healthz", rt.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, checker := range rt.health {
		if checker == nil {
			continue
		}
		if err := checker.Health(r.Context()); err != nil {
			rt.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
