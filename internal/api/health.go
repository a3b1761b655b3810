package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo  Pinger
	cache Pinger
}

// NewHealthHandler creates a health handler. cache may be nil when the
// context cache is not configured.
func NewHealthHandler(repo, cache Pinger) *HealthHandler {
	return &HealthHandler{repo: repo, cache: cache}
}

// Health returns the health status of the daemon and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	statusCode := http.StatusOK
	overall := "healthy"

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "dependency", "database", "error", err)
		checks["database"] = "unreachable"
		overall = "degraded"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			// A dead cache degrades context continuity but turns still
			// work, so the daemon stays healthy.
			slog.Warn("Health check failed", "dependency", "cache", "error", err)
			checks["cache"] = "unreachable"
		} else {
			checks["cache"] = "ok"
		}
	}

	JSON(w, statusCode, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
