// Package api provides HTTP handlers for the assistant daemon.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SahiDemon/Aiden-sub001/internal/assistant"
	"github.com/SahiDemon/Aiden-sub001/internal/config"
	"github.com/SahiDemon/Aiden-sub001/internal/executor"
	"github.com/SahiDemon/Aiden-sub001/internal/registry"
	"github.com/SahiDemon/Aiden-sub001/internal/store"
)

// Pinger is a collaborator the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides common handler dependencies.
type Handler struct {
	bridge     *assistant.Bridge
	orch       *assistant.Orchestrator
	repo       store.Repository
	cache      Pinger
	registry   *registry.Registry
	dispatcher executor.Dispatcher
	cfg        *config.Config
}

// NewHandler creates a Handler with common dependencies. cache and
// dispatcher may be nil when the backing services are disabled.
func NewHandler(
	bridge *assistant.Bridge,
	orch *assistant.Orchestrator,
	repo store.Repository,
	cache Pinger,
	reg *registry.Registry,
	dispatcher executor.Dispatcher,
	cfg *config.Config,
) *Handler {
	return &Handler{
		bridge:     bridge,
		orch:       orch,
		repo:       repo,
		cache:      cache,
		registry:   reg,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
