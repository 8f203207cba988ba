package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger is the readiness surface of the transcript archive.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves readiness probes. Liveness is handled by the chi
// Heartbeat middleware on /health.
type HealthHandler struct {
	archive Pinger
}

// NewHealthHandler creates a health handler. archive may be nil when the
// transcript store is disabled.
func NewHealthHandler(archive Pinger) *HealthHandler {
	return &HealthHandler{archive: archive}
}

// RegisterHealth mounts the readiness route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health/ready", h.handleReady)
}

func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.archive.Ping(ctx); err != nil {
			JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "transcript archive unreachable",
			})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
