package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"meralcocli/pkg/contracts"
)

// HealthHandler reports process health and store fill level.
type HealthHandler struct {
	store     RatesReader
	logger    *slog.Logger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store RatesReader, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		logger:    logger.With(slog.String("handler", "health")),
		startedAt: time.Now(),
	}
}

// HealthCheck handles GET /healthz. The process is healthy as soon as
// it serves; "degraded" means the store has no payloads yet, which is
// normal between startup and the first successful refresh.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	var latest string
	if payload, ok := h.store.Latest(); ok {
		latest = payload.Period.String()
	} else {
		status = "degraded"
	}

	render.JSON(w, r, map[string]interface{}{
		"status":         status,
		"periods_loaded": h.store.Len(),
		"latest_period":  latest,
		"uptime":         time.Since(h.startedAt).String(),
		"version":        contracts.Version,
	})
}

// Version handles GET /version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
