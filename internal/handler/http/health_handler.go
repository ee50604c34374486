package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.handleHealth)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Health check failed")
		respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "degraded",
			Message: "Database unavailable",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "Backend API is running",
	})
}
