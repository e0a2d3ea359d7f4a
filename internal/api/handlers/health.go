package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/askdocs/internal/api"
)

const healthTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Health reports ok when the passage store answers a ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		api.Success(w, http.StatusOK, HealthResponse{Status: "ok", Store: "unknown"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		api.JSON(w, http.StatusServiceUnavailable, api.SuccessResponse{
			Data: HealthResponse{Status: "degraded", Store: "unavailable"},
		})
		return
	}

	api.Success(w, http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
}
