package handler

import (
	"net/http"

	"github.com/mcoot/shapesync/internal/api/response"
)

// Counter reports a live count
type Counter func() int

// HealthHandler reports liveness and connection counts
type HealthHandler struct {
	connections Counter
	spectators  Counter
}

// NewHealthHandler creates a health handler. Nil counters report zero.
func NewHealthHandler(connections, spectators Counter) *HealthHandler {
	return &HealthHandler{connections: connections, spectators: spectators}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:      "ok",
		Connections: count(h.connections),
		Spectators:  count(h.spectators),
	})
}

func count(c Counter) int {
	if c == nil {
		return 0
	}
	return c()
}
