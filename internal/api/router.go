package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/shapesync/internal/api/apierr"
	"github.com/mcoot/shapesync/internal/api/handler"
	"github.com/mcoot/shapesync/internal/api/middleware"
	"github.com/mcoot/shapesync/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Players handler.PlayerSource
	Hub     *sse.Hub
	// Connections reports open game connections; optional
	Connections handler.Counter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.Players)
	healthHandler := handler.NewHealthHandler(cfg.Connections, cfg.Hub.ClientCount)
	eventsHandler := handler.NewEventsHandler(cfg.Hub)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.NotFoundHandler = http.HandlerFunc(apierr.NotFound)

	api := r.PathPrefix("/api/v1").Subrouter()
	// mux only reports a method mismatch from a subrouter that has its own handler
	api.MethodNotAllowedHandler = http.HandlerFunc(apierr.MethodNotAllowed)
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)

	return r
}
