package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/shapesync/internal/api/apierr"
	"github.com/mcoot/shapesync/internal/api/response"
	"github.com/mcoot/shapesync/internal/model"
)

// PlayerSource reads the registry
type PlayerSource interface {
	Players(ctx context.Context) ([]*model.PlayerRecord, error)
	Player(ctx context.Context, id model.StableID) (*model.PlayerRecord, error)
}

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	players PlayerSource
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players PlayerSource) *PlayerHandler {
	return &PlayerHandler{players: players}
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.Players(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerListFromModel(players))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		apierr.WriteError(w, apierr.NewInvalidRequestError("id must be a positive integer"))
		return
	}

	player, err := h.players.Player(r.Context(), model.StableID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}
