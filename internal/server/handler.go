package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
)

// handler applies messages from one connection
type handler struct {
	ctx context.Context
	d   *Dispatcher
	p   *peer
}

var _ protocol.Visitor = (*handler)(nil)

// Update rights follow the registry's connection bindings

func (h *handler) VisitRegisterPlayer(m *protocol.RegisterPlayer) {
	if _, err := h.d.registry.Register(h.ctx, m.ClaimedID, m.Name, h.p.id()); err != nil {
		h.p.logger.Warn("register failed", slog.Any("error", err))
	}
}

func (h *handler) VisitPlayerUpdate(m *protocol.PlayerUpdate) {
	err := h.d.registry.ApplyUpdate(h.ctx, h.p.id(), m.ID, m.Position, m.Shape)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotBound):
		h.p.logger.Debug("ignoring update for a player this connection does not drive",
			slog.Uint64("player_id", uint64(m.ID)))
	case errors.Is(err, model.ErrPlayerNotFound), errors.Is(err, model.ErrInvalidShape):
		h.p.logger.Debug("update dropped", slog.Any("error", err))
	default:
		h.p.logger.Warn("update failed", slog.Any("error", err))
	}
}

// Server-to-client kinds are never valid inbound

func (h *handler) VisitAssignID(m *protocol.AssignID)         { h.unexpected(m) }
func (h *handler) VisitPlayerJoined(m *protocol.PlayerJoined) { h.unexpected(m) }
func (h *handler) VisitPlayerLeft(m *protocol.PlayerLeft)     { h.unexpected(m) }
func (h *handler) VisitWorldState(m *protocol.WorldState)     { h.unexpected(m) }

func (h *handler) unexpected(m protocol.Message) {
	h.p.logger.Debug("ignoring unexpected message", slog.String("kind", m.Kind().String()))
}
