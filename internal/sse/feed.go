package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/outbox"
	"github.com/mcoot/shapesync/internal/protocol"
)

// Event names on the spectator stream
const (
	EventAssigned = "player-assigned"
	EventJoined   = "player-joined"
	EventLeft     = "player-left"
	EventUpdate   = "player-update"
)

// PlayerEvent is the JSON payload of every spectator event
type PlayerEvent struct {
	ID       model.StableID `json:"id"`
	Name     string         `json:"name,omitempty"`
	Position *model.Vec2    `json:"position,omitempty"`
	Shape    model.Shape    `json:"shape,omitempty"`
}

// Feed turns registry output into spectator events. Snapshots addressed to
// a single connection are not forwarded; spectators fetch the player list
// over the API instead.
type Feed struct {
	hub    *Hub
	logger *slog.Logger
}

var _ outbox.Outbox = (*Feed)(nil)

// NewFeed creates a Feed publishing to hub
func NewFeed(hub *Hub, logger *slog.Logger) *Feed {
	return &Feed{
		hub:    hub,
		logger: logger.With(slog.String("component", "sse-feed")),
	}
}

func (f *Feed) SendTo(conn model.ConnID, msg protocol.Message) {
	if m, ok := msg.(*protocol.AssignID); ok {
		f.publish(EventAssigned, PlayerEvent{ID: m.ID})
	}
}

func (f *Feed) Broadcast(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.PlayerJoined:
		f.publish(EventJoined, PlayerEvent{ID: m.ID, Name: m.Name})
	case *protocol.PlayerLeft:
		f.publish(EventLeft, PlayerEvent{ID: m.ID})
	case *protocol.PlayerUpdate:
		pos := m.Position
		f.publish(EventUpdate, PlayerEvent{ID: m.ID, Position: &pos, Shape: m.Shape})
	}
}

func (f *Feed) publish(name string, ev PlayerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.logger.Error("sse failed to encode event",
			slog.String("event", name),
			slog.Any("error", err))
		return
	}
	f.hub.BroadcastEvent(name, string(data))
}
