// Package protocol defines the fixed set of messages exchanged between the
// server and its clients, the channel each one travels on, and their
// binary encoding.
package protocol

import "github.com/mcoot/shapesync/internal/model"

// Kind identifies a message type on the wire
type Kind uint8

const (
	KindRegisterPlayer Kind = iota + 1
	KindAssignID
	KindPlayerJoined
	KindPlayerLeft
	KindPlayerUpdate
	KindWorldState
)

func (k Kind) String() string {
	switch k {
	case KindRegisterPlayer:
		return "register_player"
	case KindAssignID:
		return "assign_id"
	case KindPlayerJoined:
		return "player_joined"
	case KindPlayerLeft:
		return "player_left"
	case KindPlayerUpdate:
		return "player_update"
	case KindWorldState:
		return "world_state"
	default:
		return "unknown"
	}
}

// Channel is the delivery guarantee a message travels with
type Channel uint8

const (
	// Reliable delivers in order, exactly once per connection
	Reliable Channel = iota
	// BestEffort may drop, duplicate or reorder; receivers treat it as latest-value state
	BestEffort
)

func (c Channel) String() string {
	if c == BestEffort {
		return "best_effort"
	}
	return "reliable"
}

// ChannelOf returns the channel a kind is sent on
func ChannelOf(k Kind) Channel {
	if k == KindPlayerUpdate {
		return BestEffort
	}
	return Reliable
}

// Message is one of the catalog types below. The set is closed: Accept
// forces every Visitor to handle each kind.
type Message interface {
	Kind() Kind
	Accept(v Visitor)
}

// Visitor handles every message kind. Adding a kind adds a method here,
// so each handler has to decide what to do with it.
type Visitor interface {
	VisitRegisterPlayer(m *RegisterPlayer)
	VisitAssignID(m *AssignID)
	VisitPlayerJoined(m *PlayerJoined)
	VisitPlayerLeft(m *PlayerLeft)
	VisitPlayerUpdate(m *PlayerUpdate)
	VisitWorldState(m *WorldState)
}

// RegisterPlayer is sent by a client right after connecting.
// ClaimedID is model.NoStableID on first contact.
type RegisterPlayer struct {
	ClaimedID model.StableID
	Name      string
}

// AssignID tells a client the stable identity it was just given
type AssignID struct {
	ID model.StableID
}

// PlayerJoined announces a (re)registered player to everyone
type PlayerJoined struct {
	ID   model.StableID
	Name string
}

// PlayerLeft announces that a player's connection went away
type PlayerLeft struct {
	ID model.StableID
}

// PlayerUpdate carries the latest position and shape of one player
type PlayerUpdate struct {
	ID       model.StableID
	Position model.Vec2
	Shape    model.Shape
}

// WorldEntry is one player inside a WorldState snapshot
type WorldEntry struct {
	ID       model.StableID
	Name     string
	Position model.Vec2
	Shape    model.Shape
}

// WorldState is a full snapshot sent to a single client on registration
type WorldState struct {
	Players []WorldEntry
}

func (*RegisterPlayer) Kind() Kind { return KindRegisterPlayer }
func (*AssignID) Kind() Kind       { return KindAssignID }
func (*PlayerJoined) Kind() Kind   { return KindPlayerJoined }
func (*PlayerLeft) Kind() Kind     { return KindPlayerLeft }
func (*PlayerUpdate) Kind() Kind   { return KindPlayerUpdate }
func (*WorldState) Kind() Kind     { return KindWorldState }

func (m *RegisterPlayer) Accept(v Visitor) { v.VisitRegisterPlayer(m) }
func (m *AssignID) Accept(v Visitor)       { v.VisitAssignID(m) }
func (m *PlayerJoined) Accept(v Visitor)   { v.VisitPlayerJoined(m) }
func (m *PlayerLeft) Accept(v Visitor)     { v.VisitPlayerLeft(m) }
func (m *PlayerUpdate) Accept(v Visitor)   { v.VisitPlayerUpdate(m) }
func (m *WorldState) Accept(v Visitor)     { v.VisitWorldState(m) }

// EntryFromRecord converts a registry record into a snapshot entry
func EntryFromRecord(p *model.PlayerRecord) WorldEntry {
	return WorldEntry{
		ID:       p.ID,
		Name:     p.Name,
		Position: p.Position,
		Shape:    p.Shape,
	}
}
