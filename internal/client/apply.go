package client

import (
	"log/slog"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
)

// sessionVisitor applies server messages to the entity table. Every method
// runs with Session.mu held.
type sessionVisitor struct {
	s *Session
	// written by the read loop after s.mu is released
	save *profileSave
}

var _ protocol.Visitor = (*sessionVisitor)(nil)

func (v *sessionVisitor) VisitAssignID(m *protocol.AssignID) {
	s := v.s
	if s.profile.StableID != m.ID {
		// a stale claim that the server did not recognise
		if old, ok := s.entities[s.profile.StableID]; ok && old.Local {
			delete(s.entities, s.profile.StableID)
		}
		s.profile.StableID = m.ID
		ps := s.profileChanged()
		v.save = &ps
	}
	s.ensureLocal()
	s.emit(Event{Kind: EventIdentity, State: s.state, ID: m.ID})
	s.logger.Info("identity assigned", slog.Uint64("player_id", uint64(m.ID)))
}

// VisitWorldState replaces the table. The local entity keeps its
// client-side position when the server has no record of it yet.
func (v *sessionVisitor) VisitWorldState(m *protocol.WorldState) {
	s := v.s
	var carried *Entity
	if local := s.localEntity(); local != nil {
		c := *local
		carried = &c
	}

	clear(s.entities)
	for _, w := range m.Players {
		s.entities[w.ID] = &Entity{
			ID:       w.ID,
			Name:     w.Name,
			Position: w.Position,
			Target:   w.Position,
			Shape:    w.Shape,
			Local:    w.ID == s.profile.StableID,
		}
	}

	if carried != nil {
		if _, ok := s.entities[carried.ID]; !ok {
			s.entities[carried.ID] = carried
		}
	}
	s.ensureLocal()
}

// VisitPlayerJoined refreshes the name of a known entity without moving it
func (v *sessionVisitor) VisitPlayerJoined(m *protocol.PlayerJoined) {
	s := v.s
	if e, ok := s.entities[m.ID]; ok {
		e.Name = m.Name
		return
	}
	s.entities[m.ID] = &Entity{
		ID:    m.ID,
		Name:  m.Name,
		Shape: model.DefaultShape,
		Local: m.ID == s.profile.StableID,
	}
}

func (v *sessionVisitor) VisitPlayerLeft(m *protocol.PlayerLeft) {
	s := v.s
	if e, ok := s.entities[m.ID]; ok && !e.Local {
		delete(s.entities, m.ID)
	}
}

// VisitPlayerUpdate retargets a remote entity. Echoes of the local entity
// are ignored since input owns its position.
func (v *sessionVisitor) VisitPlayerUpdate(m *protocol.PlayerUpdate) {
	s := v.s
	e, ok := s.entities[m.ID]
	if !ok {
		s.entities[m.ID] = &Entity{
			ID:       m.ID,
			Position: m.Position,
			Target:   m.Position,
			Shape:    m.Shape,
		}
		return
	}
	if e.Local {
		return
	}
	e.Target = m.Position
	e.Shape = m.Shape
}

func (v *sessionVisitor) VisitRegisterPlayer(m *protocol.RegisterPlayer) {
	v.s.logger.Debug("ignoring unexpected message", slog.String("kind", m.Kind().String()))
}

// ensureLocal creates the local entity at the origin once an identity
// is known and the table lacks it
func (s *Session) ensureLocal() {
	id := s.profile.StableID
	if id == model.NoStableID {
		return
	}
	if e, ok := s.entities[id]; ok {
		e.Local = true
		return
	}
	s.entities[id] = &Entity{
		ID:    id,
		Name:  s.profile.Name,
		Shape: model.DefaultShape,
		Local: true,
	}
}
