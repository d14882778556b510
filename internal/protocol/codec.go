package protocol

import (
	"errors"
	"fmt"

	"github.com/mcoot/shapesync/internal/model"
)

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrMalformed   = errors.New("malformed message")
)

// MaxWorldEntries bounds the size of one snapshot on the wire
const MaxWorldEntries = 0xffff

// Encode serializes a message as [kind:1][payload]
func Encode(m Message) ([]byte, error) {
	w := newWriter(m.Kind())

	switch m := m.(type) {
	case *RegisterPlayer:
		w.uint32(uint32(m.ClaimedID))
		w.string16(m.Name)
	case *AssignID:
		w.uint32(uint32(m.ID))
	case *PlayerJoined:
		w.uint32(uint32(m.ID))
		w.string16(m.Name)
	case *PlayerLeft:
		w.uint32(uint32(m.ID))
	case *PlayerUpdate:
		w.uint32(uint32(m.ID))
		w.vec2(m.Position)
		w.uint8(uint8(m.Shape))
	case *WorldState:
		if len(m.Players) > MaxWorldEntries {
			return nil, fmt.Errorf("world state has %d entries, max %d", len(m.Players), MaxWorldEntries)
		}
		w.uint16(uint16(len(m.Players)))
		for _, p := range m.Players {
			w.uint32(uint32(p.ID))
			w.string16(p.Name)
			w.vec2(p.Position)
			w.uint8(uint8(p.Shape))
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}

	if w.err != nil {
		return nil, w.err
	}
	return w.bytes(), nil
}

// Decode parses a frame produced by Encode
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}

	r := newReader(data[1:])
	var m Message

	switch Kind(data[0]) {
	case KindRegisterPlayer:
		m = &RegisterPlayer{
			ClaimedID: model.StableID(r.uint32()),
			Name:      r.string16(),
		}
	case KindAssignID:
		m = &AssignID{ID: model.StableID(r.uint32())}
	case KindPlayerJoined:
		m = &PlayerJoined{
			ID:   model.StableID(r.uint32()),
			Name: r.string16(),
		}
	case KindPlayerLeft:
		m = &PlayerLeft{ID: model.StableID(r.uint32())}
	case KindPlayerUpdate:
		m = &PlayerUpdate{
			ID:       model.StableID(r.uint32()),
			Position: r.vec2(),
			Shape:    model.Shape(r.uint8()),
		}
	case KindWorldState:
		n := int(r.uint16())
		ws := &WorldState{Players: make([]WorldEntry, 0, n)}
		for i := 0; i < n && r.err == nil; i++ {
			ws.Players = append(ws.Players, WorldEntry{
				ID:       model.StableID(r.uint32()),
				Name:     r.string16(),
				Position: r.vec2(),
				Shape:    model.Shape(r.uint8()),
			})
		}
		m = ws
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, data[0])
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, Kind(data[0]), r.err)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrMalformed, Kind(data[0]), r.remaining())
	}
	return m, nil
}
