// Package client is the player side of the synchronizer: it connects to a
// server, keeps a table of every known entity and smooths the remote ones
// toward their latest reported positions.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/transport"
)

var (
	ErrAlreadyConnecting = errors.New("session already connecting or connected")
	ErrNotConnected      = errors.New("session not connected")
)

// State is the connection state of a Session
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind identifies a session event
type EventKind int

const (
	// EventStateChanged reports a new connection state
	EventStateChanged EventKind = iota
	// EventConnectFailed reports a failed connection attempt. It is
	// followed by a change back to StateDisconnected.
	EventConnectFailed
	// EventIdentity reports the stable id the server assigned
	EventIdentity
)

// Event is delivered on Session.Events for the UI
type Event struct {
	Kind  EventKind
	State State
	ID    model.StableID
	Err   error
}

// Entity is one player as this client sees it. Position is what is drawn;
// Target is the latest position the server reported.
type Entity struct {
	ID       model.StableID
	Name     string
	Position model.Vec2
	Target   model.Vec2
	Shape    model.Shape
	Local    bool
}

// Config tunes a Session
type Config struct {
	SmoothingRate float64
	DialTimeout   time.Duration
}

// DefaultConfig returns the standard smoothing rate and dial timeout
func DefaultConfig() Config {
	return Config{
		SmoothingRate: DefaultSmoothingRate,
		DialTimeout:   5 * time.Second,
	}
}

const eventBuffer = 32

// Session is one client connection and the entity table it maintains.
// Network I/O runs on its own goroutines; Tick, Entities and SendUpdate are
// safe to call from a render loop and never block on the network.
type Session struct {
	dialer   transport.Dialer
	profiles ProfileStore
	cfg      Config
	logger   *slog.Logger
	events   chan Event

	// serializes profile writes, which happen without mu held
	saveMu   sync.Mutex
	savedVer uint64

	mu      sync.Mutex
	state   State
	conn    transport.Conn
	cancel  context.CancelFunc
	gen     uint64
	profile model.Profile
	// bumped on every profile change
	profileVer uint64
	// nil until the server confirms or assigns an identity
	entities map[model.StableID]*Entity
}

// NewSession creates a disconnected session using the stored profile
func NewSession(dialer transport.Dialer, profiles ProfileStore, cfg Config, logger *slog.Logger) (*Session, error) {
	profile, err := profiles.Load()
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if cfg.SmoothingRate <= 0 {
		cfg.SmoothingRate = DefaultSmoothingRate
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultConfig().DialTimeout
	}

	return &Session{
		dialer:   dialer,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "session")),
		events:   make(chan Event, eventBuffer),
		profile:  profile,
		entities: make(map[model.StableID]*Entity),
	}, nil
}

// Events delivers state changes and connection failures. Events are
// dropped if nobody reads them.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current connection state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns the local identity
func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Connect starts a connection attempt in the background. The name is
// stored in the profile immediately. It fails if an attempt is already in
// progress or the session is connected.
func (s *Session) Connect(addr, name string) error {
	s.mu.Lock()

	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyConnecting
	}

	var save *profileSave
	if name != "" && name != s.profile.Name {
		s.profile.Name = name
		ps := s.profileChanged()
		save = &ps
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
	s.gen++
	s.cancel = cancel
	s.setState(StateConnecting)

	go s.dial(ctx, s.gen, addr)
	s.mu.Unlock()

	if save != nil {
		s.saveProfile(*save)
	}
	return nil
}

func (s *Session) dial(ctx context.Context, gen uint64, addr string) {
	conn, err := s.dialer.Dial(ctx, addr)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		// abandoned by Disconnect
		if conn != nil {
			conn.Close()
		}
		return
	}
	s.cancel()
	s.cancel = nil

	if err != nil {
		s.logger.Warn("connection failed", slog.String("addr", addr), slog.Any("error", err))
		s.emit(Event{Kind: EventConnectFailed, State: StateDisconnected, Err: err})
		s.setState(StateDisconnected)
		return
	}

	s.conn = conn
	s.setState(StateConnected)
	s.logger.Info("connected", slog.String("addr", addr), slog.Uint64("claimed_id", uint64(s.profile.StableID)))

	go s.readLoop(conn, gen)

	s.send(conn, &protocol.RegisterPlayer{ClaimedID: s.profile.StableID, Name: s.profile.Name})
}

func (s *Session) readLoop(conn transport.Conn, gen uint64) {
	v := &sessionVisitor{s: s}
	for {
		data, err := conn.Recv()
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				s.logger.Debug("receive failed", slog.Any("error", err))
			}
			break
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			s.logger.Debug("ignoring malformed frame", slog.Any("error", err))
			continue
		}

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		msg.Accept(v)
		s.mu.Unlock()

		if v.save != nil {
			s.saveProfile(*v.save)
			v.save = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.logger.Info("connection lost")
		s.reset()
	}
}

// Disconnect closes the connection or abandons a pending attempt, clears
// the entity table and returns to StateDisconnected. It is safe in any state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// reset performs Disconnect with s.mu held
func (s *Session) reset() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	clear(s.entities)
	if s.state != StateDisconnected {
		s.setState(StateDisconnected)
	}
}

// SendUpdate moves the local entity and reports it to the server. It does
// not wait for delivery.
func (s *Session) SendUpdate(pos model.Vec2, shape model.Shape) error {
	if !shape.Valid() {
		return fmt.Errorf("%w: %d", model.ErrInvalidShape, uint8(shape))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.localEntity()
	if s.state != StateConnected || local == nil {
		return ErrNotConnected
	}
	local.Position = pos
	local.Target = pos
	local.Shape = shape

	return s.send(s.conn, &protocol.PlayerUpdate{ID: local.ID, Position: pos, Shape: shape})
}

// Tick advances smoothing of every remote entity by dt seconds. The local
// entity only moves through SendUpdate.
func (s *Session) Tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entities {
		if e.Local {
			continue
		}
		e.Position = Approach(e.Position, e.Target, s.cfg.SmoothingRate, dt)
	}
}

// Entities returns a copy of the entity table ordered by id
func (s *Session) Entities() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Local returns a copy of the entity this client controls
func (s *Session) Local() (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.localEntity(); e != nil {
		return *e, true
	}
	return Entity{}, false
}

func (s *Session) localEntity() *Entity {
	if s.profile.StableID == model.NoStableID {
		return nil
	}
	e := s.entities[s.profile.StableID]
	if e == nil || !e.Local {
		return nil
	}
	return e
}

func (s *Session) send(conn transport.Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Kind(), err)
	}
	if err := conn.Send(protocol.ChannelOf(msg.Kind()), data); err != nil {
		s.logger.Debug("send failed", slog.String("kind", msg.Kind().String()), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *Session) setState(state State) {
	s.state = state
	s.emit(Event{Kind: EventStateChanged, State: state})
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

// profileSave is a profile snapshot waiting to be written
type profileSave struct {
	profile model.Profile
	ver     uint64
}

// profileChanged records a profile change with s.mu held and returns the
// snapshot to pass to saveProfile once s.mu is released
func (s *Session) profileChanged() profileSave {
	s.profileVer++
	return profileSave{profile: s.profile, ver: s.profileVer}
}

// saveProfile writes ps unless a newer snapshot was already written. It
// must not be called with s.mu held. A failure only costs identity on the
// next run, so it is logged.
func (s *Session) saveProfile(ps profileSave) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if ps.ver <= s.savedVer {
		return
	}
	if err := s.profiles.Save(ps.profile); err != nil {
		s.logger.Warn("failed to save profile", slog.Any("error", err))
		return
	}
	s.savedVer = ps.ver
}
