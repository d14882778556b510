// Package registry is the authoritative player table. One goroutine owns
// the table; every operation is a command executed by that goroutine, so
// registrations, updates and disconnects from different connections are
// applied one at a time.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/shapesync/internal/dependencies/clock"
	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/outbox"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/storage"
)

// MaxNameLength is the longest display name kept, in runes
const MaxNameLength = 32

// Registry manages player identity, connection bindings and the broadcasts
// that follow from changing them
type Registry struct {
	storage storage.Storage
	outbox  outbox.Outbox
	clock   clock.Clock
	logger  *slog.Logger

	// owned by the Run goroutine once it starts
	players map[model.StableID]*model.PlayerRecord
	byConn  map[model.ConnID]model.StableID
	nextID  model.StableID

	cmds    chan func()
	stopped chan struct{}
}

// New creates a Registry. Call Load, then Run.
func New(
	storage storage.Storage,
	outbox outbox.Outbox,
	clock clock.Clock,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		storage: storage,
		outbox:  outbox,
		clock:   clock,
		logger:  logger.With(slog.String("component", "registry")),
		players: make(map[model.StableID]*model.PlayerRecord),
		byConn:  make(map[model.ConnID]model.StableID),
		nextID:  1,
		cmds:    make(chan func()),
		stopped: make(chan struct{}),
	}
}

// Load seeds the table from storage. It must complete before Run starts.
func (r *Registry) Load(ctx context.Context) error {
	players, err := r.storage.LoadPlayers(ctx)
	if err != nil {
		return fmt.Errorf("loading players: %w", err)
	}

	for _, p := range players {
		if p.ID == model.NoStableID {
			r.logger.Warn("skipping stored player without id", slog.String("name", p.Name))
			continue
		}
		p.LiveConn = model.NoConn
		if !p.Shape.Valid() {
			p.Shape = model.DefaultShape
		}
		r.players[p.ID] = p
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
	}

	r.logger.Info("players loaded",
		slog.Int("count", len(r.players)),
		slog.Uint64("next_id", uint64(r.nextID)))
	return nil
}

// Run executes commands until ctx is cancelled
func (r *Registry) Run(ctx context.Context) {
	defer close(r.stopped)

	r.logger.Info("registry started")
	for {
		select {
		case cmd := <-r.cmds:
			cmd()
		case <-ctx.Done():
			r.logger.Info("registry stopped")
			return
		}
	}
}

// do hands fn to the Run goroutine and waits for it to finish. ctx only
// bounds the hand-off.
func (r *Registry) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	select {
	case r.cmds <- func() { fn(); close(done) }:
	case <-r.stopped:
		return model.ErrRegistryClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done
	return nil
}

// Register binds conn to a player. A zero or unknown claimedID creates a new
// player; a known one is a reconnect that keeps the stored state and takes
// the name from this registration.
func (r *Registry) Register(ctx context.Context, claimedID model.StableID, name string, conn model.ConnID) (model.StableID, error) {
	var id model.StableID
	err := r.do(ctx, func() {
		id = r.register(ctx, claimedID, name, conn)
	})
	return id, err
}

func (r *Registry) register(ctx context.Context, claimedID model.StableID, name string, conn model.ConnID) model.StableID {
	name = cleanName(name)

	// a connection drives one player at a time
	if prev, ok := r.byConn[conn]; ok && prev != claimedID {
		r.unbind(ctx, conn)
	}

	rec, known := r.players[claimedID]
	isNew := claimedID == model.NoStableID || !known

	if isNew {
		rec = &model.PlayerRecord{
			ID:    r.nextID,
			Name:  name,
			Shape: model.DefaultShape,
		}
		r.nextID++
		if rec.Name == "" {
			rec.Name = fmt.Sprintf("Player_%d", rec.ID)
		}
		r.players[rec.ID] = rec
	} else {
		if rec.Online() && rec.LiveConn != conn {
			r.logger.Warn("player taken over by new connection",
				slog.Uint64("player_id", uint64(rec.ID)),
				slog.Uint64("old_conn", uint64(rec.LiveConn)),
				slog.Uint64("new_conn", uint64(conn)))
			delete(r.byConn, rec.LiveConn)
		}
		if name != "" {
			rec.Name = name
		}
	}

	rec.LiveConn = conn
	rec.LastSeen = r.clock.Now()
	r.byConn[conn] = rec.ID

	r.persist(ctx, rec)

	if isNew {
		r.outbox.SendTo(conn, &protocol.AssignID{ID: rec.ID})
	}
	r.outbox.Broadcast(&protocol.PlayerJoined{ID: rec.ID, Name: rec.Name})
	r.outbox.SendTo(conn, r.worldState(rec.ID, isNew))

	r.logger.Info("player registered",
		slog.Uint64("player_id", uint64(rec.ID)),
		slog.String("name", rec.Name),
		slog.Uint64("conn", uint64(conn)),
		slog.Bool("new", isNew))

	return rec.ID
}

// worldState snapshots every known record. A player created by this very
// registration has nothing to resynchronize and is left out.
func (r *Registry) worldState(caller model.StableID, callerIsNew bool) *protocol.WorldState {
	ws := &protocol.WorldState{Players: make([]protocol.WorldEntry, 0, len(r.players))}
	for _, p := range r.sorted() {
		if callerIsNew && p.ID == caller {
			continue
		}
		ws.Players = append(ws.Players, protocol.EntryFromRecord(p))
	}
	return ws
}

// ApplyUpdate stores a new position and shape sent by conn and echoes it to
// everyone, the sender included. Unknown ids return model.ErrPlayerNotFound;
// an id conn does not currently drive returns model.ErrNotBound. Neither
// changes anything.
func (r *Registry) ApplyUpdate(ctx context.Context, conn model.ConnID, id model.StableID, pos model.Vec2, shape model.Shape) error {
	var result error
	err := r.do(ctx, func() {
		result = r.applyUpdate(ctx, conn, id, pos, shape)
	})
	if err != nil {
		return err
	}
	return result
}

func (r *Registry) applyUpdate(ctx context.Context, conn model.ConnID, id model.StableID, pos model.Vec2, shape model.Shape) error {
	rec, ok := r.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if bound, ok := r.byConn[conn]; !ok || bound != id {
		return fmt.Errorf("%w: conn %d, player %d", model.ErrNotBound, conn, id)
	}
	if !shape.Valid() {
		return fmt.Errorf("%w: %d", model.ErrInvalidShape, uint8(shape))
	}

	rec.Position = pos
	rec.Shape = shape
	rec.LastSeen = r.clock.Now()

	r.persist(ctx, rec)
	r.outbox.Broadcast(&protocol.PlayerUpdate{ID: id, Position: pos, Shape: shape})
	return nil
}

// Unbind releases whatever player conn is bound to. Unbound connections
// are a no-op.
func (r *Registry) Unbind(ctx context.Context, conn model.ConnID) error {
	return r.do(ctx, func() {
		r.unbind(ctx, conn)
	})
}

func (r *Registry) unbind(ctx context.Context, conn model.ConnID) {
	id, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)

	rec := r.players[id]
	rec.LiveConn = model.NoConn
	rec.LastSeen = r.clock.Now()

	r.persist(ctx, rec)
	r.outbox.Broadcast(&protocol.PlayerLeft{ID: id})

	r.logger.Info("player left",
		slog.Uint64("player_id", uint64(id)),
		slog.Uint64("conn", uint64(conn)))
}

// Players returns a copy of every record, ordered by id
func (r *Registry) Players(ctx context.Context) ([]*model.PlayerRecord, error) {
	var players []*model.PlayerRecord
	err := r.do(ctx, func() {
		sorted := r.sorted()
		players = make([]*model.PlayerRecord, len(sorted))
		for i, p := range sorted {
			players[i] = p.Clone()
		}
	})
	return players, err
}

// Player returns a copy of one record
func (r *Registry) Player(ctx context.Context, id model.StableID) (*model.PlayerRecord, error) {
	var rec *model.PlayerRecord
	err := r.do(ctx, func() {
		if p, ok := r.players[id]; ok {
			rec = p.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, model.ErrPlayerNotFound
	}
	return rec, nil
}

func (r *Registry) sorted() []*model.PlayerRecord {
	players := make([]*model.PlayerRecord, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// persist writes rec; failures leave the in-memory table authoritative
func (r *Registry) persist(ctx context.Context, rec *model.PlayerRecord) {
	if err := r.storage.SavePlayer(ctx, rec); err != nil {
		r.logger.Error("failed to persist player",
			slog.Uint64("player_id", uint64(rec.ID)),
			slog.Any("error", err))
	}
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}
