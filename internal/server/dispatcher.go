// Package server accepts connections, decodes their messages and hands them
// to the player registry. It is also the registry's outbox: everything the
// registry says is encoded here and queued on the right connections.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/outbox"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/transport"
)

// unbindTimeout bounds the registry call made after a connection drops
const unbindTimeout = 2 * time.Second

// Registry is the subset of the player registry the dispatcher drives
type Registry interface {
	Register(ctx context.Context, claimedID model.StableID, name string, conn model.ConnID) (model.StableID, error)
	ApplyUpdate(ctx context.Context, conn model.ConnID, id model.StableID, pos model.Vec2, shape model.Shape) error
	Unbind(ctx context.Context, conn model.ConnID) error
}

// Config holds dispatcher limits
type Config struct {
	// PlayerLimit caps open connections. Zero or less means unlimited.
	PlayerLimit int
}

// Dispatcher routes messages between connections and the registry
type Dispatcher struct {
	registry Registry
	cfg      Config
	logger   *slog.Logger

	mu    sync.RWMutex
	peers map[model.ConnID]*peer

	wg sync.WaitGroup
}

var _ outbox.Outbox = (*Dispatcher)(nil)

// New creates a dispatcher. SetRegistry must be called before Serve when
// the registry is built with this dispatcher as its outbox.
func New(registry Registry, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "dispatcher")),
		peers:    make(map[model.ConnID]*peer),
	}
}

// SetRegistry sets the registry messages are forwarded to
func (d *Dispatcher) SetRegistry(registry Registry) {
	d.registry = registry
}

// Serve accepts connections until ctx is cancelled or the listener fails,
// then closes every connection and waits for their goroutines.
func (d *Dispatcher) Serve(ctx context.Context, l transport.Listener) error {
	d.logger.Info("dispatcher listening", slog.String("addr", l.Addr().String()))

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	var serveErr error
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				break
			}
			d.logger.Error("accept failed", slog.Any("error", err))
			serveErr = err
			break
		}
		d.accept(ctx, conn)
	}

	d.closeAll()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
	return serveErr
}

func (d *Dispatcher) accept(ctx context.Context, conn transport.Conn) {
	p := newPeer(conn, d.logger)

	d.mu.Lock()
	if d.cfg.PlayerLimit > 0 && len(d.peers) >= d.cfg.PlayerLimit {
		d.mu.Unlock()
		p.logger.Warn("connection refused - player limit reached",
			slog.String("remote", conn.RemoteAddr().String()),
			slog.Int("limit", d.cfg.PlayerLimit))
		p.close()
		return
	}
	d.peers[p.id()] = p
	count := len(d.peers)
	d.mu.Unlock()

	p.logger.Info("connection opened",
		slog.String("remote", conn.RemoteAddr().String()),
		slog.Int("total_connections", count))

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		p.writePump()
	}()
	go func() {
		defer d.wg.Done()
		d.readLoop(ctx, p)
	}()
}

// readLoop handles one connection's inbound frames in arrival order
func (d *Dispatcher) readLoop(ctx context.Context, p *peer) {
	h := &handler{ctx: ctx, d: d, p: p}
	for {
		data, err := p.conn.Recv()
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				p.logger.Debug("receive failed", slog.Any("error", err))
			}
			break
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			p.logger.Debug("ignoring malformed frame", slog.Any("error", err), slog.Int("size", len(data)))
			continue
		}
		msg.Accept(h)
	}

	d.drop(ctx, p)
}

// drop forgets a connection and releases its player
func (d *Dispatcher) drop(ctx context.Context, p *peer) {
	p.close()

	d.mu.Lock()
	delete(d.peers, p.id())
	count := len(d.peers)
	d.mu.Unlock()

	unbindCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unbindTimeout)
	defer cancel()
	if err := d.registry.Unbind(unbindCtx, p.id()); err != nil {
		p.logger.Debug("unbind failed", slog.Any("error", err))
	}

	p.logger.Info("connection closed",
		slog.Duration("connection_duration", time.Since(p.connectedAt)),
		slog.Int("total_connections", count))
}

func (d *Dispatcher) closeAll() {
	d.mu.RLock()
	peers := make([]*peer, 0, len(d.peers))
	for _, p := range d.peers {
		peers = append(peers, p)
	}
	d.mu.RUnlock()

	for _, p := range peers {
		p.close()
	}
}

// ConnCount reports how many connections are open
func (d *Dispatcher) ConnCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}

// SendTo queues msg for a single connection
func (d *Dispatcher) SendTo(conn model.ConnID, msg protocol.Message) {
	f, ok := d.encode(msg)
	if !ok {
		return
	}

	d.mu.RLock()
	p := d.peers[conn]
	d.mu.RUnlock()

	if p == nil {
		d.logger.Debug("send to unknown connection",
			slog.Uint64("conn", uint64(conn)),
			slog.String("kind", msg.Kind().String()))
		return
	}
	p.enqueue(f)
}

// Broadcast queues msg for every open connection
func (d *Dispatcher) Broadcast(msg protocol.Message) {
	f, ok := d.encode(msg)
	if !ok {
		return
	}

	d.mu.RLock()
	peers := make([]*peer, 0, len(d.peers))
	for _, p := range d.peers {
		peers = append(peers, p)
	}
	d.mu.RUnlock()

	for _, p := range peers {
		p.enqueue(f)
	}
}

func (d *Dispatcher) encode(msg protocol.Message) (frame, bool) {
	data, err := protocol.Encode(msg)
	if err != nil {
		d.logger.Error("failed to encode message",
			slog.String("kind", msg.Kind().String()),
			slog.Any("error", err))
		return frame{}, false
	}
	return frame{ch: protocol.ChannelOf(msg.Kind()), data: data}, true
}
