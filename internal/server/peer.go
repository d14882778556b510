package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/transport"
)

// Size of each connection's outgoing queue
const sendQueueSize = 256

type frame struct {
	ch   protocol.Channel
	data []byte
}

// peer is one accepted connection. Frames queue in out and a dedicated
// goroutine writes them, so a slow connection never blocks whoever is
// broadcasting.
type peer struct {
	conn        transport.Conn
	logger      *slog.Logger
	connectedAt time.Time

	out       chan frame
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(conn transport.Conn, logger *slog.Logger) *peer {
	return &peer{
		conn:        conn,
		logger:      logger.With(slog.Uint64("conn", uint64(conn.ID()))),
		connectedAt: time.Now(),
		out:         make(chan frame, sendQueueSize),
		done:        make(chan struct{}),
	}
}

func (p *peer) id() model.ConnID {
	return p.conn.ID()
}

// enqueue hands a frame to the write pump. A full queue drops best-effort
// frames; a peer that cannot keep up with reliable frames is disconnected,
// since skipping one would break in-order delivery.
func (p *peer) enqueue(f frame) {
	if p.closing.Load() {
		return
	}

	select {
	case p.out <- f:
	default:
		if f.ch == protocol.BestEffort {
			p.logger.Debug("best-effort frame dropped - send queue full")
			return
		}
		p.logger.Warn("closing connection - reliable send queue full")
		p.close()
	}
}

// writePump runs until the peer is closed
func (p *peer) writePump() {
	for {
		select {
		case f := <-p.out:
			if err := p.conn.Send(f.ch, f.data); err != nil {
				p.logger.Debug("send failed", slog.Any("error", err))
				p.close()
				return
			}
		case <-p.done:
			return
		}
	}
}

// close marks the peer as closing and shuts the connection. The read loop
// observes the closed connection and performs the unbind.
func (p *peer) close() {
	p.closeOnce.Do(func() {
		p.closing.Store(true)
		close(p.done)
		if err := p.conn.Close(); err != nil {
			p.logger.Debug("error closing connection", slog.Any("error", err))
		}
	})
}
