// Package transport abstracts the connection layer under the dispatcher and
// the client session: framed datagrams on a reliable and a best-effort
// channel, identified by a per-process connection id.
package transport

import (
	"context"
	"errors"
	"net"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
)

var (
	// ErrClosed is returned by operations on a closed Conn or Listener
	ErrClosed = errors.New("transport: closed")
	// ErrDialTimeout is returned when the server did not answer the handshake in time
	ErrDialTimeout = errors.New("transport: server unreachable")
)

// Conn is one peer. Send and Recv may be called from different goroutines;
// Recv itself has a single reader.
type Conn interface {
	ID() model.ConnID
	// Send queues one frame without waiting for delivery
	Send(ch protocol.Channel, frame []byte) error
	// Recv blocks until the next frame arrives or the connection closes
	Recv() ([]byte, error)
	Close() error
	RemoteAddr() net.Addr
}

// Listener accepts inbound connections
type Listener interface {
	Accept() (Conn, error)
	Close() error
	Addr() net.Addr
}

// Dialer opens outbound connections
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}
