// Package rudptransport carries frames over UDP using the mt reliable-UDP
// implementation. Reliable frames travel on channel 0 with retransmission,
// best-effort frames on channel 1 as unreliable packets.
package rudptransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/anon55555/mt/rudp"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/transport"
)

// DefaultDialTimeout bounds the handshake when ctx has no deadline
const DefaultDialTimeout = 5 * time.Second

const (
	reliableChannel   = 0
	bestEffortChannel = 1
)

// handshake is the first reliable packet a client sends. Its ack proves the
// server is there. Decoders never see it: kind 0 is not a message kind.
var handshake = []byte{0}

var connIDs atomic.Uint64

func nextConnID() model.ConnID {
	return model.ConnID(connIDs.Add(1))
}

// Listener accepts rudp peers on a UDP socket
type Listener struct {
	pc       net.PacketConn
	listener *rudp.Listener
}

var _ transport.Listener = (*Listener)(nil)

// Listen opens a UDP socket on addr
func Listen(addr string) (*Listener, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &Listener{pc: pc, listener: rudp.Listen(pc)}, nil
}

// Accept waits for the next peer. Keep calling it until it returns
// transport.ErrClosed so the underlying reader does not leak.
func (l *Listener) Accept() (transport.Conn, error) {
	c, err := l.listener.Accept()
	if err != nil {
		return nil, mapErr(err)
	}
	return newConn(c), nil
}

func (l *Listener) Close() error {
	return l.listener.Close()
}

func (l *Listener) Addr() net.Addr {
	return l.pc.LocalAddr()
}

// Dialer connects to rudp listeners
type Dialer struct {
	// Timeout applies when the dial context has no deadline
	Timeout time.Duration
}

var _ transport.Dialer = (*Dialer)(nil)

// Dial connects to addr and waits for the server to acknowledge the
// handshake. The socket is closed on every failure path.
func (d *Dialer) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		timeout := d.Timeout
		if timeout <= 0 {
			timeout = DefaultDialTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var nd net.Dialer
	udp, err := nd.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	rc := rudp.Connect(udp)
	ack, err := rc.Send(rudp.Pkt{
		Reader:  bytes.NewReader(handshake),
		PktInfo: rudp.PktInfo{Channel: reliableChannel},
	})
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("sending handshake to %s: %w", addr, mapErr(err))
	}

	select {
	case <-ack:
		return newConn(rc), nil
	case <-rc.Closed():
		return nil, fmt.Errorf("%w: %s closed the connection", transport.ErrDialTimeout, addr)
	case <-ctx.Done():
		rc.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", transport.ErrDialTimeout, addr)
		}
		return nil, ctx.Err()
	}
}

// Conn wraps one rudp peer
type Conn struct {
	id   model.ConnID
	conn *rudp.Conn
}

var _ transport.Conn = (*Conn)(nil)

func newConn(c *rudp.Conn) *Conn {
	return &Conn{id: nextConnID(), conn: c}
}

func (c *Conn) ID() model.ConnID {
	return c.id
}

func (c *Conn) Send(ch protocol.Channel, frame []byte) error {
	info := rudp.PktInfo{Channel: reliableChannel}
	if ch == protocol.BestEffort {
		info = rudp.PktInfo{Channel: bestEffortChannel, Unrel: true}
	}

	_, err := c.conn.Send(rudp.Pkt{
		Reader:  bytes.NewReader(frame),
		PktInfo: info,
	})
	return mapErr(err)
}

func (c *Conn) Recv() ([]byte, error) {
	for {
		pkt, err := c.conn.Recv()
		if err != nil {
			return nil, mapErr(err)
		}

		frame, err := io.ReadAll(pkt)
		if err != nil {
			return nil, mapErr(err)
		}
		if isHandshake(frame) {
			continue
		}
		return frame, nil
	}
}

func (c *Conn) Close() error {
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func isHandshake(frame []byte) bool {
	return len(frame) == 0 || bytes.Equal(frame, handshake)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, net.ErrClosed) {
		return transport.ErrClosed
	}
	return err
}
