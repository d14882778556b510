// Package memtransport is an in-process transport for tests. Frames are
// delivered in order on both channels; nothing is dropped unless a queue
// overflows on the best-effort channel.
package memtransport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/transport"
)

const queueSize = 256

// Network is a namespace of listeners addressable by name. It also serves
// as the Dialer.
type Network struct {
	mu        sync.Mutex
	listeners map[string]*Listener
	nextConn  atomic.Uint64
}

var _ transport.Dialer = (*Network)(nil)

// NewNetwork creates an empty network
func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*Listener)}
}

// Listen registers a listener under addr
func (n *Network) Listen(addr string) (*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[addr]; ok {
		return nil, fmt.Errorf("memtransport: address %q in use", addr)
	}
	l := &Listener{
		net:     n,
		addr:    memAddr(addr),
		pending: make(chan *Conn, queueSize),
		closed:  make(chan struct{}),
	}
	n.listeners[addr] = l
	return l, nil
}

// Dial connects to the listener registered under addr
func (n *Network) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	n.mu.Lock()
	l, ok := n.listeners[addr]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", transport.ErrDialTimeout, addr)
	}

	client, server := n.pipe(addr)
	select {
	case l.pending <- server:
		return client, nil
	case <-l.closed:
		return nil, fmt.Errorf("%w: %s", transport.ErrDialTimeout, addr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Network) pipe(addr string) (*Conn, *Conn) {
	a := newConn(model.ConnID(n.nextConn.Add(1)), memAddr(addr))
	b := newConn(model.ConnID(n.nextConn.Add(1)), memAddr(fmt.Sprintf("client-%d", a.id)))
	a.peer, b.peer = b, a
	return a, b
}

func (n *Network) remove(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, addr)
}

// Listener is the accepting side of a memtransport address
type Listener struct {
	net     *Network
	addr    memAddr
	pending chan *Conn

	closeOnce sync.Once
	closed    chan struct{}
}

var _ transport.Listener = (*Listener)(nil)

func (l *Listener) Accept() (transport.Conn, error) {
	select {
	case c := <-l.pending:
		return c, nil
	case <-l.closed:
		return nil, transport.ErrClosed
	}
}

func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.net.remove(string(l.addr))
	})
	return nil
}

func (l *Listener) Addr() net.Addr {
	return l.addr
}

// Conn is one end of an in-process pipe
type Conn struct {
	id     model.ConnID
	remote memAddr
	peer   *Conn
	inbox  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

var _ transport.Conn = (*Conn)(nil)

func newConn(id model.ConnID, remote memAddr) *Conn {
	return &Conn{
		id:     id,
		remote: remote,
		inbox:  make(chan []byte, queueSize),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() model.ConnID {
	return c.id
}

func (c *Conn) Send(ch protocol.Channel, frame []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	case <-c.peer.closed:
		return transport.ErrClosed
	default:
	}

	buf := append([]byte(nil), frame...)
	if ch == protocol.BestEffort {
		select {
		case c.peer.inbox <- buf:
		default:
			// best-effort frames are dropped when the peer lags
		}
		return nil
	}

	select {
	case c.peer.inbox <- buf:
		return nil
	case <-c.closed:
		return transport.ErrClosed
	case <-c.peer.closed:
		return transport.ErrClosed
	}
}

// Recv drains frames already queued before reporting a closed peer
func (c *Conn) Recv() ([]byte, error) {
	select {
	case frame := <-c.inbox:
		return frame, nil
	default:
	}

	select {
	case frame := <-c.inbox:
		return frame, nil
	case <-c.closed:
		return nil, transport.ErrClosed
	case <-c.peer.closed:
		select {
		case frame := <-c.inbox:
			return frame, nil
		default:
			return nil, transport.ErrClosed
		}
	}
}

// Close shuts both directions; the peer sees ErrClosed once its queue drains
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.remote
}

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }
