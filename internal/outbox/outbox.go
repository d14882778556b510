// Package outbox is the seam between the registry, which decides what has
// to be said, and the components that deliver it.
package outbox

import (
	"sync"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
)

// Outbox delivers registry output. Both calls are fire-and-forget and
// must not block the caller.
type Outbox interface {
	// SendTo delivers msg to a single connection
	SendTo(conn model.ConnID, msg protocol.Message)
	// Broadcast delivers msg to every open connection
	Broadcast(msg protocol.Message)
}

// Multi fans every call out to each outbox in order
type Multi []Outbox

func (m Multi) SendTo(conn model.ConnID, msg protocol.Message) {
	for _, o := range m {
		o.SendTo(conn, msg)
	}
}

func (m Multi) Broadcast(msg protocol.Message) {
	for _, o := range m {
		o.Broadcast(msg)
	}
}

// Envelope is one recorded delivery. Conn is model.NoConn for broadcasts.
type Envelope struct {
	Conn      model.ConnID
	Broadcast bool
	Msg       protocol.Message
}

// Recorder keeps every delivery in memory (for tests)
type Recorder struct {
	mu   sync.Mutex
	sent []Envelope
}

func (r *Recorder) SendTo(conn model.ConnID, msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Envelope{Conn: conn, Msg: msg})
}

func (r *Recorder) Broadcast(msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Envelope{Broadcast: true, Msg: msg})
}

// Sent returns a copy of everything recorded so far
func (r *Recorder) Sent() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.sent...)
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
