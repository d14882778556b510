package model

import "time"

// StableID identifies a player across reconnects and server restarts.
// The server assigns it; NoStableID means "unassigned".
type StableID uint32

// NoStableID is the reserved unassigned identity
const NoStableID StableID = 0

// ConnID identifies one transient network connection on the server
type ConnID uint64

// NoConn marks a record with no live connection bound
const NoConn ConnID = 0

// Vec2 is a position in world units
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * f
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

// PlayerRecord is the server's authoritative view of a player
type PlayerRecord struct {
	ID       StableID  `json:"id"`
	Name     string    `json:"name"`
	Position Vec2      `json:"position"`
	Shape    Shape     `json:"shape"`
	LastSeen time.Time `json:"last_seen"`

	// LiveConn is the bound connection, NoConn while offline.
	// Never persisted.
	LiveConn ConnID `json:"-"`
}

// Online reports whether a live connection is bound to the record
func (p *PlayerRecord) Online() bool {
	return p.LiveConn != NoConn
}

// Clone returns a copy that shares nothing with p
func (p *PlayerRecord) Clone() *PlayerRecord {
	c := *p
	return &c
}

// Profile is the identity a client remembers between runs
type Profile struct {
	StableID StableID `yaml:"stable_id" json:"stable_id"`
	Name     string   `yaml:"name" json:"name"`
}
