// ABOUTME: Duplex connection abstraction and the record of the attached agent.
// ABOUTME: Conn is supplied by the listener; Connection adds identity and liveness.

package agent

import (
	"sync/atomic"
	"time"
)

// Conn is a duplex message transport supplied by the accept mechanism.
// WriteMessage must be safe for concurrent use; Close must unblock ReadMessage.
// ReadMessage returns io.EOF when the peer closed cleanly.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
	RemoteAddr() string
}

// Connection is the agent currently attached to a Manager.
type Connection struct {
	RemoteAddr    string
	EstablishedAt time.Time

	conn     Conn
	lastSeen atomic.Int64 // unix nanos of the last inbound frame
}

func newConnection(conn Conn, now time.Time) *Connection {
	c := &Connection{
		RemoteAddr:    conn.RemoteAddr(),
		EstablishedAt: now,
		conn:          conn,
	}
	c.lastSeen.Store(now.UnixNano())
	return c
}

func (c *Connection) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

// LastSeen returns when the agent last sent a frame.
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Status is a point-in-time view of the manager's connection state.
type Status struct {
	Connected     bool      `json:"connected"`
	RemoteAddr    string    `json:"remote_addr,omitempty"`
	EstablishedAt time.Time `json:"established_at,omitzero"`
	LastSeen      time.Time `json:"last_seen,omitzero"`
	Pending       int       `json:"pending"`
}
