// ABOUTME: Owns the single agent connection, its read loop, and send/disconnect lifecycle.
// ABOUTME: Dispatches replies to the correlation table and fails pending calls on disconnect.

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/browser-bridge/internal/envelope"
	"github.com/2389/browser-bridge/internal/pending"
)

// ErrNoConnection indicates no agent is attached.
var ErrNoConnection = errors.New("no agent connected")

// errReplaced and errDisconnected record why a connection was dropped.
var (
	errReplaced     = errors.New("replaced by a newer agent connection")
	errDisconnected = errors.New("disconnected by the bridge")
)

// RemoteError is a failure the agent reported in an error envelope.
type RemoteError struct {
	Action  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("agent reported %s for %s: %s", e.Code, e.Action, e.Message)
}

// Config holds Manager dependencies.
type Config struct {
	Table  *pending.Table
	Codec  envelope.Codec
	Logger *slog.Logger
	// PingAction overrides the liveness probe action.
	PingAction string
	// Now is used for connection timestamps. Nil means time.Now.
	Now func() time.Time
}

// Manager holds at most one agent connection.
type Manager struct {
	table     *pending.Table
	codec     envelope.Codec
	keepalive *Keepalive
	logger    *slog.Logger
	now       func() time.Time

	// mu guards current. Send holds it shared for the duration of a write so
	// a replacement cannot interleave with an in-progress send.
	mu      sync.RWMutex
	current *Connection
}

// NewManager creates an idle Manager.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		table:  cfg.Table,
		codec:  cfg.Codec,
		logger: logger,
		now:    now,
	}
	m.keepalive = NewKeepalive(m, cfg.PingAction, logger)
	return m
}

// Serve attaches conn as the current agent and runs its read loop until the
// connection ends or ctx is cancelled. A clean close or cancellation returns nil.
func (m *Manager) Serve(ctx context.Context, conn Conn) error {
	c := m.attach(conn)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	err := m.readLoop(c)
	if !m.detach(c, err) {
		// Replaced by a newer connection; its closing is expected.
		return nil
	}

	if ctx.Err() != nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// attach installs conn, replacing and failing out any previous connection.
func (m *Manager) attach(conn Conn) *Connection {
	c := newConnection(conn, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev := m.current; prev != nil {
		m.current = nil
		_ = prev.conn.Close()
		failed := m.table.FailAll(pending.ErrConnectionLost)
		m.logger.Warn("=== AGENT REPLACED ===",
			"old_remote_addr", prev.RemoteAddr,
			"new_remote_addr", c.RemoteAddr,
			"pending_failed", failed,
			"reason", errReplaced,
		)
	}

	m.current = c
	m.logger.Info("=== AGENT CONNECTED ===",
		"remote_addr", c.RemoteAddr,
	)
	return c
}

// detach clears c if it is still current and fails every pending call.
// A connection that was already replaced is left alone and false is returned.
func (m *Manager) detach(c *Connection, cause error) bool {
	m.mu.Lock()
	if m.current != c {
		m.mu.Unlock()
		return false
	}
	m.current = nil
	failed := m.table.FailAll(pending.ErrConnectionLost)
	m.mu.Unlock()

	_ = c.conn.Close()

	attrs := []any{
		"remote_addr", c.RemoteAddr,
		"connected_for", m.now().Sub(c.EstablishedAt).Round(time.Millisecond),
		"pending_failed", failed,
	}
	if cause != nil && !errors.Is(cause, io.EOF) {
		attrs = append(attrs, "error", cause)
	}
	m.logger.Info("=== AGENT DISCONNECTED ===", attrs...)
	return true
}

func (m *Manager) readLoop(c *Connection) error {
	for {
		raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.touch(m.now())
		m.dispatch(raw)
	}
}

// dispatch routes one inbound frame. It never fails the connection.
func (m *Manager) dispatch(raw []byte) {
	env, err := m.codec.Decode(raw)
	if err != nil {
		m.logger.Warn("dropping malformed envelope",
			"error", err,
			"size", len(raw),
		)
		return
	}

	switch env.Kind {
	case envelope.KindResponse:
		if !m.table.Resolve(env.ID, env.Data) {
			m.logUnmatched(env)
			return
		}
		m.logger.Debug("← agent responded", "call_id", env.ID, "action", env.Action)

	case envelope.KindError:
		p := env.ErrorPayload()
		remote := &RemoteError{Action: env.Action, Code: p.Code, Message: p.Message}
		if !m.table.Fail(env.ID, remote) {
			m.logUnmatched(env)
			return
		}
		m.logger.Debug("← agent reported error",
			"call_id", env.ID,
			"action", env.Action,
			"code", p.Code,
		)

	case envelope.KindRequest:
		if m.keepalive.Handles(env) {
			m.keepalive.Respond(env)
			return
		}
		m.logger.Warn("ignoring unsupported agent request",
			"call_id", env.ID,
			"action", env.Action,
		)
	}
}

// logUnmatched reports a reply whose id is no longer, or never was, pending.
func (m *Manager) logUnmatched(env envelope.Envelope) {
	if m.table.RecentlyCompleted(env.ID) {
		m.logger.Debug("discarding late reply",
			"call_id", env.ID,
			"action", env.Action,
			"type", env.Kind,
		)
		return
	}
	m.logger.Warn("received reply for unknown call",
		"call_id", env.ID,
		"action", env.Action,
		"type", env.Kind,
	)
}

// Send writes env to the current agent. It returns false when no agent is
// attached or the write fails; a failed write also drops the connection.
func (m *Manager) Send(env envelope.Envelope) bool {
	raw, err := m.codec.Encode(env)
	if err != nil {
		m.logger.Error("refusing to send invalid envelope",
			"call_id", env.ID,
			"action", env.Action,
			"error", err,
		)
		return false
	}

	m.mu.RLock()
	c := m.current
	if c == nil {
		m.mu.RUnlock()
		return false
	}
	err = c.conn.WriteMessage(raw)
	m.mu.RUnlock()

	if err != nil {
		m.logger.Warn("write to agent failed",
			"call_id", env.ID,
			"action", env.Action,
			"error", err,
		)
		m.detach(c, err)
		return false
	}

	m.logger.Debug("→ sent to agent", "call_id", env.ID, "action", env.Action, "type", env.Kind)
	return true
}

// Disconnect drops the current agent, if any.
func (m *Manager) Disconnect() {
	m.mu.RLock()
	c := m.current
	m.mu.RUnlock()

	if c != nil {
		m.detach(c, errDisconnected)
	}
}

// Connected reports whether an agent is attached.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// Status returns a snapshot of the connection state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	c := m.current
	m.mu.RUnlock()

	st := Status{Pending: m.table.Len()}
	if c != nil {
		st.Connected = true
		st.RemoteAddr = c.RemoteAddr
		st.EstablishedAt = c.EstablishedAt
		st.LastSeen = c.LastSeen()
	}
	return st
}
