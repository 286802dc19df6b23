// ABOUTME: Adapts a gorilla/websocket connection to the Conn interface.
// ABOUTME: Serializes writes, sends heartbeat pings, and enforces an idle read deadline.

package agent

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Default websocket tuning.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultIdleTimeout       = 90 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultMaxMessageSize    = 32 << 20 // page content and screenshots are large
)

// WebSocketConfig tunes a websocket Conn. Zero durations disable the feature;
// a zero WriteTimeout uses DefaultWriteTimeout.
type WebSocketConfig struct {
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
	WriteTimeout      time.Duration
	MaxMessageSize    int64
}

type wsConn struct {
	ws  *websocket.Conn
	cfg WebSocketConfig

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketConn wraps ws. The returned Conn owns ws and starts its
// heartbeat immediately.
func NewWebSocketConn(ws *websocket.Conn, cfg WebSocketConfig) Conn {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}

	c := &wsConn{
		ws:   ws,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	ws.SetReadLimit(cfg.MaxMessageSize)
	c.extendReadDeadline()
	ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	if cfg.HeartbeatInterval > 0 {
		go c.heartbeat()
	}
	return c
}

func (c *wsConn) extendReadDeadline() {
	if c.cfg.IdleTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
	}
}

func (c *wsConn) heartbeat() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadMessage returns the next data frame. A normal close from the peer is io.EOF.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	c.extendReadDeadline()
	return data, nil
}

// WriteMessage sends data as one text frame.
func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and tears down the socket. Safe to call repeatedly.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
