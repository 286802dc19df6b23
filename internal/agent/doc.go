// Package agent owns the single connection to the browser agent.
//
// # Overview
//
// The browser extension dials the bridge over a websocket and executes the
// actions the bridge sends it. Only one agent is attached at a time; the
// Manager holds that connection and is the only writer to it.
//
// # Manager
//
//	mgr := agent.NewManager(agent.Config{Table: table, Logger: logger})
//
// Key operations:
//
//   - Serve(ctx, conn): attach conn and run its read loop until it ends
//   - Send(env): write one envelope; false when no agent is attached
//   - Disconnect(): drop the current connection
//   - Status(): connection snapshot for health endpoints
//
// # Connection Lifecycle
//
// The manager moves between Idle and Connected. Serve performs the accept
// transition. If an agent is already attached the new connection replaces
// it: the old socket is closed and every pending call fails with
// pending.ErrConnectionLost before the new connection becomes visible to
// Send. Browser extensions reconnect after a reload before the old socket's
// close is noticed, so the newest connection is the live one.
//
// Leaving Connected for any reason (clean close, read error, failed write,
// replacement, shutdown) clears the connection and fails all pending calls.
//
// # Read Loop
//
// Each inbound frame is decoded with internal/envelope. Malformed frames are
// logged and skipped. Responses and errors are handed to the correlation
// table; requests carrying the liveness action go to the Keepalive
// responder; any other request is logged and ignored.
//
// # Keepalive
//
// The agent sends connection.ping requests. The reply reuses the probe's id
// and keeps type=request; the extension matches on that shape.
//
// # Websocket Adapter
//
// NewWebSocketConn wraps a gorilla/websocket connection as a Conn. It
// serializes writes, sends ping frames on HeartbeatInterval and closes the
// connection when nothing arrives for IdleTimeout.
package agent
