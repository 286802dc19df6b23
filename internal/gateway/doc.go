// Package gateway wires the browser-bridge components into one HTTP server.
//
// # Overview
//
// A Gateway owns the correlation table, the agent connection manager, the
// tool catalog and invoker, and the MCP endpoint. It serves them over TCP or,
// when tailscale is enabled, on a tsnet listener inside the tailnet.
//
// # Routes
//
//   - GET {agent_path} - websocket upgrade for the browser extension
//   - POST/DELETE {mcp_path} - MCP streamable HTTP (JWT bearer auth when configured)
//   - GET /health - liveness, always 200
//   - GET /ready - 200 only while an agent is attached
//   - GET /status - agent link state, pending calls, MCP sessions
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//
// Cancelling ctx shuts the HTTP server down, drops the agent, and fails any
// call still waiting for a reply.
package gateway
