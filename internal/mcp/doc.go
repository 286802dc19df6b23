// Package mcp exposes the browser tool catalog to Model Context Protocol clients.
//
// # Overview
//
// Two hosts share one invoker and one result mapping:
//
//   - Server: the Streamable HTTP transport, hand-rolled JSON-RPC 2.0 over
//     POST at the configured MCP path (default /mcp)
//   - NewSDKServer / ServeStdio: the official modelcontextprotocol/go-sdk
//     server over stdin/stdout, for clients that spawn the bridge
//
// # Methods
//
// The HTTP server answers initialize, ping, tools/list and tools/call.
// Notifications are accepted with 202 and no body. Every method except
// initialize requires the Mcp-Session-Id returned by initialize.
//
// # Tool Results
//
// A tool call that reached the agent, or failed because it could not, is a
// normal result:
//
//	{
//	  "content": [{"type": "text", "text": "browser agent did not reply in time"}],
//	  "structuredContent": {"error": {"kind": "timeout", "code": "timeout", "message": "..."}},
//	  "isError": true
//	}
//
// Kinds are no_connection, timeout, remote_error and cancelled. Remote errors
// carry the agent's code and message unchanged.
//
// Calls naming an unknown tool or carrying arguments that fail schema
// validation are JSON-RPC errors with code -32602.
//
// # Authentication
//
// The server does not authenticate requests itself. The gateway wraps it in
// auth.Middleware when a JWT secret is configured, and sessions are bound to
// the token subject that created them.
//
// # Client configuration
//
//	{
//	  "mcpServers": {
//	    "browser": {
//	      "command": "browser-bridge",
//	      "args": ["stdio"]
//	    }
//	  }
//	}
package mcp
