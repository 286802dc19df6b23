// ABOUTME: Package tools exposes browser operations as named, schema-checked tools.
// ABOUTME: Each invocation becomes one correlated request to the attached agent.

// Package tools is the adapter between tool-calling clients and the agent.
//
// # Catalog
//
// A Catalog holds one Descriptor per operation. Descriptor names and agent
// actions are both unique, and every descriptor's JSON schema is compiled
// when the catalog is built, so a bad schema fails at startup rather than on
// the first call. Builtin returns the full browser catalog grouped by
// Category:
//
//   - tabs: list, open, close, activate, reload, duplicate, group
//   - history: search, recent, delete
//   - bookmarks: search, create, delete
//   - navigation: navigate, back, forward
//   - content: text, HTML, links, find, screenshot
//   - windows: list, create, close, focus
//   - requests: network request monitoring
//
// # Invocation
//
// Invoker.Invoke runs one operation:
//
//  1. Validate the arguments against the schema, decode them into the
//     operation's Params and normalize them
//  2. Generate a call id and register it with the correlation table
//  3. Send the request envelope; a refused send fails the call at once
//  4. Wait for the reply, the call deadline, or the caller's context
//
// Registration happens before the send so a reply that arrives before the
// caller starts waiting still finds its entry.
//
// # Errors
//
// Invoke always returns a *Error whose Kind tells the client what happened:
// no_connection, timeout, remote_error, invalid_params, unknown_tool or
// cancelled. Remote errors carry the agent's code and message verbatim.
package tools
