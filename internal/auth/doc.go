// Package auth authenticates MCP clients of browser-bridge.
//
// # Tokens
//
// When auth.jwt_secret is configured, every request to the MCP endpoint must
// carry "Authorization: Bearer <token>". Tokens are HS256 JWTs with:
//
//   - iss: always "browser-bridge"
//   - sub: a client name chosen when the token is minted
//   - exp: required
//
// Tokens are minted with `browser-bridge token <name>`, which signs with the
// same configured secret.
//
// # Scope
//
// Only the MCP endpoint is protected. The agent websocket is reached by a
// browser extension that cannot hold a secret and is restricted by origin
// instead.
//
// # Middleware
//
// Middleware verifies the bearer token and stores the subject in the request
// context; handlers read it back with SubjectFrom. The MCP server binds each
// session to the subject that created it.
package auth
