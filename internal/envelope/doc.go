// Package envelope defines the wire message exchanged with the browser agent.
//
// # Wire Format
//
// Every websocket text frame carries exactly one JSON envelope:
//
//	{
//	  "id": "3f0c9d4e-...",
//	  "type": "request",
//	  "action": "tabs.list",
//	  "data": {},
//	  "timestamp": "2026-10-14T09:30:00.123456789Z"
//	}
//
// The type is one of request, response or error. Replies carry the id of
// the request they answer. Agent-initiated liveness probes are requests with
// a fresh id, and the bridge answers them with another request envelope.
//
// # Decoding
//
// Decode never panics. Structurally invalid input yields a *DecodeError so
// the caller can log it and keep reading; one bad frame must not end the
// connection.
//
// # Encoding
//
// Encode stamps the timestamp from the codec clock, replacing whatever the
// caller put there. The timestamp reflects the local send time only and is
// not used for ordering.
package envelope
