// ABOUTME: Answers agent-initiated liveness probes on the agent connection.
// ABOUTME: Replies reuse the probe id and keep type=request, matching the extension.

package agent

import (
	"encoding/json"
	"log/slog"

	"github.com/2389/browser-bridge/internal/envelope"
)

// PingAction is the action the agent uses for liveness probes.
const PingAction = "connection.ping"

// ackPayload is the data sent back for every probe.
var ackPayload = json.RawMessage(`{"status":"alive"}`)

// Sender writes one envelope to the agent.
type Sender interface {
	Send(env envelope.Envelope) bool
}

// Keepalive replies to liveness probes. It holds no state beyond its sender.
type Keepalive struct {
	action string
	sender Sender
	logger *slog.Logger
}

// NewKeepalive creates a responder for action. Empty action means PingAction.
func NewKeepalive(sender Sender, action string, logger *slog.Logger) *Keepalive {
	if action == "" {
		action = PingAction
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Keepalive{action: action, sender: sender, logger: logger}
}

// Handles reports whether env is a liveness probe.
func (k *Keepalive) Handles(env envelope.Envelope) bool {
	return env.Kind == envelope.KindRequest && env.Action == k.action
}

// Respond sends the acknowledgment for probe.
// The reply is deliberately a request, not a response.
func (k *Keepalive) Respond(probe envelope.Envelope) bool {
	ok := k.sender.Send(envelope.Envelope{
		ID:     probe.ID,
		Kind:   envelope.KindRequest,
		Action: k.action,
		Data:   ackPayload,
	})
	if !ok {
		k.logger.Debug("keepalive reply not sent", "probe_id", probe.ID)
	}
	return ok
}
