// ABOUTME: Converts tool invocation outcomes into MCP tool results.
// ABOUTME: Shared by the HTTP and stdio hosts so both report failures identically.

package mcp

import (
	"bytes"
	"encoding/json"

	"github.com/2389/browser-bridge/internal/tools"
)

// ToolFailure is the structured error attached to a failed tool result.
type ToolFailure struct {
	Kind    tools.ErrorKind `json:"kind"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// toolOutcome is the transport-neutral form of a tool result.
type toolOutcome struct {
	text       string
	structured any
	isError    bool
}

// protocolError reports whether err must be a JSON-RPC error rather than an
// isError result: the client named a tool that does not exist or sent bad
// arguments.
func protocolError(err error) (*tools.Error, bool) {
	te, ok := tools.AsError(err)
	if !ok {
		return nil, false
	}
	return te, te.Kind == tools.KindUnknownTool || te.Kind == tools.KindInvalidParams
}

func outcomeFor(res tools.Result, err error) toolOutcome {
	if err != nil {
		te, ok := tools.AsError(err)
		if !ok {
			te = &tools.Error{Kind: tools.KindInternal, Code: string(tools.KindInternal), Message: err.Error()}
		}
		return toolOutcome{
			text: te.Error(),
			structured: map[string]any{
				"error": ToolFailure{Kind: te.Kind, Code: te.Code, Message: te.Message},
			},
			isError: true,
		}
	}

	out := toolOutcome{text: string(res.Data)}
	// A string reply is presented as the text itself.
	var s string
	if err := json.Unmarshal(res.Data, &s); err == nil {
		out.text = s
	}
	// Structured content must be a JSON object.
	if trimmed := bytes.TrimSpace(res.Data); len(trimmed) > 0 && trimmed[0] == '{' {
		out.structured = json.RawMessage(trimmed)
	}
	return out
}
