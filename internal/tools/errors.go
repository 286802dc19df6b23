// ABOUTME: Error type returned by every failed tool invocation.
// ABOUTME: Kind classifies the failure; Code and Message are client-facing.

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/browser-bridge/internal/agent"
	"github.com/2389/browser-bridge/internal/pending"
)

// ErrorKind classifies a failed invocation.
type ErrorKind string

const (
	KindNoConnection  ErrorKind = "no_connection"
	KindTimeout       ErrorKind = "timeout"
	KindRemote        ErrorKind = "remote_error"
	KindInvalidParams ErrorKind = "invalid_params"
	KindUnknownTool   ErrorKind = "unknown_tool"
	KindCancelled     ErrorKind = "cancelled"
	KindInternal      ErrorKind = "internal"
)

// Error is a failed tool invocation.
type Error struct {
	Kind ErrorKind
	Tool string
	// Code is the agent's error code for remote errors and the kind otherwise.
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindRemote {
		return fmt.Sprintf("%s: agent error %s: %s", e.Tool, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError returns err as a *Error when it is one.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func newError(kind ErrorKind, tool, message string, err error) *Error {
	return &Error{Kind: kind, Tool: tool, Code: string(kind), Message: message, Err: err}
}

// classify maps a call outcome to a client-facing error.
func classify(tool string, err error) *Error {
	var remote *agent.RemoteError
	switch {
	case errors.As(err, &remote):
		return &Error{Kind: KindRemote, Tool: tool, Code: remote.Code, Message: remote.Message, Err: err}
	case errors.Is(err, agent.ErrNoConnection):
		return newError(KindNoConnection, tool, "no browser agent is connected", err)
	case errors.Is(err, pending.ErrConnectionLost):
		return newError(KindNoConnection, tool, "browser agent disconnected before replying", err)
	case errors.Is(err, pending.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, tool, "browser agent did not reply in time", err)
	case errors.Is(err, context.Canceled):
		return newError(KindCancelled, tool, "call cancelled", err)
	default:
		return newError(KindInternal, tool, err.Error(), err)
	}
}
