// ABOUTME: Runs tool invocations as correlated request/reply exchanges with the agent.
// ABOUTME: Registers before sending, applies per-call timeouts, and maps outcomes.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/browser-bridge/internal/agent"
	"github.com/2389/browser-bridge/internal/envelope"
	"github.com/2389/browser-bridge/internal/pending"
)

// DefaultCallTimeout bounds a call whose descriptor sets no timeout.
const DefaultCallTimeout = 15 * time.Second

// Result is a successful invocation.
type Result struct {
	CallID  string
	Tool    string
	Action  string
	Data    json.RawMessage
	Elapsed time.Duration
}

// InvokerConfig holds Invoker dependencies.
type InvokerConfig struct {
	Catalog *Catalog
	Sender  agent.Sender
	Table   *pending.Table
	// Timeout is the default per-call timeout. Zero means DefaultCallTimeout.
	Timeout time.Duration
	// NewID generates call ids. Nil means uuid.NewString.
	NewID  func() string
	Logger *slog.Logger
}

// Invoker turns tool calls into agent requests.
type Invoker struct {
	catalog *Catalog
	sender  agent.Sender
	table   *pending.Table
	timeout time.Duration
	newID   func() string
	logger  *slog.Logger
}

// NewInvoker creates an Invoker.
func NewInvoker(cfg InvokerConfig) *Invoker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		catalog: cfg.Catalog,
		sender:  cfg.Sender,
		table:   cfg.Table,
		timeout: timeout,
		newID:   newID,
		logger:  logger,
	}
}

// Catalog returns the tools this invoker serves.
func (i *Invoker) Catalog() *Catalog {
	return i.catalog
}

type invokeOptions struct {
	timeout time.Duration
	callID  string
}

// InvokeOption adjusts a single invocation.
type InvokeOption func(*invokeOptions)

// WithTimeout overrides the call timeout.
func WithTimeout(d time.Duration) InvokeOption {
	return func(o *invokeOptions) { o.timeout = d }
}

// WithCallID uses id instead of a generated call id.
func WithCallID(id string) InvokeOption {
	return func(o *invokeOptions) { o.callID = id }
}

// Invoke runs the tool name with raw JSON arguments. Every failure is a *Error.
func (i *Invoker) Invoke(ctx context.Context, name string, args json.RawMessage, opts ...InvokeOption) (Result, error) {
	e, ok := i.catalog.byName[name]
	if !ok {
		return Result{}, newError(KindUnknownTool, name, "unknown tool "+name, nil)
	}
	desc := e.desc

	params, err := e.decode(args)
	if err != nil {
		return Result{}, newError(KindInvalidParams, name, err.Error(), err)
	}

	o := invokeOptions{timeout: desc.Timeout}
	if o.timeout <= 0 {
		o.timeout = i.timeout
	}
	for _, opt := range opts {
		opt(&o)
	}
	id := o.callID
	if id == "" {
		id = i.newID()
	}

	env, err := envelope.NewRequest(id, desc.Action, params)
	if err != nil {
		return Result{}, newError(KindInternal, name, err.Error(), err)
	}

	start := time.Now()
	call, err := i.table.Register(id, start.Add(o.timeout))
	if err != nil {
		return Result{}, newError(KindInternal, name, err.Error(), err)
	}

	if !i.sender.Send(env) {
		i.table.Fail(id, agent.ErrNoConnection)
	}

	payload, err := call.Wait(ctx)
	elapsed := time.Since(start)
	if err != nil {
		te := classify(name, err)
		i.logger.Debug("tool call failed",
			"tool", name,
			"call_id", id,
			"action", desc.Action,
			"kind", te.Kind,
			"elapsed", elapsed,
		)
		return Result{}, te
	}

	i.logger.Debug("tool call completed",
		"tool", name,
		"call_id", id,
		"action", desc.Action,
		"elapsed", elapsed,
	)
	return Result{
		CallID:  id,
		Tool:    name,
		Action:  desc.Action,
		Data:    payload,
		Elapsed: elapsed,
	}, nil
}

// IsNoConnection reports whether err means no agent could take the call.
func IsNoConnection(err error) bool {
	te, ok := AsError(err)
	return ok && te.Kind == KindNoConnection
}

// IsTimeout reports whether err is a call timeout.
func IsTimeout(err error) bool {
	te, ok := AsError(err)
	return ok && te.Kind == KindTimeout
}

// IsRemote reports whether err was reported by the agent.
func IsRemote(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindRemote
}
