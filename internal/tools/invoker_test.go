// ABOUTME: Tests for tool invocation over a scripted sender and a real correlation table.
// ABOUTME: Covers no-connection, timeouts, out-of-order replies, and error mapping.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/browser-bridge/internal/agent"
	"github.com/2389/browser-bridge/internal/envelope"
	"github.com/2389/browser-bridge/internal/pending"
)

// scriptedSender records envelopes and optionally accepts them.
type scriptedSender struct {
	mu        sync.Mutex
	connected bool
	sent      []envelope.Envelope
	onSend    func(env envelope.Envelope)
	notify    chan envelope.Envelope
}

func (s *scriptedSender) Send(env envelope.Envelope) bool {
	s.mu.Lock()
	ok := s.connected
	if ok {
		s.sent = append(s.sent, env)
	}
	hook := s.onSend
	s.mu.Unlock()

	if ok && s.notify != nil {
		s.notify <- env
	}
	if ok && hook != nil {
		hook(env)
	}
	return ok
}

func (s *scriptedSender) envelopes() []envelope.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]envelope.Envelope(nil), s.sent...)
}

type invokerFixture struct {
	invoker *Invoker
	table   *pending.Table
	sender  *scriptedSender
}

func setupInvokerTest(t *testing.T, connected bool) *invokerFixture {
	t.Helper()
	table := pending.NewTable(pending.Config{})
	t.Cleanup(table.Close)

	sender := &scriptedSender{connected: connected}
	inv := NewInvoker(InvokerConfig{
		Catalog: MustBuiltin(),
		Sender:  sender,
		Table:   table,
		Timeout: time.Second,
		Logger:  slog.New(slog.DiscardHandler),
	})
	return &invokerFixture{invoker: inv, table: table, sender: sender}
}

func requireToolError(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	te, ok := AsError(err)
	require.True(t, ok, "expected *tools.Error, got %T", err)
	require.Equal(t, kind, te.Kind, "error: %v", err)
	return te
}

func TestInvokeNoConnection(t *testing.T) {
	f := setupInvokerTest(t, false)

	start := time.Now()
	_, err := f.invoker.Invoke(context.Background(), "list_tabs", nil, WithCallID("a1"))

	te := requireToolError(t, err, KindNoConnection)
	assert.ErrorIs(t, te, agent.ErrNoConnection)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "no-connection must not wait for the timeout")
	assert.Equal(t, 0, f.table.Len())
	assert.True(t, IsNoConnection(err))
}

func TestInvokeResolves(t *testing.T) {
	f := setupInvokerTest(t, true)
	f.sender.onSend = func(env envelope.Envelope) {
		f.table.Resolve(env.ID, json.RawMessage(`{"tabs":[{"id":1,"title":"Example"}]}`))
	}

	res, err := f.invoker.Invoke(context.Background(), "list_tabs", json.RawMessage(`{"windowId":2}`), WithCallID("a1"))
	require.NoError(t, err)

	assert.Equal(t, "a1", res.CallID)
	assert.Equal(t, "tabs.list", res.Action)
	assert.JSONEq(t, `{"tabs":[{"id":1,"title":"Example"}]}`, string(res.Data))

	sent := f.sender.envelopes()
	require.Len(t, sent, 1)
	assert.Equal(t, envelope.KindRequest, sent[0].Kind)
	assert.JSONEq(t, `{"windowId":2}`, string(sent[0].Data))
	assert.Equal(t, 0, f.table.Len())
}

func TestInvokeTimeout(t *testing.T) {
	f := setupInvokerTest(t, true)

	start := time.Now()
	_, err := f.invoker.Invoke(context.Background(), "list_tabs", nil, WithCallID("a1"), WithTimeout(time.Second))
	elapsed := time.Since(start)

	requireToolError(t, err, KindTimeout)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 3*time.Second)
	assert.False(t, f.table.Pending("a1"))

	// A reply after expiry is discarded without effect.
	assert.False(t, f.table.Resolve("a1", json.RawMessage(`{}`)))
	assert.True(t, f.table.RecentlyCompleted("a1"))
}

func TestInvokeOutOfOrderReplies(t *testing.T) {
	f := setupInvokerTest(t, true)
	f.sender.notify = make(chan envelope.Envelope, 2)

	type outcome struct {
		res Result
		err error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() {
		res, err := f.invoker.Invoke(context.Background(), "list_tabs", nil, WithCallID("a1"))
		first <- outcome{res, err}
	}()
	<-f.sender.notify
	go func() {
		res, err := f.invoker.Invoke(context.Background(), "get_active_tab", nil, WithCallID("a2"))
		second <- outcome{res, err}
	}()
	<-f.sender.notify

	require.True(t, f.table.Resolve("a2", json.RawMessage(`{"id":2}`)))
	require.True(t, f.table.Resolve("a1", json.RawMessage(`{"tabs":[]}`)))

	o1, o2 := <-first, <-second
	require.NoError(t, o1.err)
	require.NoError(t, o2.err)
	assert.JSONEq(t, `{"tabs":[]}`, string(o1.res.Data))
	assert.JSONEq(t, `{"id":2}`, string(o2.res.Data))
}

func TestInvokeRemoteError(t *testing.T) {
	f := setupInvokerTest(t, true)
	f.sender.onSend = func(env envelope.Envelope) {
		f.table.Fail(env.ID, &agent.RemoteError{Action: env.Action, Code: "no_such_tab", Message: "tab 99 not found"})
	}

	_, err := f.invoker.Invoke(context.Background(), "activate_tab", json.RawMessage(`{"tabId":99}`))

	te := requireToolError(t, err, KindRemote)
	assert.Equal(t, "no_such_tab", te.Code)
	assert.Equal(t, "tab 99 not found", te.Message)
	assert.True(t, IsRemote(err))
}

func TestInvokeConnectionLost(t *testing.T) {
	f := setupInvokerTest(t, true)
	f.sender.onSend = func(envelope.Envelope) {
		f.table.FailAll(pending.ErrConnectionLost)
	}

	_, err := f.invoker.Invoke(context.Background(), "list_windows", nil)

	te := requireToolError(t, err, KindNoConnection)
	assert.ErrorIs(t, te, pending.ErrConnectionLost)
}

func TestInvokeCancelled(t *testing.T) {
	f := setupInvokerTest(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	f.sender.onSend = func(envelope.Envelope) { cancel() }

	_, err := f.invoker.Invoke(ctx, "list_windows", nil, WithCallID("c1"))

	requireToolError(t, err, KindCancelled)
	assert.False(t, f.table.Pending("c1"))
}

func TestInvokeRejectsBadInput(t *testing.T) {
	f := setupInvokerTest(t, true)

	t.Run("unknown tool", func(t *testing.T) {
		_, err := f.invoker.Invoke(context.Background(), "mine_bitcoin", nil)
		requireToolError(t, err, KindUnknownTool)
	})

	cases := map[string]struct {
		tool string
		args string
	}{
		"missing required":     {"activate_tab", `{}`},
		"wrong type":           {"activate_tab", `{"tabId":"seven"}`},
		"unknown argument":     {"list_tabs", `{"windowID":1}`},
		"empty id list":        {"close_tabs", `{"tabIds":[]}`},
		"duplicate ids":        {"close_tabs", `{"tabIds":[1,1]}`},
		"out of range":         {"search_history", `{"query":"go","maxResults":5000}`},
		"bad start time":       {"search_history", `{"query":"go","startTime":"last week"}`},
		"blank query":          {"search_bookmarks", `{"query":"   "}`},
		"unsupported scheme":   {"navigate", `{"url":"javascript:alert(1)"}`},
		"bad format":           {"take_screenshot", `{"format":"gif"}`},
		"quality for png":      {"take_screenshot", `{"quality":80}`},
		"invalid json":         {"list_tabs", `{"windowId":`},
		"arguments not object": {"list_tabs", `[1]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.invoker.Invoke(context.Background(), tc.tool, json.RawMessage(tc.args))
			requireToolError(t, err, KindInvalidParams)
		})
	}

	assert.Empty(t, f.sender.envelopes(), "invalid calls must not reach the agent")
	assert.Equal(t, 0, f.table.Len())
}

func TestInvokeNormalizesPayload(t *testing.T) {
	f := setupInvokerTest(t, true)
	f.sender.onSend = func(env envelope.Envelope) {
		f.table.Resolve(env.ID, json.RawMessage(`{}`))
	}

	_, err := f.invoker.Invoke(context.Background(), "open_tab", json.RawMessage(`{"url":"  example.com/docs "}`))
	require.NoError(t, err)
	_, err = f.invoker.Invoke(context.Background(), "search_history", json.RawMessage(`{"query":" golang "}`))
	require.NoError(t, err)
	_, err = f.invoker.Invoke(context.Background(), "take_screenshot", nil)
	require.NoError(t, err)

	sent := f.sender.envelopes()
	require.Len(t, sent, 3)
	assert.JSONEq(t, `{"url":"https://example.com/docs","active":true}`, string(sent[0].Data))
	assert.JSONEq(t, `{"query":"golang","maxResults":50}`, string(sent[1].Data))
	assert.JSONEq(t, `{"format":"png"}`, string(sent[2].Data))
}

func TestInvokeTimeoutPrecedence(t *testing.T) {
	f := setupInvokerTest(t, true)

	elapsed := func(name string, opts ...InvokeOption) time.Duration {
		t.Helper()
		start := time.Now()
		_, err := f.invoker.Invoke(context.Background(), name, nil, opts...)
		requireToolError(t, err, KindTimeout)
		return time.Since(start)
	}

	t.Run("option overrides the default", func(t *testing.T) {
		d := elapsed("list_windows", WithTimeout(50*time.Millisecond))
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 900*time.Millisecond)
	})

	t.Run("option overrides the descriptor", func(t *testing.T) {
		desc, ok := f.invoker.Catalog().Lookup("take_screenshot")
		require.True(t, ok)
		require.Equal(t, contentTimeout, desc.Timeout)

		d := elapsed("take_screenshot", WithTimeout(50*time.Millisecond))
		assert.Less(t, d, 900*time.Millisecond)
	})

	t.Run("default applies without an override", func(t *testing.T) {
		d := elapsed("list_windows")
		assert.GreaterOrEqual(t, d, time.Second)
	})
}

func TestErrorMessages(t *testing.T) {
	remote := &Error{Kind: KindRemote, Tool: "close_tabs", Code: "no_such_tab", Message: "tab 9 not found"}
	assert.Equal(t, "close_tabs: agent error no_such_tab: tab 9 not found", remote.Error())

	local := newError(KindTimeout, "list_tabs", "browser agent did not reply in time", pending.ErrTimeout)
	assert.Equal(t, "list_tabs: browser agent did not reply in time", local.Error())
	assert.True(t, errors.Is(local, pending.ErrTimeout))
	assert.Equal(t, "timeout", local.Code)
}
