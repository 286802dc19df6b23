// ABOUTME: Tests for the SDK-hosted catalog over in-memory MCP transports.
// ABOUTME: Exercises listing and calls through a real SDK client session.

package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/browser-bridge/internal/envelope"
	"github.com/2389/browser-bridge/internal/tools"
)

func setupSDKSession(t *testing.T, connected bool) (*sdk.ClientSession, *fakeAgent) {
	t.Helper()
	inv, fa := setupInvoker(t, connected)
	server := NewSDKServer(inv, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session, fa
}

func textOf(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestSDKListTools(t *testing.T) {
	session, _ := setupSDKSession(t, true)

	res, err := session.ListTools(context.Background(), &sdk.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, res.Tools, tools.MustBuiltin().Len())
}

func TestSDKCallTool(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		session, fa := setupSDKSession(t, true)
		fa.reply = func(env envelope.Envelope) {
			fa.table.Resolve(env.ID, json.RawMessage(`{"windows":[{"id":1,"focused":true}]}`))
		}

		res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
			Name:      "list_windows",
			Arguments: map[string]any{},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.JSONEq(t, `{"windows":[{"id":1,"focused":true}]}`, textOf(t, res))
	})

	t.Run("no agent", func(t *testing.T) {
		session, _ := setupSDKSession(t, false)

		res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
			Name:      "navigate",
			Arguments: map[string]any{"url": "go.dev"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "no browser agent")
	})

	t.Run("invalid arguments never reach the agent", func(t *testing.T) {
		session, fa := setupSDKSession(t, true)
		fa.reply = func(envelope.Envelope) { t.Error("agent should not be called") }

		res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
			Name:      "activate_tab",
			Arguments: map[string]any{},
		})
		if err == nil {
			assert.True(t, res.IsError)
		}
	})
}
