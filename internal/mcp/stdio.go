// ABOUTME: Hosts the tool catalog over MCP stdio using the official Go SDK.
// ABOUTME: Each catalog descriptor becomes one SDK tool backed by the invoker.

package mcp

import (
	"context"
	"errors"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389/browser-bridge/internal/tools"
)

// NewSDKServer builds an SDK server exposing every tool in the invoker's catalog.
func NewSDKServer(invoker *tools.Invoker, logger *slog.Logger) *sdk.Server {
	if logger == nil {
		logger = slog.Default()
	}

	server := sdk.NewServer(&sdk.Implementation{Name: ServerName, Version: Version}, nil)
	for _, d := range invoker.Catalog().All() {
		server.AddTool(&sdk.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Schema,
		}, sdkHandler(invoker, d.Name, logger))
	}
	return server
}

func sdkHandler(invoker *tools.Invoker, name string, logger *slog.Logger) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		res, err := invoker.Invoke(ctx, name, req.Params.Arguments)
		if te, ok := protocolError(err); ok {
			return nil, errors.New(te.Message)
		}

		out := outcomeFor(res, err)
		if out.isError {
			logger.Warn("tool call failed", "tool_name", name, "error", err)
		}
		return &sdk.CallToolResult{
			Content:           []sdk.Content{&sdk.TextContent{Text: out.text}},
			StructuredContent: out.structured,
			IsError:           out.isError,
		}, nil
	}
}

// ServeStdio runs the SDK server on stdin/stdout until ctx ends or the client disconnects.
func ServeStdio(ctx context.Context, invoker *tools.Invoker, logger *slog.Logger) error {
	return NewSDKServer(invoker, logger).Run(ctx, &sdk.StdioTransport{})
}
