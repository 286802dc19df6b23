// ABOUTME: Runs the agent listener alongside the stdio MCP session
// ABOUTME: Whichever side stops first takes the other down and its error is returned

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// serveBridge runs gateway and stdio together until one of them returns.
// A gateway failure ends the stdio session so the process exits with it.
func serveBridge(ctx context.Context, logger *slog.Logger, gateway, stdio func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gwErr := make(chan error, 1)
	go func() { gwErr <- gateway(ctx) }()

	stdioErr := make(chan error, 1)
	go func() { stdioErr <- stdio(ctx) }()

	select {
	case err := <-gwErr:
		if err != nil {
			logger.Error("agent listener failed, stopping stdio session", "error", err)
		}
		cancel()
		<-stdioErr
		if err != nil {
			return fmt.Errorf("agent listener: %w", err)
		}
		return nil

	case err := <-stdioErr:
		cancel()
		if gerr := <-gwErr; gerr != nil {
			return fmt.Errorf("agent listener: %w", gerr)
		}
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	}
}
