// ABOUTME: Entry point for browser-bridge, the MCP server for a connected browser
// ABOUTME: Subcommands serve HTTP or stdio MCP, mint tokens, and query a running bridge

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/browser-bridge/internal/auth"
	"github.com/2389/browser-bridge/internal/config"
	"github.com/2389/browser-bridge/internal/gateway"
	"github.com/2389/browser-bridge/internal/mcp"
	"github.com/2389/browser-bridge/internal/tools"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

const banner = `
 _                                        _          _     _
| |__  _ __ _____      _____  ___ _ __   | |__  _ __(_) __| | __ _  ___
| '_ \| '__/ _ \ \ /\ / / __|/ _ \ '__|  | '_ \| '__| |/ _' |/ _' |/ _ \
| |_) | | | (_) \ V  V /\__ \  __/ |     | |_) | |  | | (_| | (_| |  __/
|_.__/|_|  \___/ \_/\_/ |___/\___|_|     |_.__/|_|  |_|\__,_|\__, |\___|
                                                             |___/
`

var configPath string

var rootCmd = &cobra.Command{
	Use:           "browser-bridge",
	Short:         "Expose a connected browser to MCP clients as tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge with the MCP HTTP endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP on stdin/stdout while accepting the browser agent over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStdio(cmd.Context())
	},
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint an MCP bearer token signed with auth.jwt_secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToken(args[0], tokenTTL)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check bridge health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealth(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent link and pending calls of a running bridge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the bridge exposes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTools()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $BROWSER_BRIDGE_CONFIG or user config dir)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, stdioCmd, initCmd, tokenCmd, healthCmd, statusCmd, toolsCmd)
	rootCmd.Version = version
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file; a missing file yields defaults.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	mcp.Version = version

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	if path == "" {
		fmt.Printf("Config:    (defaults)\n")
	} else {
		fmt.Printf("Config:    %s\n", path)
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Agent:     %s\n", cfg.Server.AgentPath)
	green.Print("    ▶ ")
	fmt.Printf("MCP:       %s", cfg.Server.MCPPath)
	if cfg.Auth.JWTSecret == "" {
		yellow.Print(" [no auth]")
	}
	fmt.Println()

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting browser-bridge",
		"config", path,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	return gw.Run(ctx)
}

// runStdio keeps stdout for the MCP protocol; logs go to stderr.
func runStdio(ctx context.Context) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	mcp.Version = version
	logger.Info("starting browser-bridge in stdio mode", "config", path, "http_addr", cfg.Server.HTTPAddr)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return serveBridge(ctx, logger, gw.Run, func(ctx context.Context) error {
		return mcp.ServeStdio(ctx, gw.Invoker(), logger)
	})
}

func runToken(subject string, ttl time.Duration) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured (config: %q)", path)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	color.New(color.FgHiBlack).Fprintf(os.Stderr, "subject %s, expires %s\n",
		subject, time.Now().Add(ttl).UTC().Format("Jan 02, 2006 15:04 MST"))
	return nil
}

// get fetches path from the configured HTTP address of a running bridge.
func get(ctx context.Context, path string) (int, []byte, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return 0, nil, err
	}

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func runHealth(ctx context.Context) error {
	code, _, err := get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", code)
	}

	fmt.Println("healthy")
	return nil
}

func runStatus(ctx context.Context) error {
	code, body, err := get(ctx, "/status")
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("status: unexpected status %d", code)
	}

	var st gateway.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if st.Agent.Connected {
		green.Print("● ")
		fmt.Printf("agent connected from %s\n", st.Agent.RemoteAddr)
		fmt.Printf("  since:     %s\n", st.Agent.EstablishedAt.Local().Format(time.DateTime))
		fmt.Printf("  last seen: %s ago\n", time.Since(st.Agent.LastSeen).Round(time.Second))
	} else {
		red.Print("● ")
		fmt.Println("no agent connected")
	}
	fmt.Printf("  pending calls: %d\n", st.Agent.Pending)
	fmt.Printf("  MCP sessions:  %d\n", st.MCPSessions)
	fmt.Printf("  tools:         %d\n", st.Tools)
	fmt.Printf("  uptime:        %s\n", st.Uptime)
	return nil
}

func runTools() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := tools.MustBuiltin().Without(cfg.Tools.Disabled...)
	if err != nil {
		return err
	}

	descs := catalog.All()
	sort.SliceStable(descs, func(i, j int) bool { return descs[i].Category < descs[j].Category })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tACTION\tCATEGORY")
	for _, d := range descs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Action, d.Category)
	}
	return w.Flush()
}
