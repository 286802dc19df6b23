// ABOUTME: Gateway orchestrator wiring the agent link, tool invoker, and MCP endpoint
// ABOUTME: Owns the HTTP server lifecycle on TCP or a tailnet listener

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/browser-bridge/internal/agent"
	"github.com/2389/browser-bridge/internal/auth"
	"github.com/2389/browser-bridge/internal/config"
	"github.com/2389/browser-bridge/internal/envelope"
	"github.com/2389/browser-bridge/internal/mcp"
	"github.com/2389/browser-bridge/internal/pending"
	"github.com/2389/browser-bridge/internal/tools"
)

// Gateway runs the bridge: one agent websocket, one MCP endpoint, health checks.
type Gateway struct {
	config      *config.Config
	table       *pending.Table
	agents      *agent.Manager
	invoker     *tools.Invoker
	mcpServer   *mcp.Server
	verifier    auth.TokenVerifier
	upgrader    websocket.Upgrader
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// agentCtx bounds agent connections, which outlive their HTTP handler's
	// shutdown tracking once hijacked.
	agentCtx     context.Context
	cancelAgents context.CancelFunc

	startedAt time.Time
}

// New creates a Gateway from cfg. No listener is opened until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := tools.NewCatalog(tools.Builtin())
	if err != nil {
		return nil, fmt.Errorf("building tool catalog: %w", err)
	}
	if len(cfg.Tools.Disabled) > 0 {
		catalog, err = catalog.Without(cfg.Tools.Disabled...)
		if err != nil {
			return nil, fmt.Errorf("applying tools.disabled: %w", err)
		}
		logger.Info("tools disabled by config", "tools", cfg.Tools.Disabled)
	}

	table := pending.NewTable(pending.Config{})
	agents := agent.NewManager(agent.Config{
		Table:  table,
		Codec:  envelope.Codec{},
		Logger: logger.With("component", "agent"),
	})
	invoker := tools.NewInvoker(tools.InvokerConfig{
		Catalog: catalog,
		Sender:  agents,
		Table:   table,
		Timeout: cfg.Tools.CallTimeout,
		Logger:  logger.With("component", "tools"),
	})

	mcpServer, err := mcp.NewServer(mcp.Config{
		Invoker: invoker,
		Logger:  logger.With("component", "mcp"),
	})
	if err != nil {
		table.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			table.Close()
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("MCP auth disabled - no jwt_secret configured")
	}

	agentCtx, cancelAgents := context.WithCancel(context.Background())

	g := &Gateway{
		config:       cfg,
		table:        table,
		agents:       agents,
		invoker:      invoker,
		mcpServer:    mcpServer,
		verifier:     verifier,
		logger:       logger,
		agentCtx:     agentCtx,
		cancelAgents: cancelAgents,
		startedAt:    time.Now(),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  64 << 10,
		WriteBufferSize: 64 << 10,
		CheckOrigin:     newOriginChecker(cfg.Agent.AllowedOrigins),
	}
	g.httpServer = &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g, nil
}

// Invoker returns the tool invoker backed by this gateway's agent link.
func (g *Gateway) Invoker() *tools.Invoker {
	return g.invoker
}

// Agents returns the agent connection manager.
func (g *Gateway) Agents() *agent.Manager {
	return g.agents
}

// Handler returns the HTTP routes served by the gateway.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+g.config.Server.AgentPath, g.handleAgent)

	var mcpHandler http.Handler = g.mcpServer
	if g.verifier != nil {
		mcpHandler = auth.Middleware(g.verifier, g.logger)(mcpHandler)
	}
	mux.Handle(g.config.Server.MCPPath, mcpHandler)

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /ready", g.handleReady)
	mux.HandleFunc("GET /status", g.handleStatus)
	return mux
}

// setupTCPListener listens on server.http_addr.
func (g *Gateway) setupTCPListener() (net.Listener, error) {
	g.logger.Info("starting gateway",
		"http_addr", g.config.Server.HTTPAddr,
		"agent_path", g.config.Server.AgentPath,
		"mcp_path", g.config.Server.MCPPath,
	)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
			"http_addr", g.config.Server.HTTPAddr,
		)
		return g.setupTailscaleListener(ctx)
	}
	return g.setupTCPListener()
}

// startServer starts the HTTP server in a goroutine, returning its error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}
	return g.Serve(ctx, ln)
}

// Serve runs the gateway on an existing listener until ctx is canceled.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The original context is already canceled at this point.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "browser-bridge", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener joins the tailnet and listens on :80 there.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := g.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown drops the agent, stops the HTTP server, and fails every pending call.
// The agent goes first so in-flight tool calls fail instead of holding up the
// HTTP drain.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	g.cancelAgents()
	g.agents.Disconnect()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}

	g.table.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
