// ABOUTME: HTTP handlers for the agent websocket upgrade and health endpoints
// ABOUTME: The agent handler blocks for the lifetime of the connection

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/2389/browser-bridge/internal/agent"
)

// newOriginChecker allows any origin when allowed is empty, otherwise only
// the listed origins.
func newOriginChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[normalizeOrigin(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		_, ok := set[normalizeOrigin(origin)]
		return ok
	}
}

// normalizeOrigin lowercases an origin and strips trailing slashes.
func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(o, "/"))
}

// handleAgent upgrades the request and serves the agent until it disconnects.
func (g *Gateway) handleAgent(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.Warn("agent websocket upgrade failed",
			"remote_addr", r.RemoteAddr,
			"origin", r.Header.Get("Origin"),
			"error", err,
		)
		return
	}

	conn := agent.NewWebSocketConn(ws, agent.WebSocketConfig{
		HeartbeatInterval: g.config.Agent.HeartbeatInterval,
		IdleTimeout:       g.config.Agent.IdleTimeout,
		WriteTimeout:      g.config.Agent.WriteTimeout,
	})

	if err := g.agents.Serve(g.agentCtx, conn); err != nil {
		g.logger.Info("agent connection ended", "remote_addr", conn.RemoteAddr(), "error", err)
	}
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK only while a browser agent is connected.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if !g.agents.Connected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no agent connected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Agent       agent.Status `json:"agent"`
	Tools       int          `json:"tools"`
	MCPSessions int          `json:"mcp_sessions"`
	Uptime      string       `json:"uptime"`
}

// handleStatus reports the agent link and call counts as JSON.
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Agent:       g.agents.Status(),
		Tools:       g.invoker.Catalog().Len(),
		MCPSessions: g.mcpServer.SessionCount(),
		Uptime:      time.Since(g.startedAt).Round(time.Second).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("failed to encode status", "error", err)
	}
}
