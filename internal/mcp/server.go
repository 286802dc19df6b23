// ABOUTME: MCP Streamable HTTP server exposing the browser tool catalog.
// ABOUTME: JSON-RPC over POST with per-client sessions; tool calls go through the invoker.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/browser-bridge/internal/auth"
	"github.com/2389/browser-bridge/internal/tools"
)

// ServerName is reported in initialize responses.
const ServerName = "browser-bridge"

// Version is the bridge version reported to clients.
var Version = "dev"

var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-06-18": true,
	"2025-11-25": true,
}

// latestProtocolVersion is offered when the client asks for one we don't speak.
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize bounds a single POST body.
const MaxRequestBodySize = 1 << 20

// DefaultSessionIdleTimeout is how long a session may go unused before it is dropped.
const DefaultSessionIdleTimeout = 30 * time.Minute

const (
	headerSessionID       = "Mcp-Session-Id"
	headerProtocolVersion = "Mcp-Protocol-Version"
)

type session struct {
	id              string
	protocolVersion string
	owner           string // auth subject that ran initialize
	createdAt       time.Time
	lastUsed        time.Time
}

// sessions is the in-memory set of initialized clients. Sessions idle for
// longer than ttl are expired on lookup and swept whenever a new one opens.
type sessions struct {
	mu   sync.Mutex
	byID map[string]*session
	ttl  time.Duration
	now  func() time.Time
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{byID: make(map[string]*session), ttl: ttl, now: time.Now}
}

func (s *sessions) open(protocolVersion, owner string) *session {
	now := s.now()
	sess := &session{
		id:              uuid.NewString(),
		protocolVersion: protocolVersion,
		owner:           owner,
		createdAt:       now,
		lastUsed:        now,
	}
	s.mu.Lock()
	s.sweepLocked(now)
	s.byID[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessions) expiredLocked(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastUsed) > s.ttl
}

// sweepLocked drops every idle session and returns how many went.
func (s *sessions) sweepLocked(now time.Time) int {
	n := 0
	for id, sess := range s.byID {
		if s.expiredLocked(sess, now) {
			delete(s.byID, id)
			n++
		}
	}
	return n
}

// lookup returns the session for id and an HTTP status when it cannot be used
// by owner.
func (s *sessions) lookup(id, owner string) (*session, int) {
	if id == "" {
		return nil, http.StatusBadRequest
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if ok && s.expiredLocked(sess, now) {
		delete(s.byID, id)
		ok = false
	}
	switch {
	case !ok:
		// Unknown, expired or terminated; the client must initialize again.
		return nil, http.StatusNotFound
	case sess.owner != owner:
		return nil, http.StatusForbidden
	}
	sess.lastUsed = now
	return sess, http.StatusOK
}

func (s *sessions) close(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.byID)
}

// Config holds configuration for the MCP server.
type Config struct {
	Invoker *tools.Invoker
	Logger  *slog.Logger

	// SessionIdleTimeout defaults to DefaultSessionIdleTimeout; negative disables expiry.
	SessionIdleTimeout time.Duration
}

// Server implements the MCP Streamable HTTP transport for the tool catalog.
// Authentication is applied by the caller's middleware; sessions are bound to
// whatever subject it placed in the request context.
type Server struct {
	invoker  *tools.Invoker
	logger   *slog.Logger
	sessions *sessions
	methods  map[string]method
}

// method handles one JSON-RPC method for an established session.
type method func(ctx context.Context, req Request) (any, *RPCError)

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Invoker == nil {
		return nil, errors.New("invoker is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := cfg.SessionIdleTimeout
	if ttl == 0 {
		ttl = DefaultSessionIdleTimeout
	}

	s := &Server{
		invoker:  cfg.Invoker,
		logger:   logger,
		sessions: newSessions(ttl),
	}
	s.methods = map[string]method{
		"ping":       func(context.Context, Request) (any, *RPCError) { return map[string]any{}, nil },
		"tools/list": s.listTools,
		"tools/call": s.callTool,
	}
	return s, nil
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.count()
}

// ServeHTTP accepts POST for messages and DELETE to end a session.
// Server-initiated streams (GET) are not offered.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(headerSessionID)
	if _, status := s.sessions.lookup(id, auth.SubjectFrom(r.Context())); status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	s.sessions.close(id)
	s.logger.Info("MCP session terminated", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// readRequest decodes the POST body into a single JSON-RPC request.
func readRequest(r *http.Request) (Request, *RPCError) {
	var req Request
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return req, rpcErr(JSONRPCParseError, "failed to read request body")
	}
	if len(body) > MaxRequestBodySize {
		return req, rpcErr(JSONRPCInvalidRequest, "request body too large")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, rpcErr(JSONRPCParseError, "invalid JSON")
	}
	if req.JSONRPC != "2.0" {
		return req, rpcErr(JSONRPCInvalidRequest, "invalid JSON-RPC version")
	}
	return req, nil
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	req, rerr := readRequest(r)
	if rerr != nil {
		writeResponse(w, s.logger, Response{ID: req.ID, Error: rerr})
		return
	}

	subject := auth.SubjectFrom(r.Context())
	if req.Method == "initialize" {
		s.initialize(w, req, subject)
		return
	}

	if v := r.Header.Get(headerProtocolVersion); v != "" && !supportedProtocolVersions[v] {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}
	sessionID := r.Header.Get(headerSessionID)
	if _, status := s.sessions.lookup(sessionID, subject); status != http.StatusOK {
		msg := http.StatusText(status)
		if status == http.StatusBadRequest {
			msg = "Bad Request: missing Mcp-Session-Id"
		}
		http.Error(w, msg, status)
		return
	}

	if req.isNotification() {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.logger.Debug("MCP request", "method", req.Method, "session_id", sessionID)

	handle, ok := s.methods[req.Method]
	if !ok {
		writeResponse(w, s.logger, Response{ID: req.ID, Error: rpcErr(JSONRPCMethodNotFound, "method not found")})
		return
	}
	result, rerr := handle(r.Context(), req)
	if rerr != nil {
		writeResponse(w, s.logger, Response{ID: req.ID, Error: rerr})
		return
	}
	writeResponse(w, s.logger, Response{ID: req.ID, Result: result})
}

// initialize opens a session, echoing the client's protocol version when supported.
func (s *Server) initialize(w http.ResponseWriter, req Request, subject string) {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	_ = json.Unmarshal(req.Params, &params)

	version := latestProtocolVersion
	if supportedProtocolVersions[params.ProtocolVersion] {
		version = params.ProtocolVersion
	}

	sess := s.sessions.open(version, subject)
	s.logger.Info("MCP session created",
		"session_id", sess.id,
		"protocol_version", version,
		"subject", subject,
	)

	w.Header().Set(headerSessionID, sess.id)
	writeResponse(w, s.logger, Response{ID: req.ID, Result: map[string]any{
		"protocolVersion": version,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": ServerName, "version": Version},
	}})
}

func (s *Server) listTools(_ context.Context, _ Request) (any, *RPCError) {
	descs := s.invoker.Catalog().All()
	result := ListToolsResult{Tools: make([]ToolInfo, len(descs))}
	for i, d := range descs {
		result.Tools[i] = ToolInfo{Name: d.Name, Description: d.Description, InputSchema: d.Schema}
	}
	return result, nil
}

// callTool runs one tool. Unknown tools and bad arguments are JSON-RPC
// errors; every other failure is an isError result.
func (s *Server) callTool(ctx context.Context, req Request) (any, *RPCError) {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, rpcErr(JSONRPCInvalidParams, "invalid params")
		}
	}
	if params.Name == "" {
		return nil, rpcErr(JSONRPCInvalidParams, "tool name is required")
	}

	res, err := s.invoker.Invoke(ctx, params.Name, params.Arguments)
	if te, ok := protocolError(err); ok {
		return nil, &RPCError{
			Code:    JSONRPCInvalidParams,
			Message: te.Message,
			Data:    ToolFailure{Kind: te.Kind, Code: te.Code, Message: te.Message},
		}
	}

	out := outcomeFor(res, err)
	if out.isError {
		s.logger.Warn("tool call failed", "tool_name", params.Name, "error", err)
	} else {
		s.logger.Debug("tool call complete", "tool_name", params.Name, "call_id", res.CallID, "elapsed", res.Elapsed)
	}

	return CallToolResult{
		Content:           []Content{{Type: "text", Text: out.text}},
		StructuredContent: out.structured,
		IsError:           out.isError,
	}, nil
}
