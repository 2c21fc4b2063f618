// Package mcpserver provides an embeddable MCP (Model Context Protocol) server.
//
// It speaks JSON-RPC 2.0 over stdio or HTTP/SSE, manages sessions, supports
// middleware chains, and exposes a small tool registration interface.
//
// Quick start:
//
//	server := mcpserver.New("my-server", "1.0.0")
//	server.RegisterTool(&MyTool{})
//	server.RunStdio(ctx) // or server.RunHTTP(":8080")
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const protocolVersion = "2024-11-05"

// Server is the core MCP server that manages tools and handles JSON-RPC requests.
type Server struct {
	name       string
	version    string
	tools      map[string]ToolHandler
	sessions   map[string]time.Time
	sessionMu  sync.RWMutex
	middleware []Middleware
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. The stdio transport owns stdout, so
// pass a handler that writes to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a new MCP server with the given name and version.
func New(name, version string, opts ...Option) *Server {
	s := &Server{
		name:     name,
		version:  version,
		tools:    make(map[string]ToolHandler),
		sessions: make(map[string]time.Time),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTool adds a tool to the server.
func (s *Server) RegisterTool(tool ToolHandler) {
	s.tools[tool.Name()] = tool
	s.logger.Info("registered tool", "name", tool.Name())
}

// RegisterTools adds multiple tools to the server.
func (s *Server) RegisterTools(tools ...ToolHandler) {
	for _, tool := range tools {
		s.RegisterTool(tool)
	}
}

// Use adds middleware to the server's processing chain.
func (s *Server) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
}

// RunStdio starts the server on stdin/stdout and blocks until EOF or
// context cancellation.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve runs the JSON-RPC loop on the given reader/writer pair. Exposed
// separately from RunStdio so transports and tests can supply pipes.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.Info("starting MCP server", "name", s.name, "version", s.version, "tools", len(s.tools))

	decoder := json.NewDecoder(r)
	encoder := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req JSONRPCRequest
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}

		resp := s.HandleRequest(ctx, &req)
		if resp == nil {
			continue // notification, no response expected
		}

		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

// HandleRequest processes a single JSON-RPC request and returns a response,
// or nil for notifications.
func (s *Server) HandleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	handler := s.coreHandler
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	return handler(ctx, req)
}

func (s *Server) coreHandler(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = s.handleInitialize()
	case "notifications/initialized":
		s.logger.Info("client initialized")
		return nil
	case "tools/list":
		resp.Result = s.handleToolsList()
	case "tools/call":
		resp.Result = s.handleToolCall(ctx, req.Params)
	default:
		resp.Error = &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return resp
}

func (s *Server) handleInitialize() *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapabilities{
			Tools: ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
		SessionID: s.createSession(),
	}
}

func (s *Server) handleToolsList() *ToolsListResult {
	tools := make([]ToolDef, 0, len(s.tools))
	for _, h := range s.tools {
		tools = append(tools, ToolDef{
			Name:        h.Name(),
			Description: h.Description(),
			InputSchema: h.InputSchema(),
		})
	}
	// Map iteration order is random; keep listings stable for clients.
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return &ToolsListResult{Tools: tools}
}

func (s *Server) handleToolCall(ctx context.Context, params any) any {
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return ErrorResult(fmt.Errorf("parse params: %w", err))
	}

	var callParams ToolCallParams
	if err := json.Unmarshal(paramsBytes, &callParams); err != nil {
		return ErrorResult(fmt.Errorf("unmarshal params: %w", err))
	}

	tool, ok := s.tools[callParams.Name]
	if !ok {
		return ErrorResult(fmt.Errorf("tool not found: %s", callParams.Name))
	}

	start := time.Now()
	result, err := tool.Execute(ctx, callParams.Arguments)
	observeToolCall(callParams.Name, time.Since(start), err != nil || (result != nil && result.IsError))
	if err != nil {
		return ErrorResult(err)
	}
	return result
}

// Session management

func (s *Server) createSession() string {
	id := uuid.NewString()
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessions[id] = time.Now()
	return id
}

// CheckSession verifies if a session ID is valid.
func (s *Server) CheckSession(id string) bool {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}
