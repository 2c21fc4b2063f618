// Package mcpclient implements an MCP client over stdio.
//
// A Client spawns an MCP server as a subprocess, speaks JSON-RPC 2.0 over
// its stdin/stdout, and exposes the initialize / tools/list / tools/call
// handshake. Wire types are shared with pkg/mcpserver.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

// ServerConfig describes how to launch an MCP server subprocess.
type ServerConfig struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// Client is a connection to a single MCP server subprocess.
type Client struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger

	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *mcpserver.JSONRPCResponse
	closed  bool

	serverInfo mcpserver.ServerInfo
}

// ErrClosed is returned for calls on a closed client.
var ErrClosed = errors.New("mcp client closed")

// Spawn starts the server subprocess and begins reading responses. The
// server's stderr is passed through to this process's stderr so its logs
// stay visible. Call Initialize before issuing tool requests.
func Spawn(ctx context.Context, cfg ServerConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	c := newClient(cfg.Name, stdin, stdout, logger)
	c.cmd = cmd

	logger.Info("spawned MCP server", "name", cfg.Name, "command", cfg.Command)
	return c, nil
}

// newClient wires a client to an arbitrary stream pair. Split out from
// Spawn so tests can connect over in-process pipes.
func newClient(name string, stdin io.WriteCloser, stdout io.Reader, logger *slog.Logger) *Client {
	c := &Client{
		name:    name,
		stdin:   stdin,
		enc:     json.NewEncoder(stdin),
		pending: make(map[int64]chan *mcpserver.JSONRPCResponse),
		logger:  logger,
	}
	go c.readLoop(stdout)
	return c
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.name }

// ServerInfo returns the server identity reported at initialize.
func (c *Client) ServerInfo() mcpserver.ServerInfo { return c.serverInfo }

func (c *Client) readLoop(r io.Reader) {
	dec := json.NewDecoder(r)
	for {
		var resp mcpserver.JSONRPCResponse
		if err := dec.Decode(&resp); err != nil {
			if err != io.EOF {
				c.logger.Error("mcp read loop ended", "server", c.name, "error", err)
			}
			c.failPending()
			return
		}

		id, ok := responseID(resp.ID)
		if !ok {
			// Server-initiated notification; nothing to correlate.
			continue
		}

		c.mu.Lock()
		ch := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()

		if ch != nil {
			ch <- &resp
		}
	}
}

// responseID normalizes the JSON-decoded id (float64 for numbers) back to
// the int64 keys used for correlation.
func responseID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	default:
		return 0, false
	}
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.closed = true
}

// call sends a request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *mcpserver.JSONRPCResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := mcpserver.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	c.writeMu.Lock()
	err := c.enc.Encode(&req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrClosed)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: rpc error %d: %s", method, resp.Error.Code, resp.Error.Message)
		}
		if out == nil {
			return nil
		}
		raw, err := json.Marshal(resp.Result)
		if err != nil {
			return fmt.Errorf("%s: marshal result: %w", method, err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	}
}

// notify sends a notification (no id, no response expected).
func (c *Client) notify(method string) error {
	req := mcpserver.JSONRPCRequest{JSONRPC: "2.0", Method: method}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.Encode(&req)
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) (*mcpserver.InitializeResult, error) {
	var result mcpserver.InitializeResult
	if err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "weather-agent-suite", "version": "1.0"},
	}, &result); err != nil {
		return nil, err
	}
	c.serverInfo = result.ServerInfo
	if err := c.notify("notifications/initialized"); err != nil {
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	return &result, nil
}

// ListTools returns the server's tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]mcpserver.ToolDef, error) {
	var result mcpserver.ToolsListResult
	if err := c.call(ctx, "tools/list", map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool by name.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcpserver.ToolCallResult, error) {
	var result mcpserver.ToolCallResult
	if err := c.call(ctx, "tools/call", mcpserver.ToolCallParams{
		Name:      name,
		Arguments: args,
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close shuts the server down: close stdin, wait briefly, then kill.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.stdin.Close()
	if c.cmd == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		c.cmd.Process.Kill()
		return <-done
	}
}
