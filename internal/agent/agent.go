// Package agent wires a Gemini model to MCP tool servers. It spawns the
// configured servers, advertises their tools to the model, executes the
// tool calls the model requests, and feeds the results back until the
// model produces a final answer.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/RobinCoderZhao/weather-agent-suite/internal/history"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/llm"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpclient"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

// maxToolRounds bounds the generate/execute loop so a confused model
// cannot spin forever.
const maxToolRounds = 8

const systemPrompt = `You are a helpful assistant with access to weather and GitHub tools.
Use the provided tools to answer questions about current weather, forecasts,
temperature conversions, and GitHub repositories. Answer directly when no
tool is needed. Keep answers concise.`

// toolClient is the subset of mcpclient.Client the agent needs. Tests
// substitute in-process fakes.
type toolClient interface {
	Name() string
	ListTools(ctx context.Context) ([]mcpserver.ToolDef, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcpserver.ToolCallResult, error)
	Close() error
}

// Agent drives a Gemini conversation over a set of MCP tool servers.
type Agent struct {
	llm     llm.Client
	model   string
	clients []toolClient
	// byTool maps a tool name to the client that serves it.
	byTool map[string]toolClient
	tools  []llm.Tool
	store  *history.Store
	logger *slog.Logger
}

// Result summarizes one answered query.
type Result struct {
	Answer    string
	ToolCalls int
	TokensIn  int
	TokensOut int
	Cost      float64
}

// New connects to the configured MCP servers and builds an agent. Callers
// must Close the agent to shut the server subprocesses down.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	llmClient, err := llm.NewClient(cfg.LLMConfig())
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	var clients []toolClient
	for _, sc := range cfg.ServerConfigs() {
		c, err := mcpclient.Spawn(ctx, sc, logger)
		if err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("spawn %s: %w", sc.Name, err)
		}
		if _, err := c.Initialize(ctx); err != nil {
			c.Close()
			closeAll(clients)
			return nil, fmt.Errorf("initialize %s: %w", sc.Name, err)
		}
		clients = append(clients, c)
	}

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.New(cfg.History.Path)
		if err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	a, err := newAgent(llmClient, cfg.Gemini.Model, clients, store, logger)
	if err != nil {
		closeAll(clients)
		return nil, err
	}
	return a, nil
}

// newAgent assembles an agent from already-connected pieces. Split out
// from New so tests can inject fakes.
func newAgent(llmClient llm.Client, model string, clients []toolClient, store *history.Store, logger *slog.Logger) (*Agent, error) {
	a := &Agent{
		llm:     llmClient,
		model:   model,
		clients: clients,
		byTool:  make(map[string]toolClient),
		store:   store,
		logger:  logger,
	}
	if err := a.discoverTools(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

func closeAll(clients []toolClient) {
	for _, c := range clients {
		c.Close()
	}
}

// discoverTools lists every server's tools and builds the routing table.
// Duplicate tool names across servers are an error: the model addresses
// tools by bare name.
func (a *Agent) discoverTools(ctx context.Context) error {
	for _, c := range a.clients {
		defs, err := c.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("list tools on %s: %w", c.Name(), err)
		}
		for _, def := range defs {
			if prev, ok := a.byTool[def.Name]; ok {
				return fmt.Errorf("tool %s offered by both %s and %s", def.Name, prev.Name(), c.Name())
			}
			a.byTool[def.Name] = c
			a.tools = append(a.tools, llm.Tool{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			})
		}
		a.logger.Info("discovered tools", "server", c.Name(), "count", len(defs))
	}
	sort.Slice(a.tools, func(i, j int) bool { return a.tools[i].Name < a.tools[j].Name })
	return nil
}

// Tools returns the discovered tool declarations, sorted by name.
func (a *Agent) Tools() []llm.Tool { return a.tools }

// History returns the query history store, or nil when disabled.
func (a *Agent) History() *history.Store { return a.store }

// Ask answers a single query, executing whatever tool calls the model
// requests along the way.
func (a *Agent) Ask(ctx context.Context, query string) (*Result, error) {
	messages := []llm.Message{{Role: "user", Content: query}}
	result := &Result{}

	var toolRecords []history.ToolCallRecord

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.llm.Generate(ctx, &llm.Request{
			System:   systemPrompt,
			Messages: messages,
			Tools:    a.tools,
		})
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		result.TokensIn += resp.TokensIn
		result.TokensOut += resp.TokensOut
		result.Cost += resp.Cost

		if len(resp.ToolCalls) == 0 {
			result.Answer = resp.Content
			a.record(ctx, query, result, toolRecords)
			return result, nil
		}

		messages = append(messages, llm.Message{Role: "assistant", ToolCalls: resp.ToolCalls})

		var results []llm.ToolResult
		for _, call := range resp.ToolCalls {
			text, isErr := a.execute(ctx, call)
			results = append(results, llm.ToolResult{Name: call.Name, Content: text})
			toolRecords = append(toolRecords, history.ToolCallRecord{
				Server:    a.serverFor(call.Name),
				Tool:      call.Name,
				Arguments: call.Args,
				Result:    text,
				IsError:   isErr,
			})
			result.ToolCalls++
		}
		messages = append(messages, llm.Message{Role: "tool", ToolResults: results})
	}

	return nil, fmt.Errorf("no final answer after %d tool rounds", maxToolRounds)
}

// execute runs one tool call and renders its outcome as text for the
// model. Failures are reported to the model, not returned as errors, so
// it can recover or explain.
func (a *Agent) execute(ctx context.Context, call llm.ToolCall) (string, bool) {
	a.logger.Info("executing tool", "tool", call.Name, "args", call.Args)

	client, ok := a.byTool[call.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %s", call.Name), true
	}

	res, err := client.CallTool(ctx, call.Name, call.Args)
	if err != nil {
		return fmt.Sprintf("Error calling %s: %v", call.Name, err), true
	}
	return res.Text(), res.IsError
}

func (a *Agent) serverFor(tool string) string {
	if c, ok := a.byTool[tool]; ok {
		return c.Name()
	}
	return ""
}

// record persists the query and its tool calls. History failures are
// logged, never surfaced: answering the user matters more.
func (a *Agent) record(ctx context.Context, query string, result *Result, calls []history.ToolCallRecord) {
	if a.store == nil {
		return
	}
	id, err := a.store.SaveQuery(ctx, &history.QueryRecord{
		Query:     query,
		Response:  result.Answer,
		Model:     a.model,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
		Cost:      result.Cost,
	})
	if err != nil {
		a.logger.Error("save query history", "error", err)
		return
	}
	for i := range calls {
		calls[i].QueryID = id
		if err := a.store.SaveToolCall(ctx, &calls[i]); err != nil {
			a.logger.Error("save tool call history", "error", err)
		}
	}
}

// Close shuts down the LLM client, the MCP server subprocesses, and the
// history store.
func (a *Agent) Close() error {
	var firstErr error
	if err := a.llm.Close(); err != nil {
		firstErr = err
	}
	for _, c := range a.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
