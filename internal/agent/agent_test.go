package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RobinCoderZhao/weather-agent-suite/internal/history"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/llm"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

// scriptedLLM replays a fixed sequence of responses and captures requests.
type scriptedLLM struct {
	responses []*llm.Response
	requests  []*llm.Request
}

func (s *scriptedLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLLM) GenerateJSON(ctx context.Context, req *llm.Request, out any) error {
	return fmt.Errorf("not implemented")
}

func (s *scriptedLLM) Provider() llm.Provider { return llm.Gemini }
func (s *scriptedLLM) Close() error           { return nil }

// fakeServer serves a static tool list and a canned per-tool response.
type fakeServer struct {
	name    string
	defs    []mcpserver.ToolDef
	replies map[string]string
	calls   []string
}

func (f *fakeServer) Name() string { return f.name }

func (f *fakeServer) ListTools(ctx context.Context) ([]mcpserver.ToolDef, error) {
	return f.defs, nil
}

func (f *fakeServer) CallTool(ctx context.Context, name string, args map[string]any) (*mcpserver.ToolCallResult, error) {
	f.calls = append(f.calls, name)
	reply, ok := f.replies[name]
	if !ok {
		return mcpserver.ErrorResult(fmt.Errorf("unknown tool: %s", name)), nil
	}
	return mcpserver.TextResult(reply), nil
}

func (f *fakeServer) Close() error { return nil }

func weatherFake() *fakeServer {
	return &fakeServer{
		name: "weather",
		defs: []mcpserver.ToolDef{
			{Name: "get_current_weather", Description: "Current weather", InputSchema: map[string]any{"type": "object"}},
			{Name: "get_forecast", Description: "Forecast", InputSchema: map[string]any{"type": "object"}},
		},
		replies: map[string]string{
			"get_current_weather": "24.3°C, scattered clouds",
			"get_forecast":        "5-day forecast",
		},
	}
}

func TestAgent_DirectAnswer(t *testing.T) {
	mock := &scriptedLLM{responses: []*llm.Response{
		{Content: "Hello there", TokensIn: 10, TokensOut: 5, Cost: 0.0001},
	}}

	a, err := newAgent(mock, "gemini-2.5-flash", []toolClient{weatherFake()}, nil, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	result, err := a.Ask(context.Background(), "Say hello")
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "Hello there" {
		t.Fatalf("unexpected answer: %s", result.Answer)
	}
	if result.ToolCalls != 0 {
		t.Fatalf("expected no tool calls, got %d", result.ToolCalls)
	}
	if result.TokensIn != 10 || result.TokensOut != 5 {
		t.Fatalf("unexpected tokens: %+v", result)
	}

	// Tool declarations must reach the model.
	if len(mock.requests) != 1 || len(mock.requests[0].Tools) != 2 {
		t.Fatalf("expected 2 tools forwarded, got %+v", mock.requests)
	}
}

func TestAgent_ToolCallLoop(t *testing.T) {
	fake := weatherFake()
	mock := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "get_current_weather", Args: map[string]any{"city": "Pune"}}}, TokensIn: 20, TokensOut: 8},
		{Content: "It is 24.3°C in Pune.", TokensIn: 40, TokensOut: 12},
	}}

	a, err := newAgent(mock, "gemini-2.5-flash", []toolClient{fake}, nil, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	result, err := a.Ask(context.Background(), "Weather in Pune?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Answer, "24.3°C") {
		t.Fatalf("unexpected answer: %s", result.Answer)
	}
	if result.ToolCalls != 1 {
		t.Fatalf("expected 1 tool call, got %d", result.ToolCalls)
	}
	if len(fake.calls) != 1 || fake.calls[0] != "get_current_weather" {
		t.Fatalf("unexpected tool execution: %v", fake.calls)
	}

	// Second request must carry the assistant tool call and its result.
	second := mock.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(second.Messages))
	}
	if second.Messages[1].Role != "assistant" || len(second.Messages[1].ToolCalls) != 1 {
		t.Fatalf("expected assistant tool call turn, got %+v", second.Messages[1])
	}
	toolMsg := second.Messages[2]
	if toolMsg.Role != "tool" || len(toolMsg.ToolResults) != 1 {
		t.Fatalf("expected tool result turn, got %+v", toolMsg)
	}
	if !strings.Contains(toolMsg.ToolResults[0].Content, "24.3°C") {
		t.Fatalf("unexpected tool result: %s", toolMsg.ToolResults[0].Content)
	}

	if result.TokensIn != 60 || result.TokensOut != 20 {
		t.Fatalf("expected summed tokens, got %+v", result)
	}
}

func TestAgent_UnknownTool(t *testing.T) {
	mock := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "launch_rockets", Args: map[string]any{}}}},
		{Content: "I cannot do that."},
	}}

	a, err := newAgent(mock, "gemini-2.5-flash", []toolClient{weatherFake()}, nil, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	result, err := a.Ask(context.Background(), "Launch the rockets")
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "I cannot do that." {
		t.Fatalf("unexpected answer: %s", result.Answer)
	}

	toolMsg := mock.requests[1].Messages[2]
	if !strings.Contains(toolMsg.ToolResults[0].Content, "unknown tool") {
		t.Fatalf("expected unknown tool error fed back, got %s", toolMsg.ToolResults[0].Content)
	}
}

func TestAgent_RoundLimit(t *testing.T) {
	// A model that calls tools forever must be cut off.
	var responses []*llm.Response
	for i := 0; i < maxToolRounds+1; i++ {
		responses = append(responses, &llm.Response{
			ToolCalls: []llm.ToolCall{{Name: "get_forecast", Args: map[string]any{"city": "Pune"}}},
		})
	}
	mock := &scriptedLLM{responses: responses}

	a, err := newAgent(mock, "gemini-2.5-flash", []toolClient{weatherFake()}, nil, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	_, err = a.Ask(context.Background(), "forecast loop")
	if err == nil || !strings.Contains(err.Error(), "tool rounds") {
		t.Fatalf("expected round limit error, got %v", err)
	}
}

func TestAgent_DuplicateToolName(t *testing.T) {
	a := weatherFake()
	b := &fakeServer{
		name: "other",
		defs: []mcpserver.ToolDef{{Name: "get_forecast", Description: "dup"}},
	}

	_, err := newAgent(&scriptedLLM{}, "gemini-2.5-flash", []toolClient{a, b}, nil, slog.Default())
	if err == nil || !strings.Contains(err.Error(), "offered by both") {
		t.Fatalf("expected duplicate tool error, got %v", err)
	}
}

func TestAgent_RecordsHistory(t *testing.T) {
	store, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}

	fake := weatherFake()
	mock := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "get_current_weather", Args: map[string]any{"city": "Pune"}}}},
		{Content: "Sunny.", TokensIn: 30, TokensOut: 6, Cost: 0.0002},
	}}

	a, err := newAgent(mock, "gemini-2.5-flash", []toolClient{fake}, store, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, err := a.Ask(context.Background(), "Weather in Pune?"); err != nil {
		t.Fatal(err)
	}

	queries, err := store.RecentQueries(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) != 1 || queries[0].Response != "Sunny." {
		t.Fatalf("unexpected history: %+v", queries)
	}
	calls, err := store.ToolCallsFor(context.Background(), queries[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0].Server != "weather" {
		t.Fatalf("unexpected tool call history: %+v", calls)
	}
}

func TestConfig_ServerConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weather.APIKey = "ow-key"

	servers := cfg.ServerConfigs()
	if len(servers) != 1 || servers[0].Name != "weather" {
		t.Fatalf("expected weather server only, got %+v", servers)
	}

	cfg.GitHub.Token = "ghp_test"
	servers = cfg.ServerConfigs()
	if len(servers) != 2 {
		t.Fatalf("expected weather and github servers, got %+v", servers)
	}
	gh := servers[1]
	if gh.Command != "docker" {
		t.Fatalf("expected docker command, got %s", gh.Command)
	}
	if gh.Env["GITHUB_PERSONAL_ACCESS_TOKEN"] != "ghp_test" {
		t.Fatalf("expected token in env, got %v", gh.Env)
	}
	if gh.Env["GITHUB_TOOLSETS"] != "repos,issues,pull_requests" {
		t.Fatalf("expected default toolsets, got %v", gh.Env)
	}
}

func TestLoadConfig_RequiresGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("GITHUB_TOOLSETS", "repos")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Fatalf("expected model override, got %s", cfg.Gemini.Model)
	}
	if cfg.GitHub.Toolsets != "repos" {
		t.Fatalf("expected toolsets override, got %s", cfg.GitHub.Toolsets)
	}
	if cfg.LLMConfig().APIKey != "test-key" {
		t.Fatalf("expected api key in llm config")
	}
}
