package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_InvalidProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "invalid", APIKey: "test"})
	if err == nil {
		t.Fatal("expected error for invalid provider")
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(Config{Provider: Gemini})
	if err == nil {
		t.Fatal("expected error for Gemini without API key")
	}
}

func TestNewClient_Ollama(t *testing.T) {
	client, err := NewClient(Config{Provider: Ollama, BaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != Ollama {
		t.Fatalf("expected Ollama provider, got %s", client.Provider())
	}
	client.Close()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != Gemini {
		t.Fatalf("expected Gemini, got %s", cfg.Provider)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Fatalf("expected gemini-2.5-flash, got %s", cfg.Model)
	}
}

func TestEstimateCost(t *testing.T) {
	cost := EstimateCost("gemini-2.5-flash", 1000, 500)
	if cost <= 0 {
		t.Fatalf("expected positive cost, got %f", cost)
	}
	// gemini-2.5-flash: $0.30/1M in, $2.50/1M out
	expected := 0.0003 + 0.00125
	if cost < expected*0.9 || cost > expected*1.1 {
		t.Fatalf("cost %f not in expected range around %f", cost, expected)
	}
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	cost := EstimateCost("unknown-model", 1000, 500)
	if cost != 0 {
		t.Fatalf("expected 0 cost for unknown model, got %f", cost)
	}
}

func TestGemini_FunctionCall(t *testing.T) {
	var captured geminiRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"functionCall": map[string]any{
							"name": "get_current_weather",
							"args": map[string]any{"city": "Pune", "units": "metric"},
						},
					}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     12,
				"candidatesTokenCount": 8,
			},
		})
	}))
	defer ts.Close()

	client, err := NewClient(Config{
		Provider:   Gemini,
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		Model:      "gemini-2.5-flash",
		MaxRetries: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	resp, err := client.Generate(context.Background(), &Request{
		System:   "You are a weather assistant.",
		Messages: []Message{{Role: "user", Content: "What's the weather in Pune?"}},
		Tools: []Tool{{
			Name:        "get_current_weather",
			Description: "Get current weather for a city",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
			},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.Name != "get_current_weather" {
		t.Fatalf("unexpected tool name: %s", tc.Name)
	}
	if tc.Args["city"] != "Pune" {
		t.Fatalf("unexpected args: %v", tc.Args)
	}
	if resp.TokensIn != 12 || resp.TokensOut != 8 {
		t.Fatalf("unexpected token counts: %d/%d", resp.TokensIn, resp.TokensOut)
	}

	// The declarations must have been forwarded.
	if len(captured.Tools) != 1 || len(captured.Tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("expected forwarded tool declarations, got %+v", captured.Tools)
	}
	if captured.SystemInstruction == nil {
		t.Fatal("expected system instruction forwarded")
	}
}

func TestGemini_ToolResultRoundTrip(t *testing.T) {
	var captured geminiRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "It is 21.0°C in Pune."}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	defer ts.Close()

	client, err := NewClient(Config{Provider: Gemini, APIKey: "k", BaseURL: ts.URL, MaxRetries: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	resp, err := client.Generate(context.Background(), &Request{
		Messages: []Message{
			{Role: "user", Content: "What's the weather in Pune?"},
			{Role: "assistant", ToolCalls: []ToolCall{{Name: "get_current_weather", Args: map[string]any{"city": "Pune"}}}},
			{Role: "tool", ToolResults: []ToolResult{{Name: "get_current_weather", Content: "21.0°C, clear sky"}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "It is 21.0°C in Pune." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(captured.Contents))
	}
	if captured.Contents[1].Role != "model" || captured.Contents[1].Parts[0].FunctionCall == nil {
		t.Fatalf("expected model functionCall turn, got %+v", captured.Contents[1])
	}
	if captured.Contents[2].Role != "tool" || captured.Contents[2].Parts[0].FunctionResponse == nil {
		t.Fatalf("expected tool functionResponse turn, got %+v", captured.Contents[2])
	}
}

func TestRetryClient_NoRetryOnSuccess(t *testing.T) {
	calls := 0
	mock := &mockClient{
		generateFn: func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return &Response{Content: "hello"}, nil
		},
	}
	rc := wrapWithRetry(mock, 3)
	resp, err := rc.Generate(context.Background(), &Request{
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected 'hello', got '%s'", resp.Content)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryClient_NonRetryableError(t *testing.T) {
	calls := 0
	mock := &mockClient{
		generateFn: func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return nil, errors.New("Gemini API error (400): invalid argument")
		},
	}
	rc := wrapWithRetry(mock, 3)
	_, err := rc.Generate(context.Background(), &Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected no retry on 400, got %d calls", calls)
	}
}

type mockClient struct {
	generateFn func(ctx context.Context, req *Request) (*Response, error)
}

func (m *mockClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	return m.generateFn(ctx, req)
}
func (m *mockClient) GenerateJSON(ctx context.Context, req *Request, out any) error {
	return nil
}
func (m *mockClient) Provider() Provider { return "mock" }
func (m *mockClient) Close() error       { return nil }
