package mcpserver

import "context"

// ToolHandler is the interface implemented by MCP tools.
type ToolHandler interface {
	// Name returns the unique tool name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input.
	InputSchema() map[string]any

	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args map[string]any) (*ToolCallResult, error)
}

// BaseTool provides a base implementation for common tool fields.
// Embed this in your tool structs and implement Execute().
type BaseTool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      map[string]any
}

func (t *BaseTool) Name() string                { return t.ToolName }
func (t *BaseTool) Description() string         { return t.ToolDescription }
func (t *BaseTool) InputSchema() map[string]any { return t.ToolSchema }

// ToolFunc adapts a plain function into a ToolHandler. The schema is
// reflected from the request struct type; see SchemaFor.
type ToolFunc struct {
	BaseTool
	Fn func(ctx context.Context, args map[string]any) (*ToolCallResult, error)
}

// NewToolFunc builds a ToolHandler from a name, description, a request
// struct prototype (pass a nil typed pointer, e.g. (*MyRequest)(nil)),
// and a handler function.
func NewToolFunc(name, description string, req any, fn func(ctx context.Context, args map[string]any) (*ToolCallResult, error)) *ToolFunc {
	return &ToolFunc{
		BaseTool: BaseTool{
			ToolName:        name,
			ToolDescription: description,
			ToolSchema:      SchemaFor(req),
		},
		Fn: fn,
	}
}

func (t *ToolFunc) Execute(ctx context.Context, args map[string]any) (*ToolCallResult, error) {
	return t.Fn(ctx, args)
}

// Middleware is a function that wraps a request handler.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc is a function that handles a JSON-RPC request.
type HandlerFunc func(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse
