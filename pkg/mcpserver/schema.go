package mcpserver

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON Schema from a request struct type and returns
// it as the plain map shape used in tools/list responses. Pass a nil typed
// pointer, e.g. SchemaFor((*MyRequest)(nil)). Field metadata comes from
// `json` and `jsonschema` struct tags.
func SchemaFor(req any) map[string]any {
	if req == nil {
		return map[string]any{"type": "object"}
	}

	ref := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	schema := ref.Reflect(req)
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	return out
}
