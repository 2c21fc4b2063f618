package mcpserver

import (
	"testing"
	"time"
)

type weatherRequest struct {
	City  string `json:"city" jsonschema:"title=City,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"title=Units"`
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor((*weatherRequest)(nil))

	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", schema["properties"])
	}
	city, ok := props["city"].(map[string]any)
	if !ok {
		t.Fatal("expected city property")
	}
	if city["type"] != "string" {
		t.Fatalf("expected string city, got %v", city["type"])
	}
	if city["description"] != "City name" {
		t.Fatalf("expected description from tag, got %v", city["description"])
	}

	required, ok := schema["required"].([]any)
	if !ok || len(required) != 1 || required[0] != "city" {
		t.Fatalf("expected only city required, got %v", schema["required"])
	}
}

func TestSchemaFor_Nil(t *testing.T) {
	schema := SchemaFor(nil)
	if schema["type"] != "object" {
		t.Fatalf("expected bare object schema, got %v", schema)
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueToken(secret, "agent", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
}
