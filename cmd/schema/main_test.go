package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSchemasProducesValidJSON(t *testing.T) {
	dir := t.TempDir()
	for name, schema := range buildSchemas() {
		path := filepath.Join(dir, name)
		if err := writeSchema(path, schema); err != nil {
			t.Fatalf("writeSchema(%s) returned error: %v", name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("expected %s to be valid JSON: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "client_message.schema.json"))
	if err != nil {
		t.Fatalf("failed to read client schema: %v", err)
	}
	for _, want := range []string{"input_move", "request_skill", "break_jail"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected client schema to mention %q", want)
		}
	}
}
