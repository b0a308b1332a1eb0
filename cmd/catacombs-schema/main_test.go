package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/invopop/jsonschema"
)

func TestWriteSchemas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schemas")
	tests := []struct {
		file   string
		schema *jsonschema.Schema
		title  string
	}{
		{"rooms.schema.json", roomSchema(), "Dungeon Room"},
		{"patterns.schema.json", patternSchema(), "Tracker Patterns"},
		{"history.schema.json", historySchema(), "Run History"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.file)
		if err := writeSchema(path, tt.schema); err != nil {
			t.Fatalf("%s: %v", tt.file, err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", tt.file, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("%s is not JSON: %v", tt.file, err)
		}
		if doc["title"] != tt.title {
			t.Errorf("%s: expected title %q, got %v", tt.file, tt.title, doc["title"])
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("%s: temporary file left behind", tt.file)
		}
	}
}
