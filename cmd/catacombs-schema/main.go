package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/oriumgames/catacombs"
)

// patternDocument mirrors catacombs.PatternDocument. Patterns are either a
// string or a [pattern, flags] pair, which the reflector cannot express.
type patternDocument struct {
	Version int                               `json:"version" jsonschema:"required,minimum=0"`
	Regex   map[string]map[string]interface{} `json:"regex" jsonschema:"required"`
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas to")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schemas := map[string]*jsonschema.Schema{
		"rooms.schema.json":    roomSchema(),
		"patterns.schema.json": patternSchema(),
		"history.schema.json":  historySchema(),
	}
	for name, schema := range schemas {
		if err := writeSchema(filepath.Join(outDir, name), schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func roomSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(catacombs.RoomData))
	schema.Title = "Dungeon Room"
	schema.Description = "One entry of the room database array, identified by the core hashes of its components"
	return schema
}

func patternSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(patternDocument))
	schema.Title = "Tracker Patterns"
	schema.Description = "Versioned regular expressions grouped by feature; the Dungeons group drives the tracker"
	return schema
}

func historySchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(catacombs.History))
	schema.Title = "Run History"
	schema.Description = "Last recorded run and the best run of every floor"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
