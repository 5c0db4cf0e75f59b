// Package importer loads plan files and creates their items through the
// engine. Plans are TOML or YAML documents with an items list, or the JSON
// lines written by the export package.
package importer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/tempo/internal/export"
)

// Plan is the parsed contents of a plan file.
type Plan struct {
	Items []PlanItem `toml:"items" yaml:"items"`
}

// PlanItem describes one item to create. Due accepts anything
// timeparsing.ParseDueDate understands ("2025-07-01", "+3d", "next friday").
type PlanItem struct {
	ID       string   `toml:"id" yaml:"id"`
	Name     string   `toml:"name" yaml:"name"`
	Period   string   `toml:"period" yaml:"period"`
	Priority int      `toml:"priority" yaml:"priority"`
	Due      string   `toml:"due" yaml:"due"`
	Monitor  []string `toml:"monitor" yaml:"monitor"`

	// record is set for items read from an export; it carries the full
	// lifecycle instead of the plan fields.
	record *export.Record
}

// Format names a plan encoding.
type Format string

const (
	FormatTOML  Format = "toml"
	FormatYAML  Format = "yaml"
	FormatJSONL Format = "jsonl"
)

// DetectFormat picks the encoding from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".jsonl", ".json":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unsupported plan file %q (want .toml, .yaml, .yml or .jsonl)", path)
}

// ParseFile reads and parses the plan at path.
func ParseFile(path string) (*Plan, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	plan, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*Plan, error) {
	var plan Plan
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &plan); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSONL:
		items, err := parseJSONL(data)
		if err != nil {
			return nil, err
		}
		plan.Items = items
	default:
		return nil, fmt.Errorf("unknown plan format %q", format)
	}
	return &plan, nil
}

func parseJSONL(data []byte) ([]PlanItem, error) {
	var items []PlanItem
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec export.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		monitors := make([]string, 0, len(rec.Monitors))
		for _, k := range rec.Monitors {
			monitors = append(monitors, string(k))
		}
		items = append(items, PlanItem{
			ID:       rec.Item.ID,
			Name:     rec.Item.Name,
			Period:   string(rec.Item.HomePeriod),
			Priority: rec.Item.Priority,
			Monitor:  monitors,
			record:   &rec,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return items, nil
}
