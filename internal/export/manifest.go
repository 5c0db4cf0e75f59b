package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// Manifest summarizes an export. It is written next to the JSONL file as
// <name>.manifest.json.
type Manifest struct {
	ExportedAt time.Time      `json:"exported_at"`
	Items      int            `json:"items"`
	Monitors   int            `json:"monitors"`
	ByPeriod   map[string]int `json:"by_period"`
}

// NewManifest counts recs.
func NewManifest(recs []*Record, now time.Time) *Manifest {
	m := &Manifest{ExportedAt: now.UTC(), Items: len(recs), ByPeriod: map[string]int{}}
	for _, rec := range recs {
		m.ByPeriod[string(rec.Item.HomePeriod)]++
		m.Monitors += len(rec.Monitors)
	}
	return m
}

// ManifestPath derives the manifest path from the JSONL path.
func ManifestPath(jsonlPath string) string {
	return strings.TrimSuffix(jsonlPath, ".jsonl") + ".manifest.json"
}

// WriteManifest writes an export manifest alongside the JSONL file
func WriteManifest(jsonlPath string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := ManifestPath(jsonlPath)
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		// Non-fatal, just log
		fmt.Fprintf(os.Stderr, "Warning: failed to set manifest permissions: %v\n", err)
	}
	return nil
}
