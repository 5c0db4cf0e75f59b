package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsKnownKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"db", true},
		{"week-start", true},
		{"week_start", true},
		{"Focus.Promotion-Retries", true},
		{"dolt.auto_commit", true},
		{"sweep.interval", true},

		{"no-db", false},
		{"focus", false},
		{"dolt.socket", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsKnownKey(tt.key); got != tt.expected {
				t.Errorf("IsKnownKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestUpdateYamlKey(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		key      string
		value    string
		expected string
	}{
		{
			name:     "update commented key",
			content:  "# week-start: monday\nother: value",
			key:      "week-start",
			value:    "sunday",
			expected: "week-start: sunday\nother: value",
		},
		{
			name:     "update existing key",
			content:  "json: false\nother: value",
			key:      "json",
			value:    "true",
			expected: "json: true\nother: value",
		},
		{
			name:     "add new key",
			content:  "other: value",
			key:      "json",
			value:    "TRUE",
			expected: "other: value\n\njson: true",
		},
		{
			name:     "empty file",
			content:  "",
			key:      "backend",
			value:    "dolt",
			expected: "backend: dolt",
		},
		{
			name:     "preserve indentation",
			content:  "  # json: false\nother: value",
			key:      "json",
			value:    "true",
			expected: "  json: true\nother: value",
		},
		{
			name:     "handle duration value",
			content:  "# sweep.interval: \"5m\"",
			key:      "sweep.interval",
			value:    "30s",
			expected: "sweep.interval: 30s",
		},
		{
			name:     "dotted key is matched literally",
			content:  "sweepXinterval: 1m",
			key:      "sweep.interval",
			value:    "2m",
			expected: "sweepXinterval: 1m\n\nsweep.interval: 2m",
		},
		{
			name:     "quote special characters",
			content:  "other: value",
			key:      "actor",
			value:    "user: name",
			expected: "other: value\n\nactor: \"user: name\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := updateYamlKey(tt.content, tt.key, tt.value)
			if err != nil {
				t.Fatalf("updateYamlKey() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("updateYamlKey() =\n%q\nwant:\n%q", got, tt.expected)
			}
		})
	}
}

func TestFormatYamlValue(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"true", "true"},
		{"FALSE", "false"},
		{"123", "123"},
		{"-4", "-4"},
		{"3.14", "3.14"},
		{"30s", "30s"},
		{"5m", "5m"},
		{"2h", "2h"},
		{"simple", "simple"},
		{"Europe/Berlin", "Europe/Berlin"},
		{"has:colon", "\"has:colon\""},
		{"has#hash", "\"has#hash\""},
		{" leading", "\" leading\""},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := formatYamlValue(tt.value); got != tt.expected {
				t.Errorf("formatYamlValue(%q) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}

func TestSetYamlConfig(t *testing.T) {
	root := chdirTemp(t)
	configPath := writeProjectConfig(t, root, "# Tempo config\n# week-start: monday\nother-setting: value\n")

	got, err := SetYamlConfig("week_start", "sunday")
	if err != nil {
		t.Fatalf("SetYamlConfig() error = %v", err)
	}
	if mustEval(t, got) != mustEval(t, configPath) {
		t.Errorf("SetYamlConfig() wrote %q, want %q", got, configPath)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config.yaml: %v", err)
	}
	contentStr := string(content)
	if !strings.Contains(contentStr, "week-start: sunday") {
		t.Errorf("config.yaml should contain 'week-start: sunday', got:\n%s", contentStr)
	}
	if strings.Contains(contentStr, "# week-start") {
		t.Errorf("config.yaml should not keep the commented key, got:\n%s", contentStr)
	}
	if !strings.Contains(contentStr, "other-setting: value") {
		t.Errorf("config.yaml should preserve other settings, got:\n%s", contentStr)
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() after set: %v", err)
	}
	if got := GetYamlConfig("week-start"); got != "sunday" {
		t.Errorf("GetYamlConfig(week-start) = %q, want sunday", got)
	}
}

func TestSetYamlConfigCreatesProjectFile(t *testing.T) {
	root := chdirTemp(t)

	if _, err := SetYamlConfig("backend", "memory"); err != nil {
		t.Fatalf("SetYamlConfig() error = %v", err)
	}
	content, err := os.ReadFile(filepath.Join(root, ProjectDirName, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml was not created: %v", err)
	}
	if string(content) != "backend: memory\n" {
		t.Errorf("config.yaml = %q", content)
	}
}

func TestSetYamlConfigRejectsUnknownKey(t *testing.T) {
	chdirTemp(t)
	_, err := SetYamlConfig("no-such-key", "1")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Fatalf("SetYamlConfig() error = %v, want unknown key", err)
	}
	if _, statErr := os.Stat(ProjectDirName); !os.IsNotExist(statErr) {
		t.Error("a rejected key should not create the project directory")
	}
}

func TestSetYamlConfigRefusesBrokenFile(t *testing.T) {
	root := chdirTemp(t)
	original := "backend: [sqlite\n"
	configPath := writeProjectConfig(t, root, original)

	if _, err := SetYamlConfig("json", "true"); err == nil {
		t.Fatal("SetYamlConfig() should refuse to write invalid YAML")
	}
	content, _ := os.ReadFile(configPath)
	if string(content) != original {
		t.Errorf("config.yaml was modified: %q", content)
	}
}
