package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// KnownKeys are the settings `tempo config set` accepts.
var KnownKeys = map[string]bool{
	"db":           true,
	"backend":      true,
	"json":         true,
	"actor":        true,
	"lock-timeout": true,
	"event-log":    true,
	"pager":        true,
	"no-pager":     true,

	// Calendar
	"week-start": true,
	"timezone":   true,

	// Focus queue
	"focus.promotion-retries": true,
	"focus.retry-max-elapsed": true,
	"sweep.interval":          true,

	// Dolt server mode
	"dolt.host":        true,
	"dolt.port":        true,
	"dolt.user":        true,
	"dolt.password":    true,
	"dolt.database":    true,
	"dolt.auto-commit": true,
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	return KnownKeys[normalizeYamlKey(key)]
}

// SortedKnownKeys returns KnownKeys in order.
func SortedKnownKeys() []string {
	keys := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeYamlKey maps the underscore spelling of a key to its canonical
// dashed form (focus.promotion_retries -> focus.promotion-retries).
func normalizeYamlKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "_", "-")
}

// SetYamlConfig sets a configuration value in the project's config.yaml file.
// It handles both adding new keys and updating existing (possibly commented) keys.
// Without a project config one is created in ./.tempo.
func SetYamlConfig(key, value string) (string, error) {
	key = normalizeYamlKey(key)
	if !KnownKeys[key] {
		return "", fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(SortedKnownKeys(), ", "))
	}

	configPath, err := findProjectConfigYaml()
	if err != nil {
		cwd, werr := os.Getwd()
		if werr != nil {
			return "", fmt.Errorf("failed to get working directory: %w", werr)
		}
		configPath = filepath.Join(cwd, ProjectDirName, "config.yaml")
		if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(configPath), err)
		}
	}

	content, err := os.ReadFile(configPath) //nolint:gosec // configPath is from findProjectConfigYaml
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read config.yaml: %w", err)
	}

	newContent, err := updateYamlKey(string(content), key, value)
	if err != nil {
		return "", err
	}
	// Refuse to write a file viper could not read back.
	var probe map[string]interface{}
	if err := yaml.Unmarshal([]byte(newContent), &probe); err != nil {
		return "", fmt.Errorf("config.yaml would not be valid YAML: %w", err)
	}

	if !strings.HasSuffix(newContent, "\n") {
		newContent += "\n"
	}
	if err := os.WriteFile(configPath, []byte(newContent), 0600); err != nil { //nolint:gosec // configPath is validated
		return "", fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return configPath, nil
}

// GetYamlConfig gets a configuration value from the loaded configuration.
// Returns empty string if key is not found.
func GetYamlConfig(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(normalizeYamlKey(key))
}

// findProjectDir finds the nearest .tempo directory at or above the working
// directory.
func findProjectDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no %s directory found", ProjectDirName)
}

// findProjectConfigYaml finds the project's .tempo/config.yaml file.
func findProjectConfigYaml() (string, error) {
	dir, err := findProjectDir()
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		return "", fmt.Errorf("no %s/config.yaml found", ProjectDirName)
	}
	return configPath, nil
}

// updateYamlKey updates a key in yaml content, handling commented-out keys.
// If the key exists (commented or not), it updates it in place.
// If the key doesn't exist, it appends it at the end.
//
//nolint:unparam // error return kept for future validation
func updateYamlKey(content, key, value string) (string, error) {
	// Format the value appropriately
	formattedValue := formatYamlValue(value)
	newLine := fmt.Sprintf("%s: %s", key, formattedValue)

	// Build regex to match the key (commented or not)
	// Matches: "key: value" or "# key: value" with optional leading whitespace
	keyPattern := regexp.MustCompile(`^(\s*)(#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	found := false
	var result []string

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if keyPattern.MatchString(line) {
			// Found the key - replace with new value (uncommented)
			// Preserve leading whitespace
			matches := keyPattern.FindStringSubmatch(line)
			indent := ""
			if len(matches) > 1 {
				indent = matches[1]
			}
			result = append(result, indent+newLine)
			found = true
		} else {
			result = append(result, line)
		}
	}

	if !found {
		// Key not found - append at end
		// Add blank line before if content doesn't end with one
		if len(result) > 0 && result[len(result)-1] != "" {
			result = append(result, "")
		}
		result = append(result, newLine)
	}

	return strings.Join(result, "\n"), nil
}

// formatYamlValue formats a value appropriately for YAML.
func formatYamlValue(value string) string {
	// Boolean values
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return lower
	}

	// Numeric values - return as-is
	if isNumeric(value) {
		return value
	}

	// Duration values (like "30s", "5m") - return as-is
	if isDuration(value) {
		return value
	}

	// String values that need quoting
	if needsQuoting(value) {
		return fmt.Sprintf("%q", value)
	}

	return value
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' && i == 0 {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isDuration(s string) bool {
	if len(s) < 2 {
		return false
	}
	suffix := s[len(s)-1]
	if suffix != 's' && suffix != 'm' && suffix != 'h' {
		return false
	}
	return isNumeric(s[:len(s)-1])
}

func needsQuoting(s string) bool {
	// Quote if contains special YAML characters
	special := []string{":", "#", "[", "]", "{", "}", ",", "&", "*", "!", "|", ">", "'", "\"", "%", "@", "`"}
	for _, c := range special {
		if strings.Contains(s, c) {
			return true
		}
	}
	// Quote if starts/ends with whitespace
	if strings.TrimSpace(s) != s {
		return true
	}
	return false
}
