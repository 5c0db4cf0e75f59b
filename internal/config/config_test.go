package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata" // Europe/Berlin in TestGetCalendar

	"github.com/steveyegge/tempo/internal/storage/dolt"
)

func TestInitialize(t *testing.T) {
	chdirTemp(t)
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if v == nil {
		t.Fatal("viper instance is nil after Initialize()")
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed() = %q, want none", got)
	}
}

func TestDefaults(t *testing.T) {
	chdirTemp(t)
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"json", false, func(k string) interface{} { return GetBool(k) }},
		{"db", "", func(k string) interface{} { return GetString(k) }},
		{"backend", "sqlite", func(k string) interface{} { return GetString(k) }},
		{"lock-timeout", 30 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"week-start", "monday", func(k string) interface{} { return GetString(k) }},
		{"focus.promotion-retries", 5, func(k string) interface{} { return GetInt(k) }},
		{"focus.retry-max-elapsed", 2 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"sweep.interval", time.Minute, func(k string) interface{} { return GetDuration(k) }},
		{"dolt.port", 3307, func(k string) interface{} { return GetInt(k) }},
		{"dolt.auto-commit", false, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"TEMPO_JSON", "json", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"TEMPO_DB", "db", "/tmp/test.db", "/tmp/test.db", func(k string) interface{} { return GetString(k) }},
		{"TEMPO_WEEK_START", "week-start", "sunday", "sunday", func(k string) interface{} { return GetString(k) }},
		{"TEMPO_FOCUS_PROMOTION_RETRIES", "focus.promotion-retries", "9", 9, func(k string) interface{} { return GetInt(k) }},
		{"TEMPO_SWEEP_INTERVAL", "sweep.interval", "10s", 10 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"TEMPO_DOLT_HOST", "dolt.host", "db.internal", "db.internal", func(k string) interface{} { return GetString(k) }},
		{"TEMPO_PAGER", "pager", "less -S", "less -S", func(k string) interface{} { return GetString(k) }},
		{"TEMPO_NO_PAGER", "no-pager", "1", true, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.envVar, tt.value)
			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}

			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("GetXXX(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
			if !IsSet(tt.key) {
				t.Errorf("IsSet(%q) = false with %s set", tt.key, tt.envVar)
			}
		})
	}
}

func writeProjectConfig(t *testing.T, root, content string) string {
	t.Helper()
	dir := filepath.Join(root, ProjectDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestProjectConfigFoundFromSubdirectory(t *testing.T) {
	root := chdirTemp(t)
	path := writeProjectConfig(t, root, "week-start: sunday\nfocus:\n  promotion-retries: 2\n")

	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got, _ := filepath.EvalSymlinks(ConfigFileUsed()); got != mustEval(t, path) {
		t.Errorf("ConfigFileUsed() = %q, want %q", ConfigFileUsed(), path)
	}
	if got := GetString("week-start"); got != "sunday" {
		t.Errorf("week-start = %q, want sunday", got)
	}
	if got := GetPromotionRetries(); got != 2 {
		t.Errorf("GetPromotionRetries() = %d, want 2", got)
	}
	if !IsSet("week-start") {
		t.Error("IsSet(week-start) = false for a key from the file")
	}
}

func mustEval(t *testing.T, p string) string {
	t.Helper()
	out, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestUserConfigUsedOutsideProject(t *testing.T) {
	chdirTemp(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	userPath := filepath.Join(xdg, "tempo", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(userPath), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userPath, []byte("backend: memory\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetBackend(); got != "memory" {
		t.Errorf("GetBackend() = %q, want memory", got)
	}
}

func TestConfigPrecedence(t *testing.T) {
	root := chdirTemp(t)
	writeProjectConfig(t, root, "backend: dolt\nactor: fileuser\n")

	// File beats default.
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetBackend(); got != "dolt" {
		t.Errorf("backend from file = %q, want dolt", got)
	}

	// Env beats file.
	t.Setenv("TEMPO_ACTOR", "envuser")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("actor"); got != "envuser" {
		t.Errorf("actor = %q, want envuser", got)
	}

	// Explicit Set beats env.
	Set("actor", "flaguser")
	if got := GetString("actor"); got != "flaguser" {
		t.Errorf("actor after Set = %q, want flaguser", got)
	}
}

func TestExplicitConfigPath(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("timezone: UTC\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEMPO_CONFIG", path)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := ConfigFileUsed(); got != path {
		t.Errorf("ConfigFileUsed() = %q, want %q", got, path)
	}
}

func TestInvalidConfigFile(t *testing.T) {
	root := chdirTemp(t)
	writeProjectConfig(t, root, "week-start: [unterminated\n")
	if err := Initialize(); err == nil {
		t.Fatal("Initialize() accepted malformed YAML")
	}
}

func TestGetCalendar(t *testing.T) {
	tests := []struct {
		name      string
		timezone  string
		weekStart string
		wantLoc   string
		wantDay   time.Weekday
	}{
		{"defaults", "", "", time.Local.String(), time.Monday},
		{"utc sunday", "UTC", "sunday", "UTC", time.Sunday},
		{"short weekday", "Europe/Berlin", "Sat", "Europe/Berlin", time.Saturday},
		{"invalid values fall back", "Mars/Olympus", "someday", time.Local.String(), time.Monday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetForTesting()
			Set("timezone", tt.timezone)
			if tt.weekStart != "" {
				Set("week-start", tt.weekStart)
			}
			cal := GetCalendar()
			if got := cal.Location.String(); got != tt.wantLoc {
				t.Errorf("location = %q, want %q", got, tt.wantLoc)
			}
			if cal.WeekStart != tt.wantDay {
				t.Errorf("week start = %v, want %v", cal.WeekStart, tt.wantDay)
			}
		})
	}
}

func TestGetDBPath(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		chdirTemp(t)
		ResetForTesting()
		Set("db", "/data/x.db")
		if got := GetDBPath(); got != "/data/x.db" {
			t.Errorf("GetDBPath() = %q", got)
		}
	})

	t.Run("project directory", func(t *testing.T) {
		root := chdirTemp(t)
		if err := os.Mkdir(filepath.Join(root, ProjectDirName), 0o750); err != nil {
			t.Fatal(err)
		}
		ResetForTesting()
		want := filepath.Join(mustEval(t, root), ProjectDirName, "tempo.db")
		got, _ := filepath.EvalSymlinks(filepath.Dir(GetDBPath()))
		if filepath.Join(got, "tempo.db") != want {
			t.Errorf("GetDBPath() = %q, want %q", GetDBPath(), want)
		}
	})

	t.Run("user data directory", func(t *testing.T) {
		chdirTemp(t)
		data := t.TempDir()
		t.Setenv("XDG_DATA_HOME", data)
		ResetForTesting()
		if got, want := GetDBPath(), filepath.Join(data, "tempo", "tempo.db"); got != want {
			t.Errorf("GetDBPath() = %q, want %q", got, want)
		}
	})
}

func TestGetDoltConfig(t *testing.T) {
	ResetForTesting()
	Set("dolt.port", 13306)
	Set("dolt.database", "habits")

	want := dolt.Config{Host: "127.0.0.1", Port: 13306, User: "root", Database: "habits"}
	if got := GetDoltConfig(); got != want {
		t.Errorf("GetDoltConfig() = %+v, want %+v", got, want)
	}
}

func TestNumericGuards(t *testing.T) {
	ResetForTesting()
	Set("focus.promotion-retries", -3)
	Set("sweep.interval", "0s")

	if got := GetPromotionRetries(); got != 0 {
		t.Errorf("GetPromotionRetries() = %d, want 0", got)
	}
	if got := GetSweepInterval(); got != time.Minute {
		t.Errorf("GetSweepInterval() = %v, want 1m", got)
	}
}

func TestAllKeysIncludesDefaults(t *testing.T) {
	ResetForTesting()
	seen := map[string]bool{}
	for _, k := range AllKeys() {
		seen[k] = true
	}
	for _, k := range SortedKnownKeys() {
		if !seen[k] {
			t.Errorf("AllKeys() is missing %q", k)
		}
	}
}
