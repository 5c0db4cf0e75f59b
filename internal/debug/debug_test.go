package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	oldErr, oldOut := stderr, stdout
	var errBuf, outBuf bytes.Buffer
	SetOutput(&errBuf, &outBuf)
	t.Cleanup(func() { SetOutput(oldErr, oldOut) })
	return &errBuf, &outBuf
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     bool
	}{
		{"enabled with value", "1", true},
		{"enabled with any value", "true", true},
		{"disabled when empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled := enabled
			defer func() { enabled = oldEnabled }()

			enabled = tt.envValue != ""

			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		format     string
		args       []interface{}
		wantOutput string
	}{
		{
			name:       "outputs when enabled",
			enabled:    true,
			format:     "test message: %s\n",
			args:       []interface{}{"hello"},
			wantOutput: "test message: hello\n",
		},
		{
			name:       "no output when disabled",
			enabled:    false,
			format:     "test message: %s\n",
			args:       []interface{}{"hello"},
			wantOutput: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled := enabled
			defer func() { enabled = oldEnabled }()
			enabled = tt.enabled

			errBuf, _ := captureOutput(t)
			Logf(tt.format, tt.args...)

			if got := errBuf.String(); got != tt.wantOutput {
				t.Errorf("Logf() output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestSetVerbose(t *testing.T) {
	oldVerbose := verboseMode
	oldEnabled := enabled
	defer func() {
		verboseMode = oldVerbose
		enabled = oldEnabled
	}()

	enabled = false
	verboseMode = false

	if Enabled() {
		t.Error("Enabled() should be false initially")
	}

	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled() should be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if Enabled() {
		t.Error("Enabled() should be false after SetVerbose(false)")
	}
}

func TestPrintNormalRespectsQuiet(t *testing.T) {
	oldQuiet := quietMode
	defer func() { quietMode = oldQuiet }()

	_, outBuf := captureOutput(t)

	SetQuiet(false)
	PrintNormal("info: %s\n", "message")
	if got := outBuf.String(); got != "info: message\n" {
		t.Errorf("output = %q", got)
	}

	outBuf.Reset()
	SetQuiet(true)
	if !IsQuiet() {
		t.Fatal("IsQuiet() should be true after SetQuiet(true)")
	}
	PrintNormal("info: %s\n", "message")
	if outBuf.Len() != 0 {
		t.Errorf("quiet mode should suppress output, got %q", outBuf.String())
	}
}

func TestLogEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.log")
	SetEventLog(path)
	defer SetEventLog("")
	t.Setenv("TEMPO_ACTOR", "tester")

	LogEvent("complete", "item-1", "home=daily")
	LogEvent("promote", "", "priority=3")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	fields := strings.Split(lines[0], "|")
	if len(fields) != 5 || fields[1] != "complete" || fields[2] != "item-1" || fields[3] != "tester" || fields[4] != "home=daily" {
		t.Errorf("unexpected first entry %q", lines[0])
	}
	if !strings.Contains(lines[1], "|promote|none|") {
		t.Errorf("empty item id should be written as none, got %q", lines[1])
	}
}

func TestLogEventDisabled(t *testing.T) {
	SetEventLog("")
	// Must not panic or create files.
	LogEvent("complete", "x", "")
}
