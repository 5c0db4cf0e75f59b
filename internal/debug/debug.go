package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("TEMPO_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex

	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout

	eventLogPath string
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// SetOutput redirects debug (stderr) and normal (stdout) output.
// A nil writer leaves the current one in place.
func SetOutput(debugOut, normalOut io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if debugOut != nil {
		stderr = debugOut
	}
	if normalOut != nil {
		stdout = normalOut
	}
}

func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		logMutex.Lock()
		defer logMutex.Unlock()
		fmt.Fprintf(stderr, format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled
// Use this for normal informational output that should be suppressed in quiet mode
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		logMutex.Lock()
		defer logMutex.Unlock()
		fmt.Fprintf(stdout, format, args...)
	}
}

// SetEventLog sets the file LogEvent appends to. An empty path disables
// the event log.
func SetEventLog(path string) {
	logMutex.Lock()
	defer logMutex.Unlock()
	eventLogPath = path
}

// LogEvent appends an event line to the event log.
// Format: TIMESTAMP|EVENT_CODE|ITEM_ID|ACTOR|DETAILS
func LogEvent(eventCode, itemID, details string) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if eventLogPath == "" {
		return
	}

	if itemID == "" {
		itemID = "none"
	}
	actor := os.Getenv("TEMPO_ACTOR")
	if actor == "" {
		actor = os.Getenv("USER")
		if actor == "" {
			actor = "unknown"
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n", timestamp, eventCode, itemID, actor, details)

	_ = os.MkdirAll(filepath.Dir(eventLogPath), 0o750)

	// Silent fail - logging never interrupts an operation
	file, err := os.OpenFile(eventLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path set by the CLI
	if err != nil {
		return
	}
	defer file.Close()

	_, _ = file.WriteString(entry)
}
