package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage/dolt"
)

// GetCalendar returns the configured window calendar.
// Logs a warning to stderr and falls back to the default for invalid values.
//
// Config keys: timezone (IANA name, empty = local), week-start
func GetCalendar() period.Calendar {
	cal := period.DefaultCalendar()

	if tz := strings.TrimSpace(GetString("timezone")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid timezone %q in config, using local time\n", tz)
		} else {
			cal.Location = loc
		}
	}

	ws := strings.ToLower(strings.TrimSpace(GetString("week-start")))
	day, err := period.ParseWeekday(ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid week-start %q in config (valid: sunday..saturday), using 'monday'\n", ws)
	}
	cal.WeekStart = day
	return cal
}

// GetBackend returns the storage backend name.
func GetBackend() string {
	return strings.ToLower(strings.TrimSpace(GetString("backend")))
}

// GetDBPath returns the SQLite database path. Without an explicit setting it
// is .tempo/tempo.db in the nearest project directory, or under the user
// data directory outside any project.
func GetDBPath() string {
	if p := strings.TrimSpace(GetString("db")); p != "" {
		return p
	}
	if dir, err := findProjectDir(); err == nil {
		return filepath.Join(dir, "tempo.db")
	}
	return filepath.Join(userDataDir(), "tempo", "tempo.db")
}

func userDataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// GetDoltConfig returns the Dolt server connection settings.
func GetDoltConfig() dolt.Config {
	return dolt.Config{
		Host:     GetString("dolt.host"),
		Port:     GetInt("dolt.port"),
		User:     GetString("dolt.user"),
		Password: GetString("dolt.password"),
		Database: GetString("dolt.database"),
	}
}

// GetPromotionRetries returns how often a conflicting promotion is retried.
func GetPromotionRetries() int {
	n := GetInt("focus.promotion-retries")
	if n < 0 {
		fmt.Fprintf(os.Stderr, "Warning: negative focus.promotion-retries %d in config, using 0\n", n)
		return 0
	}
	return n
}

// GetSweepInterval returns the reconciliation sweep period.
func GetSweepInterval() time.Duration {
	d := GetDuration("sweep.interval")
	if d <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: invalid sweep.interval %v in config, using 1m\n", d)
		return time.Minute
	}
	return d
}
