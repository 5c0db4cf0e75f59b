// Package sqlite opens the embedded SQLite backend (pure Go, modernc.org/sqlite).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	// Import SQLite driver
	_ "modernc.org/sqlite"

	"github.com/steveyegge/tempo/internal/storage/sqlstore"
)

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 30 * time.Second

// BuildDSN returns the modernc connection string for path.
// ":memory:" opens a private in-memory database.
func BuildDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	// modernc.org/sqlite uses _pragma=name(value) syntax; _txlock=immediate
	// makes BEGIN take the write lock up front so writers queue instead of
	// deadlocking on upgrade.
	pragmas := fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate", busyTimeout.Milliseconds())
	switch {
	case path == ":memory:":
		return "file::memory:?" + pragmas
	case strings.HasPrefix(path, "file:"):
		if strings.Contains(path, "?") {
			return path + "&" + pragmas
		}
		return path + "?" + pragmas
	default:
		return "file:" + path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
	}
}

// Open opens (creating if needed) the database at path and returns a
// ready store.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	return OpenWithTimeout(ctx, path, DefaultBusyTimeout)
}

// OpenWithTimeout is Open with an explicit busy timeout.
func OpenWithTimeout(ctx context.Context, path string, busyTimeout time.Duration) (*sqlstore.Store, error) {
	isInMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !isInMemory && !strings.HasPrefix(path, "file:") {
		// Ensure directory exists for file-based databases
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", BuildDSN(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if isInMemory {
		// SQLite's in-memory databases are isolated per connection. Without
		// a single connection, pool members can't see each other's writes.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports 1 writer + N readers; cap the pool to avoid
		// goroutine pile-up on write lock contention.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
