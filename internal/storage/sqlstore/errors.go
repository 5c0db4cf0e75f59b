package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/tempo/internal/storage"
)

// wrapDBError wraps a database error with operation context
// It converts sql.ErrNoRows to storage.ErrNotFound for consistent error handling
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapDBErrorf wraps a database error with formatted operation context
func wrapDBErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

// isSerializationError reports whether a transaction lost a write conflict
// and can be retried as a whole. Covers Dolt/MySQL (1213, 1105 optimistic
// lock) and SQLite (SQLITE_BUSY surfacing as "database is locked" on
// commit under BEGIN IMMEDIATE).
func isSerializationError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "nothing to commit") || strings.Contains(s, "no changes to commit") {
		return false
	}
	switch {
	case strings.Contains(s, "error 1213"),
		strings.Contains(s, "error 1105"),
		strings.Contains(s, "(40001)"),
		strings.Contains(s, "serialization failure"),
		strings.Contains(s, "optimistic lock failed"),
		strings.Contains(s, "deadlock found"):
		return true
	}
	return false
}

// isBusyError reports SQLite lock contention (SQLITE_BUSY / SQLITE_LOCKED).
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "sqlite_busy") ||
		strings.Contains(s, "database table is locked")
}

// isRetryableError returns true if the error is a transient connection error
// that should be retried in server mode.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		// the server may come back within the backoff window
		"connection refused",
		"database is read only",
		// MySQL 2013: mid-query disconnect
		"lost connection",
		// MySQL 2006: idle connection timeout
		"gone away",
		"i/o timeout",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}
