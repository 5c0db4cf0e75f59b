package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/steveyegge/tempo/internal/storage"
)

func TestIsSerializationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"error 1105 optimistic lock failed", fmt.Errorf("Error 1105 (HY000): optimistic lock failed on database Root update"), true},
		{"optimistic lock failed generic", fmt.Errorf("optimistic lock failed"), true},
		{"error 1213 serialization failure", fmt.Errorf("Error 1213 (40001): Serialization failure"), true},
		{"deadlock", fmt.Errorf("Deadlock found when trying to get lock"), true},
		{"non-serialization error", fmt.Errorf("table does not exist"), false},
		{"lock error is not serialization", fmt.Errorf("database is locked"), false},
		{"error 1105 nothing to commit is NOT serialization", fmt.Errorf("Error 1105: nothing to commit"), false},
		{"no changes to commit", fmt.Errorf("no changes to commit"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSerializationError(tt.err); got != tt.expected {
				t.Errorf("isSerializationError(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsBusyError(t *testing.T) {
	if !isBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("SQLITE_BUSY should be a busy error")
	}
	if isBusyError(errors.New("no such table: work_items")) {
		t.Error("schema errors are not busy errors")
	}
	if isBusyError(nil) {
		t.Error("nil is not a busy error")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("driver: bad connection"), true},
		{errors.New("dial tcp 127.0.0.1:3307: connect: connection refused"), true},
		{errors.New("Error 2006: MySQL server has gone away"), true},
		{errors.New("read tcp: i/o timeout"), true},
		{errors.New("Error 1146: table 'tempo.x' doesn't exist"), false},
	}
	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.expected {
			t.Errorf("isRetryableError(%v) = %v, expected %v", tt.err, got, tt.expected)
		}
	}
}

func TestWrapDBError(t *testing.T) {
	if wrapDBError("op", nil) != nil {
		t.Error("nil stays nil")
	}
	err := wrapDBError("get item x", sql.ErrNoRows)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ErrNoRows should map to ErrNotFound, got %v", err)
	}
	if err.Error() != "get item x: not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	base := errors.New("boom")
	if err := wrapDBErrorf(base, "update %s", "y"); !errors.Is(err, base) || err.Error() != "update y: boom" {
		t.Errorf("wrapDBErrorf = %v", err)
	}
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	a := formatTime(mustParse(t, "2025-06-10T09:00:00Z"))
	b := formatTime(mustParse(t, "2025-06-10T09:00:00.5Z"))
	c := formatTime(mustParse(t, "2025-06-10T10:00:00Z"))
	if !(a < b && b < c) {
		t.Errorf("stored timestamps must sort lexically: %q %q %q", a, b, c)
	}
	if len(a) != len(b) {
		t.Errorf("stored timestamps must be fixed width: %q vs %q", a, b)
	}
	back, err := parseTime(b)
	if err != nil || !back.Equal(mustParse(t, "2025-06-10T09:00:00.5Z")) {
		t.Errorf("parseTime(%q) = %v, %v", b, back, err)
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
