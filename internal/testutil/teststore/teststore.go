// Package teststore provides storage test helpers shared by every package
// that needs a real store.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    env := teststore.NewEnv(t, teststore.SQLite)
//	    item := env.CreateItem("water plants", types.PeriodDaily)
//	    env.AssertStatus(item.ID, types.PeriodDaily, windowStart, types.StatusNone)
//	}
package teststore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/memory"
	"github.com/steveyegge/tempo/internal/storage/sqlite"
	"github.com/steveyegge/tempo/internal/types"
)

// Backend names accepted by New.
const (
	Memory = "memory"
	SQLite = "sqlite"
)

// Backends lists the backends that need no external services.
var Backends = []string{Memory, SQLite}

// New creates an isolated store for a single test. It is closed when the
// test completes.
func New(t testing.TB, backend string) storage.Storage {
	t.Helper()

	var (
		store storage.Storage
		err   error
	)
	switch backend {
	case Memory:
		store = memory.New()
	case SQLite:
		store, err = sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tempo.db"))
	default:
		t.Fatalf("teststore: unknown backend %q", backend)
	}
	if err != nil {
		t.Fatalf("teststore: failed to open %s store: %v", backend, err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Env provides a test environment with common setup and helpers.
// All operations go through the storage interfaces so that tests remain
// backend-agnostic.
type Env struct {
	t     testing.TB
	Store storage.Storage
	Ctx   context.Context

	// Now stamps created records.
	Now time.Time
}

// NewEnv creates a new test environment on the named backend.
func NewEnv(t testing.TB, backend string) *Env {
	t.Helper()
	return &Env{
		t:     t,
		Store: New(t, backend),
		Ctx:   context.Background(),
		Now:   time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Item helpers
// ---------------------------------------------------------------------------

// CreateItem creates an active backlog item with the given home period.
func (e *Env) CreateItem(name string, home types.PeriodKind) *types.WorkItem {
	e.t.Helper()
	return e.CreateItemWith(name, home, types.DefaultPriority, nil)
}

// CreateItemWith creates an active item with explicit priority and due date.
func (e *Env) CreateItemWith(name string, home types.PeriodKind, priority int, due *time.Time) *types.WorkItem {
	e.t.Helper()
	item := &types.WorkItem{
		ID:         types.NewID(),
		Name:       name,
		Priority:   priority,
		DueDate:    due,
		HomePeriod: home,
		CreatedAt:  e.Now,
		UpdatedAt:  e.Now,
	}
	item.SetDefaults()
	if err := item.Validate(); err != nil {
		e.t.Fatalf("CreateItem(%q): invalid item: %v", name, err)
	}
	e.Write(func(tx storage.Transaction) error { return tx.CreateItem(e.Ctx, item) })
	// Creation order is part of focus ordering; keep it strict.
	e.Now = e.Now.Add(time.Second)
	return item
}

// Get fetches an item or fails the test.
func (e *Env) Get(id string) *types.WorkItem {
	e.t.Helper()
	item, err := e.Store.GetItem(e.Ctx, id)
	if err != nil {
		e.t.Fatalf("GetItem(%s) failed: %v", id, err)
	}
	return item
}

// Write runs fn in a transaction and fails the test on error.
func (e *Env) Write(fn func(tx storage.Transaction) error) {
	e.t.Helper()
	if err := e.Store.RunInTransaction(e.Ctx, fn); err != nil {
		e.t.Fatalf("transaction failed: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Status helpers
// ---------------------------------------------------------------------------

// Status returns the stored status for a window, or "" when no row exists.
func (e *Env) Status(itemID string, kind types.PeriodKind, windowStart time.Time) types.Status {
	e.t.Helper()
	st, err := e.Store.GetPeriodStatus(e.Ctx, itemID, kind, windowStart)
	if errors.Is(err, storage.ErrNotFound) {
		return ""
	}
	if err != nil {
		e.t.Fatalf("GetPeriodStatus(%s, %s) failed: %v", itemID, kind, err)
	}
	return st.Status
}

// AssertStatus fails the test unless the stored status matches want.
// Pass "" to assert that no row exists.
func (e *Env) AssertStatus(itemID string, kind types.PeriodKind, windowStart time.Time, want types.Status) {
	e.t.Helper()
	if got := e.Status(itemID, kind, windowStart); got != want {
		e.t.Errorf("status of %s in %s window %s = %q, want %q",
			itemID, kind, windowStart.Format(time.RFC3339), got, want)
	}
}

// Date returns a pointer to midnight UTC of the given day.
func Date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
