package tempo_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/steveyegge/tempo"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "tempo.db")

	eng, err := tempo.Open(ctx, "sqlite", tempo.StoreOptions{Path: dbPath})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer eng.Store().Close()

	item, err := eng.OnItemCreated(ctx, &tempo.WorkItem{Name: "stretch", HomePeriod: tempo.Daily})
	if err != nil {
		t.Fatalf("OnItemCreated: %v", err)
	}
	if item.Priority != 10 {
		t.Errorf("default priority = %d, want 10", item.Priority)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := tempo.Open(context.Background(), "bogus", tempo.StoreOptions{}); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	eng, err := tempo.Open(ctx, "memory", tempo.StoreOptions{},
		tempo.WithNowFunc(func() time.Time { return now }),
		tempo.WithCalendar(tempo.Calendar{Location: time.UTC, WeekStart: time.Monday}),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer eng.Store().Close()

	item, err := eng.OnItemCreated(ctx, &tempo.WorkItem{Name: "report", HomePeriod: tempo.Daily, Priority: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Monitor(ctx, item.ID, tempo.Weekly); err != nil {
		t.Fatal(err)
	}
	q, err := eng.GetFocusQueue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Items) != 1 || q.Items[0].Item.ID != item.ID {
		t.Fatalf("queue = %+v, want the new item", q.Items)
	}

	st, err := eng.MarkComplete(ctx, item.ID, tempo.Daily, now)
	if err != nil {
		t.Fatal(err)
	}
	if st != tempo.StatusCompleted {
		t.Errorf("status = %s", st)
	}
	weekly, err := eng.GetStatus(ctx, item.ID, tempo.Weekly, now)
	if err != nil || weekly != tempo.StatusCompleted {
		t.Errorf("weekly status = %s, %v; want cascaded completion", weekly, err)
	}

	_, err = eng.MarkComplete(ctx, "missing", tempo.Daily, now)
	if !errors.Is(err, tempo.ErrNotFound) {
		t.Errorf("unknown item error = %v, want ErrNotFound", err)
	}
}
