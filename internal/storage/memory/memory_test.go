package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/memory"
	"github.com/steveyegge/tempo/internal/testutil/teststore"
	"github.com/steveyegge/tempo/internal/types"
)

func TestConformance(t *testing.T) {
	teststore.RunConformance(t, teststore.Memory)
}

func TestReturnedItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	item := &types.WorkItem{ID: "a", Name: "a", Priority: 5, HomePeriod: types.PeriodDaily, IsActive: true, CreatedAt: now, UpdatedAt: now}

	if err := store.RunInTransaction(ctx, func(tx storage.Transaction) error { return tx.CreateItem(ctx, item) }); err != nil {
		t.Fatalf("create: %v", err)
	}
	item.Priority = 1

	got, err := store.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Priority != 5 {
		t.Errorf("stored item aliased caller's struct: priority = %d", got.Priority)
	}
	got.Name = "mutated"
	if again, _ := store.GetItem(ctx, "a"); again.Name != "a" {
		t.Errorf("stored item aliased returned struct: name = %q", again.Name)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := memory.New().RunInTransaction(ctx, func(tx storage.Transaction) error {
		t.Fatal("fn must not run with a canceled context")
		return nil
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestLifetimeWindowStatusKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	item := &types.WorkItem{ID: "a", Name: "a", Priority: 5, HomePeriod: types.PeriodOneTime, IsActive: true, CreatedAt: now, UpdatedAt: now}
	epoch := time.Unix(0, 0).UTC()

	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.CreateItem(ctx, item); err != nil {
			return err
		}
		if err := tx.UpsertPeriodStatus(ctx, &types.PeriodStatus{ItemID: "a", PeriodKind: types.PeriodOneTime, WindowStart: period.LifetimeStart, Status: types.StatusCompleted, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.UpsertPeriodStatus(ctx, &types.PeriodStatus{ItemID: "a", PeriodKind: types.PeriodOneTime, WindowStart: epoch, Status: types.StatusNA, UpdatedAt: now})
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	east := period.LifetimeStart.In(time.FixedZone("UTC+3", 3*60*60))
	got, err := store.GetPeriodStatus(ctx, "a", types.PeriodOneTime, east)
	if err != nil {
		t.Fatalf("get lifetime status: %v", err)
	}
	if got.Status != types.StatusCompleted {
		t.Errorf("lifetime status = %q, want completed", got.Status)
	}
	if rows, _ := store.ListWindowStatuses(ctx, types.PeriodOneTime, period.LifetimeStart); len(rows) != 1 || rows[0].Status != types.StatusCompleted {
		t.Errorf("lifetime window rows = %+v", rows)
	}
	if rows, _ := store.ListWindowStatuses(ctx, types.PeriodOneTime, epoch); len(rows) != 1 || rows[0].Status != types.StatusNA {
		t.Errorf("epoch window rows = %+v", rows)
	}
}
