package teststore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

var errRollback = errors.New("rollback requested")

// RunConformance exercises the storage contract against a backend. Every
// backend package runs it from its own tests.
func RunConformance(t *testing.T, backend string) {
	t.Run("ItemRoundTrip", func(t *testing.T) { testItemRoundTrip(t, backend) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, backend) })
	t.Run("MissingItem", func(t *testing.T) { testMissingItem(t, backend) })
	t.Run("ListItemsFilters", func(t *testing.T) { testListItemsFilters(t, backend) })
	t.Run("EligibleItemsOrder", func(t *testing.T) { testEligibleItemsOrder(t, backend) })
	t.Run("PeriodStatusUpsert", func(t *testing.T) { testPeriodStatusUpsert(t, backend) })
	t.Run("InsertIfAbsent", func(t *testing.T) { testInsertIfAbsent(t, backend) })
	t.Run("Monitors", func(t *testing.T) { testMonitors(t, backend) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, backend) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, backend) })
	t.Run("RollbackOnPanic", func(t *testing.T) { testRollbackOnPanic(t, backend) })
	t.Run("FocusGeneration", func(t *testing.T) { testFocusGeneration(t, backend) })
	t.Run("ConcurrentCompareAndBump", func(t *testing.T) { testConcurrentCompareAndBump(t, backend) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, backend) })
}

func testItemRoundTrip(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	due := Date(2025, 6, 12)
	item := env.CreateItemWith("write report", types.PeriodWeekly, 2, due)

	got := env.Get(item.ID)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, 2, got.Priority)
	assert.Equal(t, types.PeriodWeekly, got.HomePeriod)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate), "due date %s", got.DueDate)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, got.IsActive)
	assert.False(t, got.GlobalCompleted)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.NAMarkedAt)

	doneAt := env.Now.Add(90 * time.Minute)
	got.MarkCompleted(doneAt)
	env.Write(func(tx storage.Transaction) error { return tx.UpdateItem(env.Ctx, got) })

	again := env.Get(item.ID)
	assert.Equal(t, types.LifecycleCompleted, again.Lifecycle())
	require.NotNil(t, again.CompletedAt)
	assert.True(t, doneAt.Equal(*again.CompletedAt))
	require.NoError(t, again.Validate())

	again.DueDate = nil
	env.Write(func(tx storage.Transaction) error { return tx.UpdateItem(env.Ctx, again) })
	assert.Nil(t, env.Get(item.ID).DueDate)
}

func testCreateDuplicate(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("once", types.PeriodOneTime)

	err := env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		return tx.CreateItem(env.Ctx, item)
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func testMissingItem(t *testing.T, backend string) {
	env := NewEnv(t, backend)

	_, err := env.Store.GetItem(env.Ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = env.Store.GetPeriodStatus(env.Ctx, "nope", types.PeriodDaily, time.Now())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		return tx.UpdateItem(env.Ctx, &types.WorkItem{ID: "nope", Name: "x", Priority: 1, HomePeriod: types.PeriodDaily, IsActive: true})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		return tx.DeleteItem(env.Ctx, "nope")
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		return tx.UpsertPeriodStatus(env.Ctx, &types.PeriodStatus{
			ItemID: "nope", PeriodKind: types.PeriodDaily, WindowStart: env.Now, Status: types.StatusCompleted, UpdatedAt: env.Now,
		})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListItemsFilters(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	a := env.CreateItem("a", types.PeriodDaily)
	b := env.CreateItem("b", types.PeriodWeekly)
	c := env.CreateItem("c", types.PeriodDaily)

	env.Write(func(tx storage.Transaction) error {
		return tx.AddMonitor(env.Ctx, &types.MonitoringAssociation{ItemID: a.ID, PeriodKind: types.PeriodWeekly, CreatedAt: env.Now})
	})

	all, err := env.Store.ListItems(env.Ctx, types.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, itemIDs(all), "items are listed in creation order")

	daily := types.PeriodDaily
	got, err := env.Store.ListItems(env.Ctx, types.ItemFilter{HomePeriod: &daily})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, itemIDs(got))

	weekly := types.PeriodWeekly
	got, err = env.Store.ListItems(env.Ctx, types.ItemFilter{MonitoredIn: &weekly})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, itemIDs(got))

	got, err = env.Store.ListItems(env.Ctx, types.ItemFilter{IDs: []string{c.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, itemIDs(got))

	got, err = env.Store.ListItems(env.Ctx, types.ItemFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func testEligibleItemsOrder(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	p2late := env.CreateItemWith("p2 late", types.PeriodOneTime, 2, Date(2025, 6, 10))
	p1 := env.CreateItemWith("p1", types.PeriodOneTime, 1, Date(2025, 6, 10))
	p2early := env.CreateItemWith("p2 early", types.PeriodOneTime, 2, Date(2025, 6, 1))
	env.CreateItemWith("future", types.PeriodOneTime, 1, Date(2025, 6, 11))
	env.CreateItemWith("undated", types.PeriodOneTime, 1, nil)
	env.CreateItemWith("backlog", types.PeriodOneTime, 7, Date(2025, 6, 1))
	done := env.CreateItemWith("done", types.PeriodOneTime, 1, Date(2025, 6, 1))
	done.MarkCompleted(env.Now)
	na := env.CreateItemWith("na", types.PeriodOneTime, 1, Date(2025, 6, 1))
	na.MarkNA(env.Now)
	env.Write(func(tx storage.Transaction) error {
		if err := tx.UpdateItem(env.Ctx, done); err != nil {
			return err
		}
		return tx.UpdateItem(env.Ctx, na)
	})

	got, err := env.Store.EligibleItems(env.Ctx, types.EligibilityFilter{
		MinPriority: 1, MaxPriority: 3, DueOnOrBefore: today,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{p1.ID, p2early.ID, p2late.ID}, itemIDs(got))

	got, err = env.Store.EligibleItems(env.Ctx, types.EligibilityFilter{
		MinPriority: 1, MaxPriority: 3, DueOnOrBefore: today, ExcludeID: p1.ID, Limit: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{p2early.ID}, itemIDs(got))

	got, err = env.Store.EligibleItems(env.Ctx, types.EligibilityFilter{
		MinPriority: 4, MaxPriority: 10, DueOnOrBefore: today,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "backlog", got[0].Name)
}

func testPeriodStatusUpsert(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("stretch", types.PeriodDaily)
	window := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	env.AssertStatus(item.ID, types.PeriodDaily, window, "")

	upsert := func(s types.Status) {
		env.Write(func(tx storage.Transaction) error {
			return tx.UpsertPeriodStatus(env.Ctx, &types.PeriodStatus{
				ItemID: item.ID, PeriodKind: types.PeriodDaily, WindowStart: window, Status: s, UpdatedAt: env.Now,
			})
		})
	}
	upsert(types.StatusCompleted)
	env.AssertStatus(item.ID, types.PeriodDaily, window, types.StatusCompleted)
	upsert(types.StatusNA)
	env.AssertStatus(item.ID, types.PeriodDaily, window, types.StatusNA)

	// A different window is a different row.
	env.AssertStatus(item.ID, types.PeriodDaily, window.AddDate(0, 0, 1), "")

	all, err := env.Store.ListPeriodStatuses(env.Ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, window.Equal(all[0].WindowStart))

	inWindow, err := env.Store.ListWindowStatuses(env.Ctx, types.PeriodDaily, window)
	require.NoError(t, err)
	require.Len(t, inWindow, 1)
	assert.Equal(t, item.ID, inWindow[0].ItemID)
}

func testInsertIfAbsent(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("read", types.PeriodDaily)
	window := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	row := &types.PeriodStatus{ItemID: item.ID, PeriodKind: types.PeriodWeekly, WindowStart: window, Status: types.StatusNone, UpdatedAt: env.Now}

	var first, second bool
	env.Write(func(tx storage.Transaction) (err error) {
		first, err = tx.InsertPeriodStatusIfAbsent(env.Ctx, row)
		return err
	})
	env.Write(func(tx storage.Transaction) error {
		return tx.UpsertPeriodStatus(env.Ctx, &types.PeriodStatus{
			ItemID: item.ID, PeriodKind: types.PeriodWeekly, WindowStart: window, Status: types.StatusCompleted, UpdatedAt: env.Now,
		})
	})
	env.Write(func(tx storage.Transaction) (err error) {
		second, err = tx.InsertPeriodStatusIfAbsent(env.Ctx, row)
		return err
	})

	assert.True(t, first)
	assert.False(t, second)
	env.AssertStatus(item.ID, types.PeriodWeekly, window, types.StatusCompleted)
}

func testMonitors(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("walk", types.PeriodDaily)

	add := func(kind types.PeriodKind) {
		env.Write(func(tx storage.Transaction) error {
			return tx.AddMonitor(env.Ctx, &types.MonitoringAssociation{ItemID: item.ID, PeriodKind: kind, CreatedAt: env.Now})
		})
	}
	add(types.PeriodWeekly)
	add(types.PeriodWeekly) // idempotent
	add(types.PeriodMonthly)

	assocs, err := env.Store.ListMonitors(env.Ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, assocs, 2)
	assert.True(t, storage.HasMonitor(assocs, types.PeriodWeekly))
	assert.True(t, storage.HasMonitor(assocs, types.PeriodMonthly))

	env.Write(func(tx storage.Transaction) error { return tx.RemoveMonitor(env.Ctx, item.ID, types.PeriodWeekly) })
	env.Write(func(tx storage.Transaction) error { return tx.RemoveMonitor(env.Ctx, item.ID, types.PeriodWeekly) })

	assocs, err = env.Store.ListMonitors(env.Ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, types.PeriodMonthly, assocs[0].PeriodKind)

	err = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		return tx.AddMonitor(env.Ctx, &types.MonitoringAssociation{ItemID: "ghost", PeriodKind: types.PeriodWeekly, CreatedAt: env.Now})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteCascades(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("gone", types.PeriodDaily)
	keep := env.CreateItem("kept", types.PeriodDaily)
	window := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	env.Write(func(tx storage.Transaction) error {
		for _, id := range []string{item.ID, keep.ID} {
			if err := tx.UpsertPeriodStatus(env.Ctx, &types.PeriodStatus{
				ItemID: id, PeriodKind: types.PeriodDaily, WindowStart: window, Status: types.StatusCompleted, UpdatedAt: env.Now,
			}); err != nil {
				return err
			}
		}
		return tx.AddMonitor(env.Ctx, &types.MonitoringAssociation{ItemID: item.ID, PeriodKind: types.PeriodWeekly, CreatedAt: env.Now})
	})
	env.Write(func(tx storage.Transaction) error { return tx.DeleteItem(env.Ctx, item.ID) })

	_, err := env.Store.GetItem(env.Ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	statuses, err := env.Store.ListPeriodStatuses(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, statuses)
	assocs, err := env.Store.ListMonitors(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, assocs)

	env.AssertStatus(keep.ID, types.PeriodDaily, window, types.StatusCompleted)
}

func testRollbackOnError(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("atomic", types.PeriodDaily)
	window := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	genBefore, err := env.Store.FocusGeneration(env.Ctx)
	require.NoError(t, err)

	err = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		if err := tx.UpsertPeriodStatus(env.Ctx, &types.PeriodStatus{
			ItemID: item.ID, PeriodKind: types.PeriodDaily, WindowStart: window, Status: types.StatusCompleted, UpdatedAt: env.Now,
		}); err != nil {
			return err
		}
		if err := tx.TouchFocusGeneration(env.Ctx); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		st, err := tx.GetPeriodStatus(env.Ctx, item.ID, types.PeriodDaily, window)
		if err != nil {
			return err
		}
		if st.Status != types.StatusCompleted {
			t.Errorf("in-transaction read = %s, want completed", st.Status)
		}
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)

	env.AssertStatus(item.ID, types.PeriodDaily, window, "")
	genAfter, err := env.Store.FocusGeneration(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, genBefore, genAfter)
}

func testRollbackOnPanic(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	item := env.CreateItem("panicky", types.PeriodDaily)

	assert.Panics(t, func() {
		_ = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
			item.Priority = 1
			if err := tx.UpdateItem(env.Ctx, item); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, types.DefaultPriority, env.Get(item.ID).Priority)
}

func testFocusGeneration(t *testing.T, backend string) {
	env := NewEnv(t, backend)

	gen, err := env.Store.FocusGeneration(env.Ctx)
	require.NoError(t, err)

	env.Write(func(tx storage.Transaction) error { return tx.CompareAndBumpFocusGeneration(env.Ctx, gen) })

	err = env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		return tx.CompareAndBumpFocusGeneration(env.Ctx, gen)
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	env.Write(func(tx storage.Transaction) error { return tx.TouchFocusGeneration(env.Ctx) })
	got, err := env.Store.FocusGeneration(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+2, got)
}

// Many writers racing on the same expected generation: exactly one wins.
func testConcurrentCompareAndBump(t *testing.T, backend string) {
	env := NewEnv(t, backend)
	gen, err := env.Store.FocusGeneration(env.Ctx)
	require.NoError(t, err)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
				return tx.CompareAndBumpFocusGeneration(env.Ctx, gen)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, storage.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func testClosed(t *testing.T, backend string) {
	store := New(t, backend)
	require.NoError(t, store.Close())

	_, err := store.GetItem(t.Context(), "x")
	assert.ErrorIs(t, err, storage.ErrClosed)
	err = store.RunInTransaction(t.Context(), func(tx storage.Transaction) error { return nil })
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func itemIDs(items []*types.WorkItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
