// Package tracker records per-window period statuses and applies home-period
// events to the global lifecycle of work items.
//
// Every mark runs in one store transaction: the target row, the item's
// lifecycle flags and all cascade rows commit together or not at all.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steveyegge/tempo/internal/cascade"
	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// Tracker is the period status tracker.
type Tracker struct {
	store   storage.Storage
	cal     period.Calendar
	cascade *cascade.Coordinator
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNowFunc replaces the clock.
func WithNowFunc(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithCalendar sets the location and week convention of window math.
func WithCalendar(cal period.Calendar) Option {
	return func(t *Tracker) { t.cal = cal }
}

// New returns a Tracker over store.
func New(store storage.Storage, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		cal:   period.DefaultCalendar(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cascade = cascade.New(t.cal)
	return t
}

// MarkRequest asks for a completion or an NA in one window. Exactly one of
// Complete and NA must be set.
type MarkRequest struct {
	ItemID   string
	Kind     types.PeriodKind
	Window   time.Time // any instant inside the target window
	Complete bool
	NA       bool
}

func (r MarkRequest) status() (types.Status, error) {
	switch {
	case r.Complete && r.NA:
		return "", fmt.Errorf("%w: cannot mark %s both complete and NA", types.ErrInvalidState, r.ItemID)
	case r.Complete:
		return types.StatusCompleted, nil
	case r.NA:
		return types.StatusNA, nil
	}
	return "", fmt.Errorf("%w: mark of %s requests neither complete nor NA", types.ErrInvalidState, r.ItemID)
}

// Result describes what a mark or reopen changed.
type Result struct {
	Status      types.Status          `json:"status"`
	Item        *types.WorkItem       `json:"item"`
	WindowStart time.Time             `json:"window_start"`
	HomeEvent   bool                  `json:"home_event"`
	Cascaded    []*types.PeriodStatus `json:"cascaded,omitempty"`

	// PriorPriority and PriorLifecycle describe the item before the write.
	PriorPriority  int             `json:"prior_priority"`
	PriorLifecycle types.Lifecycle `json:"prior_lifecycle"`
}

// LifecycleChanged reports whether the write moved the item between active,
// completed and NA.
func (r *Result) LifecycleChanged() bool {
	return r.Item.Lifecycle() != r.PriorLifecycle
}

// FreedFocusSlot reports whether the write removed a focus-band item from
// the eligible set.
func (r *Result) FreedFocusSlot() bool {
	return r.HomeEvent &&
		r.PriorLifecycle == types.LifecycleActive &&
		r.Item.Lifecycle() != types.LifecycleActive &&
		r.PriorPriority <= types.FocusBandMax
}

// MarkComplete records a completion of itemID in the window of kind
// containing window.
func (t *Tracker) MarkComplete(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (*Result, error) {
	return t.Mark(ctx, MarkRequest{ItemID: itemID, Kind: kind, Window: window, Complete: true})
}

// MarkNA records an NA of itemID in the window of kind containing window.
func (t *Tracker) MarkNA(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (*Result, error) {
	return t.Mark(ctx, MarkRequest{ItemID: itemID, Kind: kind, Window: window, NA: true})
}

// Mark records req. A mark in the item's home period also updates the
// item's lifecycle and cascades into its monitored coarser kinds; a mark in
// a monitored kind only updates that kind's row. Repeating a mark leaves the
// stored state unchanged apart from the row timestamp.
func (t *Tracker) Mark(ctx context.Context, req MarkRequest) (*Result, error) {
	status, err := req.status()
	if err != nil {
		return nil, err
	}
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("unknown period kind %q: %w", req.Kind, storage.ErrNotFound)
	}

	var res *Result
	err = t.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		item, err := t.resolve(ctx, tx, req.ItemID, req.Kind)
		if err != nil {
			return err
		}
		now := t.now()
		w := t.cal.WindowFor(req.Kind, req.Window)
		res = &Result{
			Status:         status,
			WindowStart:    w.Start.UTC(),
			HomeEvent:      req.Kind == item.HomePeriod,
			PriorPriority:  item.Priority,
			PriorLifecycle: item.Lifecycle(),
		}

		at := now
		if res.HomeEvent {
			at = w.Clamp(now)
		}
		if err := tx.UpsertPeriodStatus(ctx, &types.PeriodStatus{
			ItemID:      item.ID,
			PeriodKind:  req.Kind,
			WindowStart: res.WindowStart,
			Status:      status,
			UpdatedAt:   at,
		}); err != nil {
			return fmt.Errorf("record %s status of %s: %w", req.Kind, item.ID, err)
		}

		if res.HomeEvent {
			if err := t.applyHomeEvent(ctx, tx, item, status, at); err != nil {
				return err
			}
			cascaded, err := t.cascade.Propagate(ctx, tx, cascade.Event{Item: item, Status: status, At: at})
			if err != nil {
				return err
			}
			res.Cascaded = cascaded
		}
		res.Item = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// applyHomeEvent moves the item into the completed or NA lifecycle. An item
// already in the requested state keeps its original timestamp.
func (t *Tracker) applyHomeEvent(ctx context.Context, tx storage.Transaction, item *types.WorkItem, status types.Status, at time.Time) error {
	switch {
	case status == types.StatusCompleted && item.Lifecycle() != types.LifecycleCompleted:
		item.MarkCompleted(at)
	case status == types.StatusNA && item.Lifecycle() != types.LifecycleNA:
		item.MarkNA(at)
	default:
		return nil
	}
	if err := tx.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("update lifecycle of %s: %w", item.ID, err)
	}
	return tx.TouchFocusGeneration(ctx)
}

// Reopen resets the window's status to none. On the home period it also
// returns the item to the active state. Reopen never cascades.
func (t *Tracker) Reopen(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (*Result, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown period kind %q: %w", kind, storage.ErrNotFound)
	}
	var res *Result
	err := t.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		item, err := t.resolve(ctx, tx, itemID, kind)
		if err != nil {
			return err
		}
		now := t.now()
		res = &Result{
			Status:         types.StatusNone,
			WindowStart:    t.cal.Normalize(kind, window),
			HomeEvent:      kind == item.HomePeriod,
			PriorPriority:  item.Priority,
			PriorLifecycle: item.Lifecycle(),
		}
		if err := tx.UpsertPeriodStatus(ctx, &types.PeriodStatus{
			ItemID:      item.ID,
			PeriodKind:  kind,
			WindowStart: res.WindowStart,
			Status:      types.StatusNone,
			UpdatedAt:   now,
		}); err != nil {
			return fmt.Errorf("reopen %s in %s: %w", item.ID, kind, err)
		}
		if res.HomeEvent && item.Lifecycle() != types.LifecycleActive {
			item.Reactivate(now)
			if err := tx.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("reactivate %s: %w", item.ID, err)
			}
			if err := tx.TouchFocusGeneration(ctx); err != nil {
				return err
			}
		}
		res.Item = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetStatus returns the status of itemID in the window of kind containing
// window. A window without a row reads as none.
func (t *Tracker) GetStatus(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (types.Status, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown period kind %q: %w", kind, storage.ErrNotFound)
	}
	if _, err := t.resolve(ctx, t.store, itemID, kind); err != nil {
		return "", err
	}
	st, err := t.store.GetPeriodStatus(ctx, itemID, kind, t.cal.Normalize(kind, window))
	if errors.Is(err, storage.ErrNotFound) {
		return types.StatusNone, nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s status of %s: %w", kind, itemID, err)
	}
	return st.Status, nil
}

// Monitor opts itemID into kind and seeds a none row for the current window.
// Monitoring the home period is rejected. Repeating it is a no-op.
func (t *Tracker) Monitor(ctx context.Context, itemID string, kind types.PeriodKind) error {
	if !kind.IsValid() {
		return fmt.Errorf("invalid period kind %q", kind)
	}
	return t.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("monitor %s: %w", itemID, err)
		}
		if kind == item.HomePeriod {
			return fmt.Errorf("%w: %s is already the home period of %s", types.ErrInvalidState, kind, itemID)
		}
		now := t.now()
		if err := tx.AddMonitor(ctx, &types.MonitoringAssociation{ItemID: itemID, PeriodKind: kind, CreatedAt: now}); err != nil {
			return fmt.Errorf("monitor %s in %s: %w", itemID, kind, err)
		}
		_, err = tx.InsertPeriodStatusIfAbsent(ctx, &types.PeriodStatus{
			ItemID:      itemID,
			PeriodKind:  kind,
			WindowStart: t.cal.Normalize(kind, now),
			Status:      types.StatusNone,
			UpdatedAt:   now,
		})
		return err
	})
}

// Unmonitor removes the association. Recorded rows are kept but no longer
// shown in that kind's views.
func (t *Tracker) Unmonitor(ctx context.Context, itemID string, kind types.PeriodKind) error {
	return t.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.GetItem(ctx, itemID); err != nil {
			return fmt.Errorf("unmonitor %s: %w", itemID, err)
		}
		return tx.RemoveMonitor(ctx, itemID, kind)
	})
}

// resolve loads the item and checks that kind is a period it participates
// in: its home period or a monitored one.
func (t *Tracker) resolve(ctx context.Context, r storage.Reader, itemID string, kind types.PeriodKind) (*types.WorkItem, error) {
	item, err := r.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", itemID, err)
	}
	if kind == item.HomePeriod {
		return item, nil
	}
	assocs, err := r.ListMonitors(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list monitors of %s: %w", itemID, err)
	}
	if !storage.HasMonitor(assocs, kind) {
		return nil, fmt.Errorf("%s is not monitored in %s: %w", itemID, kind, storage.ErrNotFound)
	}
	return item, nil
}
