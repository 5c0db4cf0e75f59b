// Package visibility decides which items appear in a period view.
//
// An item is a candidate for a view when the view's kind is its home period
// or it is monitored in that kind. Candidates are then filtered by their
// lifecycle evaluated at the view's as-of instant:
//
//   - active items are always shown, with the status recorded for the window
//   - a completed item is shown as done only in the window containing its
//     completion time
//   - an NA item is shown as na only in the window containing its NA time
//
// Once a window has passed, closed items never reappear in later windows.
package visibility

import (
	"context"
	"fmt"
	"time"

	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// Filter evaluates period views against a store.
type Filter struct {
	store storage.Reader
	cal   period.Calendar
	now   func() time.Time
}

// Option configures a Filter.
type Option func(*Filter)

// WithNowFunc replaces the clock used when as-of is zero.
func WithNowFunc(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// WithCalendar sets the location and week convention of window math.
func WithCalendar(cal period.Calendar) Option {
	return func(f *Filter) { f.cal = cal }
}

// New returns a Filter reading from store.
func New(store storage.Reader, opts ...Option) *Filter {
	f := &Filter{store: store, cal: period.DefaultCalendar(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// In returns a copy of f that reads from r, typically an open transaction
// so several views share one snapshot.
func (f *Filter) In(r storage.Reader) *Filter {
	cp := *f
	cp.store = r
	return &cp
}

// ListVisible returns the items visible in the window of kind that runs
// from start through the calendar day last, as of asOf, in view order. A
// zero asOf means now; a zero last means the window never ends.
func (f *Filter) ListVisible(ctx context.Context, kind types.PeriodKind, start, last, asOf time.Time) ([]*types.ItemView, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown period kind %q: %w", kind, storage.ErrNotFound)
	}
	w, err := f.cal.Through(kind, start, last)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = f.now()
	}

	home, err := f.store.ListItems(ctx, types.ItemFilter{HomePeriod: &kind})
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", kind, err)
	}
	monitored, err := f.store.ListItems(ctx, types.ItemFilter{MonitoredIn: &kind})
	if err != nil {
		return nil, fmt.Errorf("list items monitored in %s: %w", kind, err)
	}
	rows, err := f.store.ListWindowStatuses(ctx, kind, f.cal.Normalize(kind, start))
	if err != nil {
		return nil, fmt.Errorf("list %s statuses: %w", kind, err)
	}
	statuses := make(map[string]types.Status, len(rows))
	for _, r := range rows {
		if r.UpdatedAt.After(asOf) {
			continue
		}
		statuses[r.ItemID] = r.Status
	}

	seen := make(map[string]bool, len(home)+len(monitored))
	var views []*types.ItemView
	add := func(item *types.WorkItem, viaMonitor bool) {
		if seen[item.ID] {
			return
		}
		seen[item.ID] = true
		if vs, ok := Evaluate(item, w, statuses[item.ID], asOf); ok {
			views = append(views, &types.ItemView{Item: item, Status: vs, Monitored: viaMonitor})
		}
	}
	for _, item := range home {
		add(item, false)
	}
	for _, item := range monitored {
		add(item, true)
	}
	types.SortViews(views)
	return views, nil
}

// ListVisibleAt lists the window of kind containing asOf.
func (f *Filter) ListVisibleAt(ctx context.Context, kind types.PeriodKind, asOf time.Time) ([]*types.ItemView, error) {
	if asOf.IsZero() {
		asOf = f.now()
	}
	w := f.cal.WindowFor(kind, asOf)
	return f.ListVisible(ctx, kind, w.Start, w.LastDay(), asOf)
}

// Evaluate applies the visibility rules to one item. row is the item's
// recorded status in w ("" when none). It reports the view status and
// whether the item is visible at all.
func Evaluate(item *types.WorkItem, w period.Window, row types.Status, asOf time.Time) (types.ViewStatus, bool) {
	if item.CreatedAt.After(asOf) {
		return "", false
	}
	switch {
	case item.CompletedAt != nil && !item.CompletedAt.After(asOf):
		return types.ViewDone, w.Contains(*item.CompletedAt)
	case item.NAMarkedAt != nil && !item.NAMarkedAt.After(asOf):
		return types.ViewNA, w.Contains(*item.NAMarkedAt)
	}
	switch row {
	case types.StatusCompleted:
		return types.ViewDone, true
	case types.StatusNA:
		return types.ViewNA, true
	}
	return types.ViewActive, true
}
