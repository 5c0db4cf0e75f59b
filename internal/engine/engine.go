// Package engine wires the period status tracker, the visibility filter and
// the focus queue manager over one store. It is the API the CLI and the
// root tempo package use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/focus"
	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/tracker"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/visibility"
)

// Engine is the tempo domain engine.
type Engine struct {
	store   storage.Storage
	cal     period.Calendar
	now     func() time.Time
	tracker *tracker.Tracker
	focus   *focus.Manager
	views   *visibility.Filter
}

type options struct {
	cal        period.Calendar
	now        func() time.Time
	retries    int
	maxElapsed time.Duration
}

// Option configures an Engine.
type Option func(*options)

// WithNowFunc replaces the clock of every component.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCalendar sets the location and week convention of window math.
func WithCalendar(cal period.Calendar) Option {
	return func(o *options) { o.cal = cal }
}

// WithPromotionRetries bounds conflict retries of one promotion.
func WithPromotionRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithRetryMaxElapsed caps the total backoff time of one promotion.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(o *options) { o.maxElapsed = d }
}

// New returns an Engine over store. The engine does not own store.
func New(store storage.Storage, opts ...Option) *Engine {
	o := options{
		cal:        period.DefaultCalendar(),
		now:        time.Now,
		retries:    focus.DefaultPromotionRetries,
		maxElapsed: focus.DefaultRetryMaxElapsed,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		store: store,
		cal:   o.cal,
		now:   o.now,
		tracker: tracker.New(store,
			tracker.WithCalendar(o.cal),
			tracker.WithNowFunc(o.now),
		),
		focus: focus.New(store,
			focus.WithCalendar(o.cal),
			focus.WithNowFunc(o.now),
			focus.WithPromotionRetries(o.retries),
			focus.WithRetryMaxElapsed(o.maxElapsed),
		),
		views: visibility.New(store,
			visibility.WithCalendar(o.cal),
			visibility.WithNowFunc(o.now),
		),
	}
}

// Store returns the underlying store.
func (e *Engine) Store() storage.Storage { return e.store }

// Calendar returns the calendar window math runs in.
func (e *Engine) Calendar() period.Calendar { return e.cal }

// Now returns the engine clock.
func (e *Engine) Now() time.Time { return e.now() }

// ── Items ───────────────────────────────────────────────────────────────────

// OnItemCreated stores a new item. A missing ID is generated, a missing
// priority defaults to the backlog (10) and a missing home period to
// one-time.
func (e *Engine) OnItemCreated(ctx context.Context, item *types.WorkItem) (*types.WorkItem, error) {
	created := item.Clone()
	if created.ID == "" {
		created.ID = types.NewID()
	}
	now := e.now()
	created.CreatedAt = now
	created.UpdatedAt = now
	created.SetDefaults()
	if err := created.Validate(); err != nil {
		return nil, fmt.Errorf("invalid item: %w", err)
	}
	err := e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.CreateItem(ctx, created); err != nil {
			return err
		}
		return tx.TouchFocusGeneration(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	debug.LogEvent("CREATE", created.ID, created.Name)
	return created, nil
}

// GetItem returns one item.
func (e *Engine) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	return e.store.GetItem(ctx, id)
}

// ListItems returns items matching filter.
func (e *Engine) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	return e.store.ListItems(ctx, filter)
}

// SetPriority changes an item's priority. Moving a focus item out of the
// band frees its slot for the next backlog item.
func (e *Engine) SetPriority(ctx context.Context, id string, priority int) (*types.WorkItem, error) {
	if priority < types.MinPriority || priority > types.MaxPriority {
		return nil, fmt.Errorf("priority must be between %d and %d (got %d)", types.MinPriority, types.MaxPriority, priority)
	}
	return e.edit(ctx, id, func(item *types.WorkItem) { item.SetPriority(priority) })
}

// SetDueDate changes an item's due date; nil clears it.
func (e *Engine) SetDueDate(ctx context.Context, id string, due *time.Time) (*types.WorkItem, error) {
	return e.edit(ctx, id, func(item *types.WorkItem) {
		if due == nil {
			item.DueDate = nil
			return
		}
		d := types.TruncateDate(*due)
		item.DueDate = &d
	})
}

func (e *Engine) edit(ctx context.Context, id string, change func(*types.WorkItem)) (*types.WorkItem, error) {
	var (
		item       *types.WorkItem
		wasInQueue bool
	)
	today := e.cal.Today(e.now())
	err := e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		var err error
		item, err = tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		wasInQueue = types.IsEligible(item, types.MinPriority, types.FocusBandMax, today)
		change(item)
		item.UpdatedAt = e.now()
		if err := item.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		return tx.TouchFocusGeneration(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("update item %s: %w", id, err)
	}
	if wasInQueue && !types.IsEligible(item, types.MinPriority, types.FocusBandMax, today) {
		e.promoteSoft(ctx, id)
	}
	return item, nil
}

// DeleteItem removes an item with its statuses and monitors.
func (e *Engine) DeleteItem(ctx context.Context, id string) error {
	var wasInQueue bool
	today := e.cal.Today(e.now())
	err := e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		wasInQueue = types.IsEligible(item, types.MinPriority, types.FocusBandMax, today)
		if err := tx.DeleteItem(ctx, id); err != nil {
			return err
		}
		return tx.TouchFocusGeneration(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	debug.LogEvent("DELETE", id, "")
	if wasInQueue {
		e.promoteSoft(ctx, id)
	}
	return nil
}

// promoteSoft fills a freed slot. Failures are logged; the write that freed
// the slot has already committed and the sweeper retries later.
func (e *Engine) promoteSoft(ctx context.Context, excludeID string) {
	if _, err := e.focus.Promote(ctx, excludeID); err != nil {
		debug.Logf("engine: promotion after %s failed: %v\n", excludeID, err)
	}
}

// ── Period statuses ─────────────────────────────────────────────────────────

// MarkComplete records a completion in the window of kind containing
// window.
func (e *Engine) MarkComplete(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (types.Status, error) {
	res, err := e.Mark(ctx, tracker.MarkRequest{ItemID: itemID, Kind: kind, Window: window, Complete: true})
	if err != nil {
		return "", err
	}
	return res.Status, nil
}

// MarkNA records an NA in the window of kind containing window.
func (e *Engine) MarkNA(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (types.Status, error) {
	res, err := e.Mark(ctx, tracker.MarkRequest{ItemID: itemID, Kind: kind, Window: window, NA: true})
	if err != nil {
		return "", err
	}
	return res.Status, nil
}

// Mark records req and, when it frees a focus slot, promotes the next
// backlog item. A failed promotion never fails the mark.
func (e *Engine) Mark(ctx context.Context, req tracker.MarkRequest) (*tracker.Result, error) {
	res, err := e.tracker.Mark(ctx, req)
	if err != nil {
		return nil, err
	}
	debug.LogEvent(eventCode(res.Status), req.ItemID, fmt.Sprintf("%s %s", req.Kind, res.WindowStart.Format(time.RFC3339)))
	if res.LifecycleChanged() {
		debug.Logf("engine: %s %s -> %s\n", req.ItemID, res.PriorLifecycle, res.Item.Lifecycle())
	}
	if res.FreedFocusSlot() {
		if _, err := e.focus.OnComplete(ctx, req.ItemID, res.PriorPriority); err != nil {
			debug.Logf("engine: focus refresh after %s failed: %v\n", req.ItemID, err)
		}
	}
	return res, nil
}

func eventCode(s types.Status) string {
	switch s {
	case types.StatusCompleted:
		return "DONE"
	case types.StatusNA:
		return "NA"
	}
	return "REOPEN"
}

// Reopen resets a window to none; on the home period the item becomes
// active again.
func (e *Engine) Reopen(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (*tracker.Result, error) {
	res, err := e.tracker.Reopen(ctx, itemID, kind, window)
	if err != nil {
		return nil, err
	}
	debug.LogEvent(eventCode(res.Status), itemID, string(kind))
	return res, nil
}

// GetStatus returns the status of an item in one window.
func (e *Engine) GetStatus(ctx context.Context, itemID string, kind types.PeriodKind, window time.Time) (types.Status, error) {
	return e.tracker.GetStatus(ctx, itemID, kind, window)
}

// Monitor opts an item into a non-home kind.
func (e *Engine) Monitor(ctx context.Context, itemID string, kind types.PeriodKind) error {
	return e.tracker.Monitor(ctx, itemID, kind)
}

// Unmonitor removes a monitoring association.
func (e *Engine) Unmonitor(ctx context.Context, itemID string, kind types.PeriodKind) error {
	return e.tracker.Unmonitor(ctx, itemID, kind)
}

// ── Views ───────────────────────────────────────────────────────────────────

// ListVisible returns the items shown in the window of kind from start
// through the calendar day last, as of asOf.
func (e *Engine) ListVisible(ctx context.Context, kind types.PeriodKind, start, last, asOf time.Time) ([]*types.ItemView, error) {
	return e.views.ListVisible(ctx, kind, start, last, asOf)
}

// ListVisibleAt lists the window of kind containing asOf (zero: now).
func (e *Engine) ListVisibleAt(ctx context.Context, kind types.PeriodKind, asOf time.Time) ([]*types.ItemView, error) {
	return e.views.ListVisibleAt(ctx, kind, asOf)
}

// AgendaSection is one calendar view of an agenda.
type AgendaSection struct {
	Window period.Window     `json:"window"`
	Items  []*types.ItemView `json:"items"`
}

// Agenda lists the current window of every calendar kind, finest first.
// All sections are read in one transaction so a concurrent mark is seen by
// every section or by none.
func (e *Engine) Agenda(ctx context.Context, asOf time.Time) ([]AgendaSection, error) {
	if asOf.IsZero() {
		asOf = e.now()
	}
	var sections []AgendaSection
	err := e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		views := e.views.In(tx)
		sections = make([]AgendaSection, 0, len(types.CalendarKinds))
		for _, kind := range types.CalendarKinds {
			w := e.cal.WindowFor(kind, asOf)
			items, err := views.ListVisible(ctx, kind, w.Start, w.LastDay(), asOf)
			if err != nil {
				return fmt.Errorf("%s view: %w", kind, err)
			}
			sections = append(sections, AgendaSection{Window: w, Items: items})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// ── Focus ───────────────────────────────────────────────────────────────────

// GetFocusQueue returns the current focus queue.
func (e *Engine) GetFocusQueue(ctx context.Context) (*types.FocusQueue, error) {
	return e.focus.Refresh(ctx)
}

// Reconcile promotes backlog items until the queue is full.
func (e *Engine) Reconcile(ctx context.Context) ([]*types.WorkItem, error) {
	return e.focus.Reconcile(ctx)
}

// RunSweeper reconciles the focus queue immediately and then on every tick
// until ctx is done. Sweep errors are logged and do not stop the loop.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive (got %v)", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		promoted, err := e.Reconcile(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			debug.Logf("sweep: %v\n", err)
		case len(promoted) > 0:
			debug.Logf("sweep: promoted %d item(s)\n", len(promoted))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
