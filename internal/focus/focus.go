// Package focus maintains the bounded focus queue: the three most urgent
// due items in the priority 1-3 band.
//
// The queue itself is derived on every Refresh. What the manager owns is
// promotion: when a focus item leaves the eligible set, the best due backlog
// item (priority 4-10) is lifted to priority 3 so the queue refills. Each
// promotion is an optimistic transaction guarded by the store's focus
// generation; a lost race is retried with exponential backoff and, once the
// retries are spent, abandoned without failing the caller.
package focus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/telemetry"
	"github.com/steveyegge/tempo/internal/types"
)

const (
	// DefaultPromotionRetries bounds conflict retries of one promotion.
	DefaultPromotionRetries = 5
	// DefaultRetryMaxElapsed bounds the total time spent retrying.
	DefaultRetryMaxElapsed = 2 * time.Second

	initialRetryInterval = 10 * time.Millisecond
	scopeName            = "github.com/steveyegge/tempo/focus"
)

// Manager is the focus queue manager.
type Manager struct {
	store      storage.Storage
	cal        period.Calendar
	now        func() time.Time
	retries    uint64
	maxElapsed time.Duration

	refresh singleflight.Group

	promotions metric.Int64Counter
	conflicts  metric.Int64Counter
	abandoned  metric.Int64Counter
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowFunc replaces the clock. Eligibility is evaluated against the
// calendar date of now.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCalendar sets the location "today" is computed in.
func WithCalendar(cal period.Calendar) Option {
	return func(m *Manager) { m.cal = cal }
}

// WithPromotionRetries sets how many times a conflicting promotion is
// retried before it is abandoned.
func WithPromotionRetries(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.retries = uint64(n)
		}
	}
}

// WithRetryMaxElapsed caps the total backoff time of one promotion.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxElapsed = d
		}
	}
}

// New returns a Manager over store.
func New(store storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		cal:        period.DefaultCalendar(),
		now:        time.Now,
		retries:    DefaultPromotionRetries,
		maxElapsed: DefaultRetryMaxElapsed,
	}
	for _, opt := range opts {
		opt(m)
	}

	meter := telemetry.Meter(scopeName)
	m.promotions, _ = meter.Int64Counter("tempo.focus.promotions",
		metric.WithDescription("Backlog items promoted into the focus band"),
	)
	m.conflicts, _ = meter.Int64Counter("tempo.focus.conflicts",
		metric.WithDescription("Promotion attempts that lost the focus generation race"),
	)
	m.abandoned, _ = meter.Int64Counter("tempo.focus.abandoned",
		metric.WithDescription("Promotions abandoned after exhausting retries"),
	)
	return m
}

func (m *Manager) today() time.Time {
	return m.cal.Today(m.now())
}

// Refresh recomputes the focus queue: eligible items ordered by priority,
// due date, creation time and ID, capped at FocusQueueSize. Concurrent
// callers that observe the same focus generation and date share one
// evaluation, so a caller never joins a read that started before its own
// write committed.
func (m *Manager) Refresh(ctx context.Context) (*types.FocusQueue, error) {
	today := m.today()
	gen, err := m.store.FocusGeneration(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh focus queue: %w", err)
	}
	key := fmt.Sprintf("%d@%s", gen, today.Format(types.DateLayout))
	ch := m.refresh.DoChan(key, func() (interface{}, error) {
		return m.eligible(context.WithoutCancel(ctx), today)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("refresh focus queue: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, fmt.Errorf("refresh focus queue: %w", r.Err)
		}
		return buildQueue(r.Val.([]*types.WorkItem)), nil
	}
}

// load reads the queue without coalescing.
func (m *Manager) load(ctx context.Context) (*types.FocusQueue, error) {
	eligible, err := m.eligible(ctx, m.today())
	if err != nil {
		return nil, fmt.Errorf("refresh focus queue: %w", err)
	}
	return buildQueue(eligible), nil
}

func (m *Manager) eligible(ctx context.Context, today time.Time) ([]*types.WorkItem, error) {
	return m.store.EligibleItems(ctx, types.EligibilityFilter{
		MinPriority:   types.MinPriority,
		MaxPriority:   types.FocusBandMax,
		DueOnOrBefore: today,
	})
}

// buildQueue caps eligible at FocusQueueSize. eligible may be shared
// between coalesced callers, so items are cloned.
func buildQueue(eligible []*types.WorkItem) *types.FocusQueue {
	q := &types.FocusQueue{Items: []*types.ItemView{}}
	for i, item := range eligible {
		if i >= types.FocusQueueSize {
			q.BacklogCount = len(eligible) - types.FocusQueueSize
			break
		}
		q.Items = append(q.Items, &types.ItemView{Item: item.Clone(), Status: types.ViewActive})
	}
	return q
}

// OnComplete reacts to itemID leaving the eligible set. When its priority
// before the change was inside the focus band a promotion is attempted; a
// promotion that cannot win its race is logged and dropped. The queue is
// then read afresh and returned either way.
func (m *Manager) OnComplete(ctx context.Context, itemID string, priorPriority int) (*types.FocusQueue, error) {
	if priorPriority <= types.FocusBandMax {
		if _, err := m.Promote(ctx, itemID); err != nil {
			if !errors.Is(err, storage.ErrConflict) {
				return nil, err
			}
			debug.Logf("focus: promotion after %s abandoned: %v\n", itemID, err)
		}
	}
	return m.load(ctx)
}

// Promote fills one free focus slot, ignoring excludeID, and returns the
// promoted item. It returns nil when the queue is full or no due backlog
// item exists. After the retry budget is spent on conflicts it returns an
// error wrapping storage.ErrConflict.
func (m *Manager) Promote(ctx context.Context, excludeID string) (*types.WorkItem, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialRetryInterval
	bo.MaxElapsedTime = m.maxElapsed

	var promoted *types.WorkItem
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		promoted, err = m.promoteOnce(ctx, excludeID)
		if errors.Is(err, storage.ErrConflict) {
			m.conflicts.Add(ctx, 1)
			debug.Logf("focus: promotion conflict (attempt %d): %v\n", attempt, err)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, m.retries), ctx))
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			m.abandoned.Add(ctx, 1)
			return nil, fmt.Errorf("promotion gave up after %d attempts: %w", attempt, err)
		}
		return nil, fmt.Errorf("promote: %w", err)
	}
	if promoted != nil {
		m.promotions.Add(ctx, 1)
		debug.LogEvent("PROMOTE", promoted.ID, fmt.Sprintf("priority %d", promoted.Priority))
	}
	return promoted, nil
}

func (m *Manager) promoteOnce(ctx context.Context, excludeID string) (*types.WorkItem, error) {
	var promoted *types.WorkItem
	today := m.today()
	err := m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		promoted = nil
		gen, err := tx.FocusGeneration(ctx)
		if err != nil {
			return err
		}
		inBand, err := tx.EligibleItems(ctx, types.EligibilityFilter{
			MinPriority:   types.MinPriority,
			MaxPriority:   types.FocusBandMax,
			DueOnOrBefore: today,
			ExcludeID:     excludeID,
		})
		if err != nil {
			return err
		}
		if len(inBand) >= types.FocusQueueSize {
			return nil
		}
		candidates, err := tx.EligibleItems(ctx, types.EligibilityFilter{
			MinPriority:   types.FocusBandMax + 1,
			MaxPriority:   types.MaxPriority,
			DueOnOrBefore: today,
			ExcludeID:     excludeID,
			Limit:         1,
		})
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		if err := tx.CompareAndBumpFocusGeneration(ctx, gen); err != nil {
			return err
		}
		c := candidates[0]
		c.SetPriority(types.FocusBandMax)
		c.UpdatedAt = m.now()
		if err := tx.UpdateItem(ctx, c); err != nil {
			return fmt.Errorf("promote %s: %w", c.ID, err)
		}
		promoted = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// Reconcile promotes until the queue is full or no candidate remains and
// returns the promoted items.
func (m *Manager) Reconcile(ctx context.Context) ([]*types.WorkItem, error) {
	var out []*types.WorkItem
	for range types.FocusQueueSize {
		p, err := m.Promote(ctx, "")
		if err != nil {
			return out, err
		}
		if p == nil {
			break
		}
		out = append(out, p)
	}
	return out, nil
}
