// Package cascade propagates home-period events into the coarser period
// kinds an item is monitored in.
//
// Propagation only ever runs from a home event toward coarser kinds: a
// completion in a daily home period marks the week, month and year windows
// that contain it, but a mark made in the weekly view never touches the
// daily status or the item itself.
package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// Event is a completion or NA recorded in an item's home period.
type Event struct {
	Item   *types.WorkItem
	Status types.Status
	// At is the event time, already clamped into the home window. Target
	// windows are the ones containing it.
	At time.Time
}

// Coordinator computes and writes cascade rows.
type Coordinator struct {
	cal period.Calendar
}

// New returns a Coordinator doing window math in cal.
func New(cal period.Calendar) *Coordinator {
	return &Coordinator{cal: cal}
}

// Targets returns the windows an event in home at t cascades into, given the
// item's monitoring associations. Kinds that are not strictly coarser than
// home are skipped.
func (c *Coordinator) Targets(home types.PeriodKind, assocs []*types.MonitoringAssociation, t time.Time) []period.Window {
	var out []period.Window
	for _, a := range assocs {
		if a.PeriodKind == home || !period.Coarser(home, a.PeriodKind) {
			continue
		}
		out = append(out, c.cal.WindowFor(a.PeriodKind, t))
	}
	return out
}

// Propagate writes the cascade rows for ev inside tx and returns them.
// Only completed and NA events cascade.
func (c *Coordinator) Propagate(ctx context.Context, tx storage.Transaction, ev Event) ([]*types.PeriodStatus, error) {
	if ev.Status != types.StatusCompleted && ev.Status != types.StatusNA {
		return nil, fmt.Errorf("%w: cannot cascade status %q", types.ErrInvalidState, ev.Status)
	}
	assocs, err := tx.ListMonitors(ctx, ev.Item.ID)
	if err != nil {
		return nil, fmt.Errorf("list monitors of %s: %w", ev.Item.ID, err)
	}

	var written []*types.PeriodStatus
	for _, w := range c.Targets(ev.Item.HomePeriod, assocs, ev.At) {
		st := &types.PeriodStatus{
			ItemID:      ev.Item.ID,
			PeriodKind:  w.Kind,
			WindowStart: w.Start.UTC(),
			Status:      ev.Status,
			UpdatedAt:   ev.At,
		}
		if err := tx.UpsertPeriodStatus(ctx, st); err != nil {
			return nil, fmt.Errorf("cascade %s into %s: %w", ev.Item.ID, w, err)
		}
		written = append(written, st)
	}
	return written, nil
}
