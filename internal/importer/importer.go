package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/timeparsing"
	"github.com/steveyegge/tempo/internal/types"
)

// Target is the part of the engine an import needs.
type Target interface {
	OnItemCreated(ctx context.Context, item *types.WorkItem) (*types.WorkItem, error)
	GetItem(ctx context.Context, id string) (*types.WorkItem, error)
	ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error)
	Monitor(ctx context.Context, itemID string, kind types.PeriodKind) error
	Now() time.Time
}

// Options contains import configuration
type Options struct {
	DryRun       bool // Validate and report without writing
	SkipExisting bool // Skip items whose ID, or name and period, already exist
	Strict       bool // Stop at the first invalid item instead of skipping it
}

// Result contains statistics about the import operation
type Result struct {
	Created   int      `json:"created"`
	Monitored int      `json:"monitored"` // monitoring associations added
	Skipped   int      `json:"skipped"`
	IDs       []string `json:"ids"` // created item IDs, in plan order
	Errors    []string `json:"errors,omitempty"`
}

// Import creates every item in plan. Items are independent: one failing
// item is reported and skipped unless opts.Strict is set.
func Import(ctx context.Context, target Target, plan *Plan, opts Options) (*Result, error) {
	res := &Result{IDs: []string{}}
	now := target.Now()

	var existing map[string]bool
	if opts.SkipExisting {
		all, err := target.ListItems(ctx, types.ItemFilter{})
		if err != nil {
			return nil, fmt.Errorf("list existing items: %w", err)
		}
		existing = make(map[string]bool, len(all))
		for _, it := range all {
			existing[existingKey(it.Name, it.HomePeriod)] = true
		}
	}

	for i, pi := range plan.Items {
		item, monitors, err := pi.build(now)
		if err != nil {
			if opts.Strict {
				return res, fmt.Errorf("item %d (%s): %w", i+1, pi.Name, err)
			}
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("item %d (%s): %v", i+1, pi.Name, err))
			continue
		}

		if opts.SkipExisting {
			if existing[existingKey(item.Name, item.HomePeriod)] {
				res.Skipped++
				continue
			}
			if item.ID != "" {
				if _, err := target.GetItem(ctx, item.ID); err == nil {
					res.Skipped++
					continue
				} else if !errors.Is(err, storage.ErrNotFound) {
					return res, fmt.Errorf("check item %s: %w", item.ID, err)
				}
			}
		}

		if opts.DryRun {
			res.Created++
			res.Monitored += len(monitors)
			continue
		}

		created, err := target.OnItemCreated(ctx, item)
		if err != nil {
			if opts.Strict {
				return res, fmt.Errorf("item %d (%s): %w", i+1, pi.Name, err)
			}
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("item %d (%s): %v", i+1, pi.Name, err))
			continue
		}
		res.Created++
		res.IDs = append(res.IDs, created.ID)
		if opts.SkipExisting {
			existing[existingKey(created.Name, created.HomePeriod)] = true
		}

		for _, kind := range monitors {
			if err := target.Monitor(ctx, created.ID, kind); err != nil {
				// The item exists; report the association and move on.
				res.Errors = append(res.Errors, fmt.Sprintf("item %d (%s): monitor %s: %v", i+1, pi.Name, kind, err))
				if opts.Strict {
					return res, fmt.Errorf("item %d (%s): monitor %s: %w", i+1, pi.Name, kind, err)
				}
				continue
			}
			res.Monitored++
		}
	}

	debug.Logf("import: created=%d monitored=%d skipped=%d\n", res.Created, res.Monitored, res.Skipped)
	return res, nil
}

func existingKey(name string, kind types.PeriodKind) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + string(kind)
}

// build turns a plan entry into a work item and its monitored kinds.
func (pi PlanItem) build(now time.Time) (*types.WorkItem, []types.PeriodKind, error) {
	var item *types.WorkItem
	if pi.record != nil {
		item = pi.record.Item.Clone()
	} else {
		item = &types.WorkItem{
			ID:         pi.ID,
			Name:       strings.TrimSpace(pi.Name),
			Priority:   pi.Priority,
			HomePeriod: types.PeriodKind(strings.ToLower(strings.TrimSpace(pi.Period))),
		}
		due, err := timeparsing.ParseDueDate(pi.Due, now)
		if err != nil {
			return nil, nil, fmt.Errorf("due: %w", err)
		}
		item.DueDate = due
	}

	check := item.Clone()
	check.SetDefaults()
	if err := check.Validate(); err != nil {
		return nil, nil, err
	}

	monitors := make([]types.PeriodKind, 0, len(pi.Monitor))
	for _, m := range pi.Monitor {
		kind := types.PeriodKind(strings.ToLower(strings.TrimSpace(m)))
		if !kind.IsCalendar() {
			return nil, nil, fmt.Errorf("%w: cannot monitor %q (want daily, weekly, monthly or yearly)", types.ErrInvalidState, m)
		}
		if kind == check.HomePeriod {
			return nil, nil, fmt.Errorf("%w: cannot monitor the home period %q", types.ErrInvalidState, m)
		}
		monitors = append(monitors, kind)
	}
	return item, monitors, nil
}
