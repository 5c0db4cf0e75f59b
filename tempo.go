// Package tempo provides the public API for embedding the tempo period
// status engine: work items tracked per time window, cascading completion
// into coarser windows, and a three-slot focus queue.
//
// Most programs open an engine with Open and call its methods directly; the
// types here are aliases of the internal ones so values flow through without
// conversion.
package tempo

import (
	"context"

	"github.com/steveyegge/tempo/internal/engine"
	"github.com/steveyegge/tempo/internal/period"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/factory"
	"github.com/steveyegge/tempo/internal/types"
)

// Core types
type (
	WorkItem     = types.WorkItem
	PeriodKind   = types.PeriodKind
	Status       = types.Status
	ViewStatus   = types.ViewStatus
	ItemView     = types.ItemView
	FocusQueue   = types.FocusQueue
	ItemFilter   = types.ItemFilter
	Calendar     = period.Calendar
	Window       = period.Window
	Engine       = engine.Engine
	Option       = engine.Option
	Storage      = storage.Storage
	StoreOptions = factory.Options
)

// Period kinds
const (
	Daily          = types.PeriodDaily
	Weekly         = types.PeriodWeekly
	Monthly        = types.PeriodMonthly
	Yearly         = types.PeriodYearly
	OneTime        = types.PeriodOneTime
	ProjectTask    = types.PeriodProjectTask
	GoalTask       = types.PeriodGoalTask
	Habit          = types.PeriodHabit
	ImportantCheck = types.PeriodImportantCheck
)

// Status constants
const (
	StatusNone      = types.StatusNone
	StatusCompleted = types.StatusCompleted
	StatusNA        = types.StatusNA
)

// Errors, matched with errors.Is.
var (
	ErrNotFound     = storage.ErrNotFound
	ErrInvalidState = types.ErrInvalidState
	ErrConflict     = storage.ErrConflict
)

// Engine options
var (
	WithNowFunc          = engine.WithNowFunc
	WithCalendar         = engine.WithCalendar
	WithPromotionRetries = engine.WithPromotionRetries
	WithRetryMaxElapsed  = engine.WithRetryMaxElapsed
)

// Open opens the named storage backend ("sqlite", "dolt" or "memory") and
// returns an engine on it. Close the engine's store when done:
//
//	eng, err := tempo.Open(ctx, "sqlite", tempo.StoreOptions{Path: "tempo.db"})
//	...
//	defer eng.Store().Close()
func Open(ctx context.Context, backend string, opts StoreOptions, engineOpts ...Option) (*Engine, error) {
	store, err := factory.New(ctx, backend, opts)
	if err != nil {
		return nil, err
	}
	return engine.New(store, engineOpts...), nil
}

// New returns an engine over an already open store.
func New(store Storage, opts ...Option) *Engine {
	return engine.New(store, opts...)
}

// DefaultCalendar uses the local time zone and Monday-start weeks.
func DefaultCalendar() Calendar {
	return period.DefaultCalendar()
}
