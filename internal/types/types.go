// Package types defines core data structures for the tempo tracker.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority bounds. Priority 1 is the most urgent; 10 is the backlog.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = MaxPriority

	// FocusBandMax is the highest priority that still counts as focus work.
	// Promotion lifts a backlog item to exactly this value.
	FocusBandMax = 3

	// FocusQueueSize is the upper bound of the focus queue.
	FocusQueueSize = 3
)

// DateLayout is the canonical wire/storage layout for calendar dates.
const DateLayout = "2006-01-02"

// ErrInvalidState is returned for contradictory requests (e.g. asking for
// both complete and NA at once) and for records that break the lifecycle
// invariant.
var ErrInvalidState = errors.New("invalid state")

// WorkItem represents a trackable unit of work of any kind.
type WorkItem struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Priority        int        `json:"priority"`
	DueDate         *time.Time `json:"due_date,omitempty"` // calendar date, midnight UTC
	HomePeriod      PeriodKind `json:"home_period"`
	IsActive        bool       `json:"is_active"`
	GlobalCompleted bool       `json:"global_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	NAMarkedAt      *time.Time `json:"na_marked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewID returns a fresh work item identifier.
func NewID() string {
	return uuid.NewString()
}

// Lifecycle is the mutually exclusive top-level state of a WorkItem.
type Lifecycle string

const (
	LifecycleActive    Lifecycle = "active"
	LifecycleCompleted Lifecycle = "completed"
	LifecycleNA        Lifecycle = "na"
)

// Lifecycle reports which of the three states the item is in.
// It assumes the item is valid; call Validate first for untrusted input.
func (w *WorkItem) Lifecycle() Lifecycle {
	switch {
	case !w.IsActive:
		return LifecycleNA
	case w.GlobalCompleted:
		return LifecycleCompleted
	default:
		return LifecycleActive
	}
}

// MarkCompleted moves the item into the completed state at t.
func (w *WorkItem) MarkCompleted(t time.Time) {
	w.IsActive = true
	w.GlobalCompleted = true
	w.CompletedAt = &t
	w.NAMarkedAt = nil
	w.UpdatedAt = t
}

// MarkNA moves the item into the not-applicable state at t.
func (w *WorkItem) MarkNA(t time.Time) {
	w.IsActive = false
	w.GlobalCompleted = false
	w.CompletedAt = nil
	w.NAMarkedAt = &t
	w.UpdatedAt = t
}

// Reactivate returns the item to the active state.
func (w *WorkItem) Reactivate(t time.Time) {
	w.IsActive = true
	w.GlobalCompleted = false
	w.CompletedAt = nil
	w.NAMarkedAt = nil
	w.UpdatedAt = t
}

// SetDefaults fills fields a creator may omit. A zero priority means
// "unset" (priority 0 is not a valid value) and becomes the backlog.
func (w *WorkItem) SetDefaults() {
	if w.Priority == 0 {
		w.Priority = DefaultPriority
	}
	if w.HomePeriod == "" {
		w.HomePeriod = PeriodOneTime
	}
	if !w.GlobalCompleted && w.NAMarkedAt == nil {
		w.IsActive = true
	}
	if w.DueDate != nil {
		d := TruncateDate(*w.DueDate)
		w.DueDate = &d
	}
}

// Validate checks field ranges and the lifecycle invariant.
func (w *WorkItem) Validate() error {
	if len(w.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if len(w.Name) > 500 {
		return fmt.Errorf("name must be 500 characters or less (got %d)", len(w.Name))
	}
	if w.Priority < MinPriority || w.Priority > MaxPriority {
		return fmt.Errorf("priority must be between %d and %d (got %d)", MinPriority, MaxPriority, w.Priority)
	}
	if !w.HomePeriod.IsValid() {
		return fmt.Errorf("invalid home period: %q", w.HomePeriod)
	}
	switch {
	case w.GlobalCompleted && !w.IsActive:
		return fmt.Errorf("%w: item cannot be both completed and NA", ErrInvalidState)
	case w.GlobalCompleted && w.CompletedAt == nil:
		return fmt.Errorf("%w: completed items must have completed_at", ErrInvalidState)
	case !w.GlobalCompleted && w.CompletedAt != nil:
		return fmt.Errorf("%w: non-completed items cannot have completed_at", ErrInvalidState)
	case !w.IsActive && w.NAMarkedAt == nil:
		return fmt.Errorf("%w: NA items must have na_marked_at", ErrInvalidState)
	case w.IsActive && w.NAMarkedAt != nil:
		return fmt.Errorf("%w: active items cannot have na_marked_at", ErrInvalidState)
	}
	return nil
}

// Clone returns a deep copy of the item.
func (w *WorkItem) Clone() *WorkItem {
	c := *w
	c.DueDate = cloneTime(w.DueDate)
	c.CompletedAt = cloneTime(w.CompletedAt)
	c.NAMarkedAt = cloneTime(w.NAMarkedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TruncateDate drops the clock portion of t, keeping its calendar date in
// t's own location, and returns that date at midnight UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Focusable is the surface the focus queue and view ordering work against.
// Every item kind satisfies it, so neither ever branches on concrete kind.
type Focusable interface {
	GetID() string
	GetPriority() int
	GetDueDate() *time.Time
	IsCompleted() bool
	IsItemActive() bool
	SetPriority(p int)
}

func (w *WorkItem) GetID() string          { return w.ID }
func (w *WorkItem) GetPriority() int       { return w.Priority }
func (w *WorkItem) GetDueDate() *time.Time { return w.DueDate }
func (w *WorkItem) IsCompleted() bool      { return w.GlobalCompleted }
func (w *WorkItem) IsItemActive() bool     { return w.IsActive }
func (w *WorkItem) SetPriority(p int)      { w.Priority = p }

// PeriodKind is a reporting granularity.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
	PeriodYearly  PeriodKind = "yearly"
	PeriodOneTime PeriodKind = "one-time"

	// Entity-specific kinds.
	PeriodProjectTask    PeriodKind = "project-task"
	PeriodGoalTask       PeriodKind = "goal-task"
	PeriodHabit          PeriodKind = "habit"
	PeriodImportantCheck PeriodKind = "important-check"
)

// AllPeriodKinds lists every known kind in a stable order.
var AllPeriodKinds = []PeriodKind{
	PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodOneTime,
	PeriodProjectTask, PeriodGoalTask, PeriodHabit, PeriodImportantCheck,
}

// CalendarKinds lists the kinds that map onto calendar windows, finest first.
var CalendarKinds = []PeriodKind{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly}

// IsValid reports whether k is a known period kind.
func (k PeriodKind) IsValid() bool {
	for _, known := range AllPeriodKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsCalendar reports whether k has calendar windows.
func (k PeriodKind) IsCalendar() bool {
	switch k {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Status is the per-window state of an item in one period kind.
type Status string

const (
	StatusNone      Status = "none"
	StatusCompleted Status = "completed"
	StatusNA        Status = "na"
)

// IsValid checks if the status value is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusNone, StatusCompleted, StatusNA:
		return true
	}
	return false
}

// PeriodStatus is the state of one item in one window of one period kind.
type PeriodStatus struct {
	ItemID      string     `json:"item_id"`
	PeriodKind  PeriodKind `json:"period_kind"`
	WindowStart time.Time  `json:"window_start"`
	Status      Status     `json:"status"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MonitoringAssociation opts an item into a non-home period kind.
type MonitoringAssociation struct {
	ItemID     string     `json:"item_id"`
	PeriodKind PeriodKind `json:"period_kind"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ViewStatus is how an item is rendered inside one period view.
type ViewStatus string

const (
	ViewActive ViewStatus = "active"
	ViewDone   ViewStatus = "done"
	ViewNA     ViewStatus = "na"
)

// ItemView is an item as seen from one period view or the focus queue.
type ItemView struct {
	Item      *WorkItem  `json:"item"`
	Status    ViewStatus `json:"status"`
	Monitored bool       `json:"monitored,omitempty"` // shown through a monitoring association
}

// FocusQueue is the bounded working set.
type FocusQueue struct {
	Items []*ItemView `json:"items"`
	// BacklogCount is the number of eligible items that did not fit.
	BacklogCount int `json:"backlog_count"`
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	HomePeriod  *PeriodKind
	MonitoredIn *PeriodKind // items with a monitoring association for this kind
	IDs         []string
	Limit       int
}

// EligibilityFilter describes a priority band of due, open, active items.
// Results are ordered by (priority, due_date, created_at, id).
type EligibilityFilter struct {
	MinPriority   int
	MaxPriority   int
	DueOnOrBefore time.Time // calendar date, inclusive
	ExcludeID     string
	Limit         int
}
