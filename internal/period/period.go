// Package period holds the window arithmetic shared by every period view.
//
// A window is a half-open interval [Start, End). Calendar kinds (daily,
// weekly, monthly, yearly) tile time into consecutive windows; point kinds
// (one-time and the entity kinds) have a single lifetime window that starts
// at the zero time and never ends.
package period

import (
	"fmt"
	"time"

	"github.com/steveyegge/tempo/internal/types"
)

// Calendar is the location and week convention window math runs in.
type Calendar struct {
	Location  *time.Location
	WeekStart time.Weekday
}

// DefaultCalendar uses the local time zone and Monday-start weeks.
func DefaultCalendar() Calendar {
	return Calendar{Location: time.Local, WeekStart: time.Monday}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Window is the half-open interval [Start, End) of one period kind.
// A zero End means the window never ends.
type Window struct {
	Kind  types.PeriodKind `json:"kind"`
	Start time.Time        `json:"start"`
	End   time.Time        `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.End.IsZero() || t.Before(w.End)
}

// Clamp returns t when the window contains it, otherwise the nearest
// instant inside the window.
func (w Window) Clamp(t time.Time) time.Time {
	switch {
	case t.Before(w.Start):
		return w.Start
	case !w.End.IsZero() && !t.Before(w.End):
		return w.End.Add(-time.Nanosecond)
	}
	return t
}

func (w Window) String() string {
	if w.End.IsZero() {
		return fmt.Sprintf("%s[%s, ∞)", w.Kind, w.Start.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s[%s, %s)", w.Kind, w.Start.Format(types.DateLayout), w.End.Format(types.DateLayout))
}

// Rank returns the granularity rank of kind: 0 for point kinds, then
// daily 1, weekly 2, monthly 3, yearly 4.
func Rank(kind types.PeriodKind) int {
	switch kind {
	case types.PeriodDaily:
		return 1
	case types.PeriodWeekly:
		return 2
	case types.PeriodMonthly:
		return 3
	case types.PeriodYearly:
		return 4
	}
	return 0
}

// Coarser reports whether b is strictly coarser than a.
func Coarser(a, b types.PeriodKind) bool {
	return Rank(b) > Rank(a)
}

// WindowFor returns the window of kind that contains t.
func (c Calendar) WindowFor(kind types.PeriodKind, t time.Time) Window {
	t = t.In(c.loc())
	y, m, d := t.Date()
	switch kind {
	case types.PeriodDaily:
		start := time.Date(y, m, d, 0, 0, 0, 0, c.loc())
		return Window{Kind: kind, Start: start, End: start.AddDate(0, 0, 1)}
	case types.PeriodWeekly:
		offset := (int(t.Weekday()) - int(c.WeekStart) + 7) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, c.loc())
		return Window{Kind: kind, Start: start, End: start.AddDate(0, 0, 7)}
	case types.PeriodMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, c.loc())
		return Window{Kind: kind, Start: start, End: start.AddDate(0, 1, 0)}
	case types.PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, c.loc())
		return Window{Kind: kind, Start: start, End: start.AddDate(1, 0, 0)}
	}
	return Window{Kind: kind, Start: LifetimeStart}
}

// LifetimeStart anchors the single window of point kinds.
var LifetimeStart = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Normalize returns the canonical window start for kind at t. It is the
// storage key of period statuses.
func (c Calendar) Normalize(kind types.PeriodKind, t time.Time) time.Time {
	return c.WindowFor(kind, t).Start.UTC()
}

// Between returns the window [start, end) for an explicit range.
func Between(kind types.PeriodKind, start, end time.Time) (Window, error) {
	if !end.IsZero() && !end.After(start) {
		return Window{}, fmt.Errorf("window end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Kind: kind, Start: start, End: end}, nil
}

// Through returns the window running from start through the whole calendar
// day of last, so [06-09, 06-15] ends at midnight on 06-16. A zero last
// means the window never ends.
func (c Calendar) Through(kind types.PeriodKind, start, last time.Time) (Window, error) {
	if last.IsZero() {
		return Between(kind, start, time.Time{})
	}
	y, m, d := last.In(c.loc()).Date()
	return Between(kind, start, time.Date(y, m, d+1, 0, 0, 0, 0, c.loc()))
}

// LastDay returns the final calendar day inside the window, or the zero
// time for a window that never ends.
func (w Window) LastDay() time.Time {
	if w.End.IsZero() {
		return time.Time{}
	}
	return w.End.AddDate(0, 0, -1)
}

// Today returns the calendar date of t in the calendar's location.
func (c Calendar) Today(t time.Time) time.Time {
	return types.TruncateDate(t.In(c.loc()))
}

// ParseWeekday maps names like "monday" or "sun" to a weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	switch s {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon", "":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	}
	return time.Monday, fmt.Errorf("unknown weekday %q", s)
}
