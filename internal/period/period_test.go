package period

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/steveyegge/tempo/internal/types"
)

var utc = Calendar{Location: time.UTC, WeekStart: time.Monday}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowFor(t *testing.T) {
	at := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC) // Tuesday

	tests := []struct {
		name string
		cal  Calendar
		kind types.PeriodKind
		t    time.Time
		want Window
	}{
		{"daily", utc, types.PeriodDaily, at, Window{types.PeriodDaily, day(2025, 6, 10), day(2025, 6, 11)}},
		{"weekly monday start", utc, types.PeriodWeekly, at, Window{types.PeriodWeekly, day(2025, 6, 9), day(2025, 6, 16)}},
		{"weekly on week start", utc, types.PeriodWeekly, day(2025, 6, 9), Window{types.PeriodWeekly, day(2025, 6, 9), day(2025, 6, 16)}},
		{"weekly sunday before monday start", utc, types.PeriodWeekly, day(2025, 6, 15), Window{types.PeriodWeekly, day(2025, 6, 9), day(2025, 6, 16)}},
		{"weekly sunday start", Calendar{Location: time.UTC, WeekStart: time.Sunday}, types.PeriodWeekly, at, Window{types.PeriodWeekly, day(2025, 6, 8), day(2025, 6, 15)}},
		{"weekly across month", utc, types.PeriodWeekly, day(2025, 7, 1), Window{types.PeriodWeekly, day(2025, 6, 30), day(2025, 7, 7)}},
		{"monthly", utc, types.PeriodMonthly, at, Window{types.PeriodMonthly, day(2025, 6, 1), day(2025, 7, 1)}},
		{"monthly december", utc, types.PeriodMonthly, day(2025, 12, 31), Window{types.PeriodMonthly, day(2025, 12, 1), day(2026, 1, 1)}},
		{"yearly", utc, types.PeriodYearly, at, Window{types.PeriodYearly, day(2025, 1, 1), day(2026, 1, 1)}},
		{"one-time lifetime", utc, types.PeriodOneTime, at, Window{types.PeriodOneTime, LifetimeStart, time.Time{}}},
		{"habit lifetime", utc, types.PeriodHabit, at, Window{types.PeriodHabit, LifetimeStart, time.Time{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cal.WindowFor(tt.kind, tt.t)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("WindowFor() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWindowBoundaryBelongsToOneWindow(t *testing.T) {
	boundary := day(2025, 6, 16)
	thisWeek := utc.WindowFor(types.PeriodWeekly, day(2025, 6, 10))
	nextWeek := utc.WindowFor(types.PeriodWeekly, day(2025, 6, 17))

	if thisWeek.Contains(boundary) {
		t.Errorf("%s must not contain its own end %s", thisWeek, boundary)
	}
	if !nextWeek.Contains(boundary) {
		t.Errorf("%s must contain its start %s", nextWeek, boundary)
	}
}

func TestWindowInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cal := Calendar{Location: ny, WeekStart: time.Monday}
	// 02:00 UTC on June 10 is still June 9 in New York.
	w := cal.WindowFor(types.PeriodDaily, time.Date(2025, 6, 10, 2, 0, 0, 0, time.UTC))
	if got := w.Start.Format(types.DateLayout); got != "2025-06-09" {
		t.Errorf("daily window start = %s, want 2025-06-09", got)
	}
	if got := cal.Today(time.Date(2025, 6, 10, 2, 0, 0, 0, time.UTC)); !got.Equal(day(2025, 6, 9)) {
		t.Errorf("Today() = %s, want 2025-06-09", got)
	}
}

func TestRankAndCoarser(t *testing.T) {
	order := []types.PeriodKind{types.PeriodOneTime, types.PeriodDaily, types.PeriodWeekly, types.PeriodMonthly, types.PeriodYearly}
	for i := 0; i < len(order); i++ {
		for j := 0; j < len(order); j++ {
			if got, want := Coarser(order[i], order[j]), j > i; got != want {
				t.Errorf("Coarser(%s, %s) = %v, want %v", order[i], order[j], got, want)
			}
		}
	}
	if Rank(types.PeriodGoalTask) != Rank(types.PeriodOneTime) {
		t.Error("entity kinds rank with point kinds")
	}
}

func TestNormalize(t *testing.T) {
	got := utc.Normalize(types.PeriodWeekly, time.Date(2025, 6, 12, 23, 0, 0, 0, time.UTC))
	if !got.Equal(day(2025, 6, 9)) {
		t.Errorf("Normalize(weekly) = %s, want 2025-06-09", got)
	}
	if got := utc.Normalize(types.PeriodProjectTask, time.Now()); !got.Equal(LifetimeStart) {
		t.Errorf("Normalize(point kind) = %s, want lifetime start", got)
	}
}

func TestBetween(t *testing.T) {
	if _, err := Between(types.PeriodWeekly, day(2025, 6, 16), day(2025, 6, 9)); err == nil {
		t.Error("expected error for reversed window")
	}
	w, err := Between(types.PeriodWeekly, day(2025, 6, 9), day(2025, 6, 16))
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	if !w.Contains(time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)) {
		t.Error("window should contain the last minute before its end")
	}
}

func TestThrough(t *testing.T) {
	cal := Calendar{Location: time.UTC, WeekStart: time.Monday}
	w, err := cal.Through(types.PeriodWeekly, day(2025, 6, 9), day(2025, 6, 15))
	if err != nil {
		t.Fatalf("Through: %v", err)
	}
	if want := day(2025, 6, 16); !w.End.Equal(want) {
		t.Errorf("End = %v, want %v", w.End, want)
	}
	if !w.Contains(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)) {
		t.Error("last day should be inside the window")
	}
	if !w.LastDay().Equal(day(2025, 6, 15)) {
		t.Errorf("LastDay = %v", w.LastDay())
	}
	if _, err := cal.Through(types.PeriodDaily, day(2025, 6, 10), day(2025, 6, 10)); err != nil {
		t.Errorf("single-day window: %v", err)
	}
	if _, err := cal.Through(types.PeriodDaily, day(2025, 6, 10), day(2025, 6, 9)); err == nil {
		t.Error("expected error for last day before start")
	}

	if lw := (Window{Kind: types.PeriodOneTime, Start: LifetimeStart}); !lw.LastDay().IsZero() {
		t.Error("lifetime window has no last day")
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	local := Calendar{Location: ny, WeekStart: time.Monday}
	w = local.WindowFor(types.PeriodWeekly, time.Date(2025, 6, 12, 12, 0, 0, 0, ny))
	back, err := local.Through(types.PeriodWeekly, w.Start, w.LastDay())
	if err != nil || !back.End.Equal(w.End) {
		t.Errorf("Through(LastDay) = %v, %v; want end %v", back.End, err, w.End)
	}
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{"sun": time.Sunday, "monday": time.Monday, "": time.Monday, "sat": time.Saturday} {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestClamp(t *testing.T) {
	w := utc.WindowFor(types.PeriodDaily, day(2025, 6, 10))
	inside := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want time.Time
	}{
		{"inside", inside, inside},
		{"before", day(2025, 6, 9), day(2025, 6, 10)},
		{"on end", day(2025, 6, 11), day(2025, 6, 11).Add(-time.Nanosecond)},
		{"after", day(2025, 7, 1), day(2025, 6, 11).Add(-time.Nanosecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Clamp(tt.t); !got.Equal(tt.want) {
				t.Errorf("Clamp(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}

	life := utc.WindowFor(types.PeriodOneTime, inside)
	if got := life.Clamp(inside); !got.Equal(inside) {
		t.Errorf("lifetime Clamp = %v, want %v", got, inside)
	}
}
