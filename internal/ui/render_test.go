package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/tempo/internal/types"
)

var today = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func date(s string) *time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestFormatDue(t *testing.T) {
	assert.Equal(t, "", FormatDue(nil, today))
	assert.Equal(t, "due 2025-06-09", FormatDue(date("2025-06-09"), today))
	assert.Equal(t, "due 2025-06-10", FormatDue(date("2025-06-10"), today.Add(15*time.Hour)))
}

func TestFormatItemLine(t *testing.T) {
	v := &types.ItemView{
		Item: &types.WorkItem{
			ID:         "0a1b2c3d-4e5f",
			Name:       "Write report",
			Priority:   2,
			DueDate:    date("2025-06-12"),
			HomePeriod: types.PeriodDaily,
		},
		Status: types.ViewDone,
	}
	line := FormatItemLine(v, today)
	assert.True(t, strings.HasPrefix(line, IconDone+" P2  Write report"), line)
	assert.Contains(t, line, "due 2025-06-12")
	assert.True(t, strings.HasSuffix(line, "0a1b2c3d"), line)
	assert.NotContains(t, line, "(daily)")

	v.Monitored = true
	v.Status = types.ViewActive
	line = FormatItemLine(v, today)
	assert.True(t, strings.HasPrefix(line, IconActive+" "), line)
	assert.Contains(t, line, "(daily)")
}

func TestFormatSection(t *testing.T) {
	got := FormatSection("weekly", nil, today)
	assert.Equal(t, "WEEKLY\n  (nothing here)\n", got)

	views := []*types.ItemView{
		{Item: &types.WorkItem{ID: "a", Name: "one", Priority: 10}, Status: types.ViewActive},
		{Item: &types.WorkItem{ID: "b", Name: "two", Priority: 10}, Status: types.ViewNA},
	}
	got = FormatSection("daily", views, today)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if assert.Len(t, lines, 3) {
		assert.Equal(t, "DAILY", lines[0])
		assert.Contains(t, lines[1], "one")
		assert.True(t, strings.HasPrefix(lines[2], "  "+IconNA), lines[2])
	}
}

func TestFormatQueue(t *testing.T) {
	q := &types.FocusQueue{
		Items: []*types.ItemView{
			{Item: &types.WorkItem{ID: "a", Name: "first", Priority: 1}, Status: types.ViewActive},
		},
		BacklogCount: 2,
	}
	got := FormatQueue(q, today)
	assert.Contains(t, got, "1. "+IconActive+" P1  first")
	assert.Contains(t, got, "2. (empty)")
	assert.Contains(t, got, "3. (empty)")
	assert.Contains(t, got, "+2 more")
}

func TestRenderPriority(t *testing.T) {
	for p, want := range map[int]string{1: "P1", 3: "P3", 7: "P7", 10: "P10"} {
		assert.Equal(t, want, RenderPriority(p))
	}
}
