package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/tempo/internal/types"
)

// nameWidth is the column reserved for item names in list output.
const nameWidth = 40

// FormatDue renders a due date relative to today: overdue dates in red, today
// in yellow. Returns "" for undated items.
func FormatDue(due *time.Time, today time.Time) string {
	if due == nil {
		return ""
	}
	d := types.TruncateDate(*due)
	t := types.TruncateDate(today)
	label := "due " + d.Format("2006-01-02")
	switch {
	case d.Before(t):
		return FailStyle.Render(label)
	case d.Equal(t):
		return WarnStyle.Render(label)
	}
	return MutedStyle.Render(label)
}

// FormatItemLine renders one item view as a single list line:
// status icon, priority, name, and due date.
func FormatItemLine(v *types.ItemView, today time.Time) string {
	name := TruncateSimple(v.Item.Name, nameWidth)
	if v.Status != types.ViewActive {
		name = MutedStyle.Render(name)
	}
	parts := []string{
		RenderStatusIcon(v.Status),
		PadRight(RenderPriority(v.Item.Priority), 3),
		PadRight(name, nameWidth),
	}
	if due := FormatDue(v.Item.DueDate, today); due != "" {
		parts = append(parts, due)
	}
	if v.Monitored {
		parts = append(parts, MutedStyle.Render("("+string(v.Item.HomePeriod)+")"))
	}
	parts = append(parts, MutedStyle.Render(shortID(v.Item.ID)))
	return strings.TrimRight(strings.Join(parts, " "), " ")
}

// FormatSection renders a titled block of item lines.
func FormatSection(title string, views []*types.ItemView, today time.Time) string {
	var b strings.Builder
	b.WriteString(RenderCategory(title))
	b.WriteString("\n")
	if len(views) == 0 {
		b.WriteString(RenderMuted("  (nothing here)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, v := range views {
		b.WriteString("  ")
		b.WriteString(FormatItemLine(v, today))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatQueue renders the focus queue with its numbered slots.
func FormatQueue(q *types.FocusQueue, today time.Time) string {
	var b strings.Builder
	b.WriteString(RenderCategory("focus"))
	b.WriteString("\n")
	for i := range types.FocusQueueSize {
		if i < len(q.Items) {
			fmt.Fprintf(&b, "  %s %d. %s\n", FocusStyle.Render(IconFocus), i+1, FormatItemLine(q.Items[i], today))
			continue
		}
		fmt.Fprintf(&b, "  %s %d. %s\n", RenderMuted(IconFocus), i+1, RenderMuted("(empty)"))
	}
	if q.BacklogCount > 0 {
		b.WriteString(RenderMuted(fmt.Sprintf("  +%d more due in the focus band", q.BacklogCount)))
		b.WriteString("\n")
	}
	return b.String()
}

// shortID trims generated IDs to something readable in a list.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
