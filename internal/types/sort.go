package types

import (
	"sort"
	"strings"
	"time"
)

// FocusLess orders two focusable items by (priority asc, due_date asc).
// Items without a due date sort after dated ones at the same priority.
// tie reports equal keys so callers can chain their own tie-breakers.
func FocusLess(a, b Focusable) (less bool, tie bool) {
	if a.GetPriority() != b.GetPriority() {
		return a.GetPriority() < b.GetPriority(), false
	}
	ad, bd := a.GetDueDate(), b.GetDueDate()
	switch {
	case ad == nil && bd == nil:
		return false, true
	case ad == nil:
		return false, false
	case bd == nil:
		return true, false
	case !ad.Equal(*bd):
		return ad.Before(*bd), false
	}
	return false, true
}

// SortForFocus sorts items into focus order: priority, due date, then
// creation time and ID so the result is deterministic.
func SortForFocus(items []*WorkItem) {
	sort.SliceStable(items, func(i, j int) bool {
		less, tie := FocusLess(items[i], items[j])
		if !tie {
			return less
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// SortViews sorts period views by priority, due date, then name.
func SortViews(views []*ItemView) {
	sort.SliceStable(views, func(i, j int) bool {
		less, tie := FocusLess(views[i].Item, views[j].Item)
		if !tie {
			return less
		}
		ni, nj := strings.ToLower(views[i].Item.Name), strings.ToLower(views[j].Item.Name)
		if ni != nj {
			return ni < nj
		}
		return views[i].Item.ID < views[j].Item.ID
	})
}

// IsEligible reports whether item is open, active, inside the priority band
// and due on or before today.
// An item without a due date is never due.
func IsEligible(item Focusable, minPriority, maxPriority int, today time.Time) bool {
	if !item.IsItemActive() || item.IsCompleted() {
		return false
	}
	p := item.GetPriority()
	if p < minPriority || p > maxPriority {
		return false
	}
	due := item.GetDueDate()
	if due == nil {
		return false
	}
	return !TruncateDate(*due).After(TruncateDate(today))
}
