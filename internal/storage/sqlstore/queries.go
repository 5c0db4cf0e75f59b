package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/tempo/internal/types"
)

const itemColumns = `id, name, priority, due_date, home_period, is_active, global_completed,
	completed_at, na_marked_at, created_at, updated_at`

const statusColumns = `item_id, period_kind, window_start, status, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(types.DateLayout), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanItem(row scanner) (*types.WorkItem, error) {
	var (
		item                 types.WorkItem
		home                 string
		due, completed, naAt sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Priority, &due, &home, &item.IsActive,
		&item.GlobalCompleted, &completed, &naAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item.HomePeriod = types.PeriodKind(home)

	if due.Valid && due.String != "" {
		d, err := types.ParseDate(due.String)
		if err != nil {
			return nil, fmt.Errorf("item %s: bad due_date %q: %w", item.ID, due.String, err)
		}
		item.DueDate = &d
	}
	var err error
	if item.CompletedAt, err = parseNullTime(completed); err != nil {
		return nil, fmt.Errorf("item %s: bad completed_at: %w", item.ID, err)
	}
	if item.NAMarkedAt, err = parseNullTime(naAt); err != nil {
		return nil, fmt.Errorf("item %s: bad na_marked_at: %w", item.ID, err)
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("item %s: bad created_at: %w", item.ID, err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("item %s: bad updated_at: %w", item.ID, err)
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*types.WorkItem, error) {
	defer rows.Close()
	var out []*types.WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanStatus(row scanner) (*types.PeriodStatus, error) {
	var (
		st                   types.PeriodStatus
		kind, status         string
		windowStart, updated string
	)
	if err := row.Scan(&st.ItemID, &kind, &windowStart, &status, &updated); err != nil {
		return nil, err
	}
	st.PeriodKind = types.PeriodKind(kind)
	st.Status = types.Status(status)
	var err error
	if st.WindowStart, err = parseTime(windowStart); err != nil {
		return nil, fmt.Errorf("status %s/%s: bad window_start: %w", st.ItemID, kind, err)
	}
	if st.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("status %s/%s: bad updated_at: %w", st.ItemID, kind, err)
	}
	return &st, nil
}

func scanStatuses(rows *sql.Rows) ([]*types.PeriodStatus, error) {
	defer rows.Close()
	var out []*types.PeriodStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func getItem(ctx context.Context, q queryer, id string) (*types.WorkItem, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, wrapDBErrorf(err, "get item %s", id)
	}
	return item, nil
}

func itemExists(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM work_items WHERE id = ?`, id).Scan(&one)
	return wrapDBErrorf(err, "item %s", id)
}

func listItems(ctx context.Context, q queryer, filter types.ItemFilter) ([]*types.WorkItem, error) {
	var (
		where []string
		args  []any
	)
	if filter.HomePeriod != nil {
		where = append(where, "home_period = ?")
		args = append(args, string(*filter.HomePeriod))
	}
	if filter.MonitoredIn != nil {
		where = append(where, "id IN (SELECT item_id FROM monitoring_associations WHERE period_kind = ?)")
		args = append(args, string(*filter.MonitoredIn))
	}
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + itemColumns + ` FROM work_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list items", err)
	}
	items, err := scanItems(rows)
	return items, wrapDBError("scan items", err)
}

func eligibleItems(ctx context.Context, q queryer, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	query := `SELECT ` + itemColumns + ` FROM work_items
		WHERE is_active = 1 AND global_completed = 0
		  AND priority >= ? AND priority <= ?
		  AND due_date IS NOT NULL AND due_date <= ?
		  AND id <> ?
		ORDER BY priority, due_date, created_at, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	today := types.TruncateDate(filter.DueOnOrBefore).Format(types.DateLayout)

	rows, err := q.QueryContext(ctx, query, filter.MinPriority, filter.MaxPriority, today, filter.ExcludeID)
	if err != nil {
		return nil, wrapDBError("query eligible items", err)
	}
	items, err := scanItems(rows)
	return items, wrapDBError("scan eligible items", err)
}

func getPeriodStatus(ctx context.Context, q queryer, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	row := q.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM period_statuses
		WHERE item_id = ? AND period_kind = ? AND window_start = ?`,
		itemID, string(kind), formatTime(windowStart))
	st, err := scanStatus(row)
	if err != nil {
		return nil, wrapDBErrorf(err, "get status %s/%s/%s", itemID, kind, formatTime(windowStart))
	}
	return st, nil
}

func listPeriodStatuses(ctx context.Context, q queryer, itemID string) ([]*types.PeriodStatus, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+statusColumns+` FROM period_statuses
		WHERE item_id = ? ORDER BY period_kind, window_start`, itemID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list statuses of %s", itemID)
	}
	out, err := scanStatuses(rows)
	return out, wrapDBError("scan statuses", err)
}

func listWindowStatuses(ctx context.Context, q queryer, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+statusColumns+` FROM period_statuses
		WHERE period_kind = ? AND window_start = ? ORDER BY item_id`,
		string(kind), formatTime(windowStart))
	if err != nil {
		return nil, wrapDBErrorf(err, "list %s statuses", kind)
	}
	out, err := scanStatuses(rows)
	return out, wrapDBError("scan statuses", err)
}

func listMonitors(ctx context.Context, q queryer, itemID string) ([]*types.MonitoringAssociation, error) {
	rows, err := q.QueryContext(ctx, `SELECT item_id, period_kind, created_at FROM monitoring_associations
		WHERE item_id = ? ORDER BY period_kind`, itemID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list monitors of %s", itemID)
	}
	defer rows.Close()

	var out []*types.MonitoringAssociation
	for rows.Next() {
		var (
			a             types.MonitoringAssociation
			kind, created string
		)
		if err := rows.Scan(&a.ItemID, &kind, &created); err != nil {
			return nil, wrapDBError("scan monitor", err)
		}
		a.PeriodKind = types.PeriodKind(kind)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("monitor %s/%s: bad created_at: %w", a.ItemID, kind, err)
		}
		out = append(out, &a)
	}
	return out, wrapDBError("iterate monitors", rows.Err())
}

func focusGeneration(ctx context.Context, q queryer) (int64, error) {
	var gen int64
	err := q.QueryRowContext(ctx, `SELECT generation FROM focus_state WHERE id = 1`).Scan(&gen)
	if err != nil {
		return 0, wrapDBError("read focus generation", err)
	}
	return gen, nil
}
