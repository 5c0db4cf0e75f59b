package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// Verify sqlTransaction implements storage.Transaction at compile time
var _ storage.Transaction = (*sqlTransaction)(nil)

// sqlTransaction implements storage.Transaction on an open *sql.Tx.
type sqlTransaction struct {
	tx    *sql.Tx
	store *Store
}

func (t *sqlTransaction) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	return getItem(ctx, t.tx, id)
}

func (t *sqlTransaction) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	return listItems(ctx, t.tx, filter)
}

func (t *sqlTransaction) EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	return eligibleItems(ctx, t.tx, filter)
}

func (t *sqlTransaction) GetPeriodStatus(ctx context.Context, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	return getPeriodStatus(ctx, t.tx, itemID, kind, windowStart)
}

func (t *sqlTransaction) ListPeriodStatuses(ctx context.Context, itemID string) ([]*types.PeriodStatus, error) {
	return listPeriodStatuses(ctx, t.tx, itemID)
}

func (t *sqlTransaction) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	return listWindowStatuses(ctx, t.tx, kind, windowStart)
}

func (t *sqlTransaction) ListMonitors(ctx context.Context, itemID string) ([]*types.MonitoringAssociation, error) {
	return listMonitors(ctx, t.tx, itemID)
}

func (t *sqlTransaction) FocusGeneration(ctx context.Context) (int64, error) {
	return focusGeneration(ctx, t.tx)
}

// CreateItem inserts a new item. The caller sets defaults and validates.
func (t *sqlTransaction) CreateItem(ctx context.Context, item *types.WorkItem) error {
	err := itemExists(ctx, t.tx, item.ID)
	switch {
	case err == nil:
		return fmt.Errorf("item %s: %w", item.ID, storage.ErrAlreadyExists)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	_, err = t.tx.ExecContext(ctx, `INSERT INTO work_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Priority, nullDate(item.DueDate), string(item.HomePeriod),
		item.IsActive, item.GlobalCompleted, nullTime(item.CompletedAt), nullTime(item.NAMarkedAt),
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	return wrapDBErrorf(err, "insert item %s", item.ID)
}

func (t *sqlTransaction) UpdateItem(ctx context.Context, item *types.WorkItem) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE work_items SET
			name = ?, priority = ?, due_date = ?, home_period = ?, is_active = ?,
			global_completed = ?, completed_at = ?, na_marked_at = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Priority, nullDate(item.DueDate), string(item.HomePeriod), item.IsActive,
		item.GlobalCompleted, nullTime(item.CompletedAt), nullTime(item.NAMarkedAt), formatTime(item.UpdatedAt),
		item.ID)
	if err != nil {
		return wrapDBErrorf(err, "update item %s", item.ID)
	}
	// MySQL reports zero affected rows for a no-op update, so confirm
	// existence separately instead of trusting RowsAffected.
	if n, _ := res.RowsAffected(); n == 0 {
		return itemExists(ctx, t.tx, item.ID)
	}
	return nil
}

func (t *sqlTransaction) DeleteItem(ctx context.Context, id string) error {
	if err := itemExists(ctx, t.tx, id); err != nil {
		return err
	}
	for _, stmt := range []string{
		`DELETE FROM period_statuses WHERE item_id = ?`,
		`DELETE FROM monitoring_associations WHERE item_id = ?`,
		`DELETE FROM work_items WHERE id = ?`,
	} {
		if _, err := t.tx.ExecContext(ctx, stmt, id); err != nil {
			return wrapDBErrorf(err, "delete item %s", id)
		}
	}
	return nil
}

func (t *sqlTransaction) UpsertPeriodStatus(ctx context.Context, st *types.PeriodStatus) error {
	if err := itemExists(ctx, t.tx, st.ItemID); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, t.store.dialect.UpsertStatus,
		st.ItemID, string(st.PeriodKind), formatTime(st.WindowStart), string(st.Status), formatTime(st.UpdatedAt))
	return wrapDBErrorf(err, "upsert status %s/%s", st.ItemID, st.PeriodKind)
}

func (t *sqlTransaction) InsertPeriodStatusIfAbsent(ctx context.Context, st *types.PeriodStatus) (bool, error) {
	if err := itemExists(ctx, t.tx, st.ItemID); err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(ctx, t.store.dialect.InsertStatusIgnore,
		st.ItemID, string(st.PeriodKind), formatTime(st.WindowStart), string(st.Status), formatTime(st.UpdatedAt))
	if err != nil {
		return false, wrapDBErrorf(err, "insert status %s/%s", st.ItemID, st.PeriodKind)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapDBError("rows affected", err)
	}
	return n > 0, nil
}

func (t *sqlTransaction) AddMonitor(ctx context.Context, assoc *types.MonitoringAssociation) error {
	if err := itemExists(ctx, t.tx, assoc.ItemID); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, t.store.dialect.InsertMonitorIgnore,
		assoc.ItemID, string(assoc.PeriodKind), formatTime(assoc.CreatedAt))
	return wrapDBErrorf(err, "add monitor %s/%s", assoc.ItemID, assoc.PeriodKind)
}

func (t *sqlTransaction) RemoveMonitor(ctx context.Context, itemID string, kind types.PeriodKind) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM monitoring_associations WHERE item_id = ? AND period_kind = ?`,
		itemID, string(kind))
	return wrapDBErrorf(err, "remove monitor %s/%s", itemID, kind)
}

func (t *sqlTransaction) CompareAndBumpFocusGeneration(ctx context.Context, expected int64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE focus_state SET generation = generation + 1 WHERE id = 1 AND generation = ?`, expected)
	if err != nil {
		return wrapDBError("bump focus generation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("focus generation moved past %d: %w", expected, storage.ErrConflict)
	}
	return nil
}

func (t *sqlTransaction) TouchFocusGeneration(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE focus_state SET generation = generation + 1 WHERE id = 1`)
	return wrapDBError("touch focus generation", err)
}
