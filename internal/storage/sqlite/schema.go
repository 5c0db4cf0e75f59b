package sqlite

import "github.com/steveyegge/tempo/internal/storage/sqlstore"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS work_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		priority INTEGER NOT NULL CHECK (priority BETWEEN 1 AND 10),
		due_date TEXT,
		home_period TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		global_completed INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT,
		na_marked_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_focus ON work_items(priority, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_home ON work_items(home_period)`,

	`CREATE TABLE IF NOT EXISTS period_statuses (
		item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
		period_kind TEXT NOT NULL,
		window_start TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('none', 'completed', 'na')),
		updated_at TEXT NOT NULL,
		PRIMARY KEY (item_id, period_kind, window_start)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_period_statuses_window ON period_statuses(period_kind, window_start)`,

	`CREATE TABLE IF NOT EXISTS monitoring_associations (
		item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
		period_kind TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (item_id, period_kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_monitoring_kind ON monitoring_associations(period_kind)`,

	`CREATE TABLE IF NOT EXISTS focus_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		generation INTEGER NOT NULL
	)`,
	`INSERT OR IGNORE INTO focus_state (id, generation) VALUES (1, 0)`,
}

// Dialect is the SQLite flavor of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:   "sqlite",
	Schema: schema,
	UpsertStatus: `INSERT INTO period_statuses (item_id, period_kind, window_start, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (item_id, period_kind, window_start)
		DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
	InsertStatusIgnore: `INSERT OR IGNORE INTO period_statuses (item_id, period_kind, window_start, status, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
	InsertMonitorIgnore: `INSERT OR IGNORE INTO monitoring_associations (item_id, period_kind, created_at)
		VALUES (?, ?, ?)`,
}
