package dolt

import "github.com/steveyegge/tempo/internal/storage/sqlstore"

// MySQL-compatible schema. Keys are VARCHAR because TEXT columns can't be
// indexed without a prefix length.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS work_items (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(500) NOT NULL,
		priority INT NOT NULL,
		due_date VARCHAR(10),
		home_period VARCHAR(32) NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		global_completed TINYINT(1) NOT NULL DEFAULT 0,
		completed_at VARCHAR(40),
		na_marked_at VARCHAR(40),
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL,
		INDEX idx_work_items_focus (priority, due_date),
		INDEX idx_work_items_home (home_period)
	)`,

	`CREATE TABLE IF NOT EXISTS period_statuses (
		item_id VARCHAR(64) NOT NULL,
		period_kind VARCHAR(32) NOT NULL,
		window_start VARCHAR(40) NOT NULL,
		status VARCHAR(16) NOT NULL,
		updated_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (item_id, period_kind, window_start),
		INDEX idx_period_statuses_window (period_kind, window_start)
	)`,

	`CREATE TABLE IF NOT EXISTS monitoring_associations (
		item_id VARCHAR(64) NOT NULL,
		period_kind VARCHAR(32) NOT NULL,
		created_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (item_id, period_kind),
		INDEX idx_monitoring_kind (period_kind)
	)`,

	`CREATE TABLE IF NOT EXISTS focus_state (
		id INT NOT NULL PRIMARY KEY,
		generation BIGINT NOT NULL
	)`,
	`INSERT IGNORE INTO focus_state (id, generation) VALUES (1, 0)`,
}

// Dialect is the Dolt/MySQL flavor of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:   "dolt",
	Schema: schema,
	UpsertStatus: `INSERT INTO period_statuses (item_id, period_kind, window_start, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = VALUES(updated_at)`,
	InsertStatusIgnore: `INSERT IGNORE INTO period_statuses (item_id, period_kind, window_start, status, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
	InsertMonitorIgnore: `INSERT IGNORE INTO monitoring_associations (item_id, period_kind, created_at)
		VALUES (?, ?, ?)`,
	ServerMode: true,
}
