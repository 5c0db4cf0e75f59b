package sqlstore

// Dialect captures the statements that differ between SQL engines.
// Everything else is portable SQL shared by every backend.
type Dialect struct {
	// Name identifies the backend in errors and telemetry ("sqlite", "dolt").
	Name string

	// Schema is executed statement by statement on open. Statements must be
	// idempotent (IF NOT EXISTS / INSERT IGNORE).
	Schema []string

	// UpsertStatus inserts (item_id, period_kind, window_start, status,
	// updated_at), replacing status and updated_at when the row exists.
	UpsertStatus string

	// InsertStatusIgnore inserts the same columns but leaves an existing
	// row untouched.
	InsertStatusIgnore string

	// InsertMonitorIgnore inserts (item_id, period_kind, created_at) unless
	// the association already exists.
	InsertMonitorIgnore string

	// ServerMode enables retry of transient connection errors. Embedded
	// engines don't drop connections.
	ServerMode bool
}
