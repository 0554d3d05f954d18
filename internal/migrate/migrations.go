package migrate

import (
	"database/sql"
	"fmt"
)

type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// The audit log is the only SQLite state; the timesheet collection itself
// lives in the JSON document and has no schema here.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_events",
		UpSQL: `CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	type TEXT NOT NULL,
	entry_id TEXT,
	payload_json TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_entry ON events(entry_id);`,
	},
}

// Migrate applies pending migrations in order, tracking them in
// schema_migrations.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		return err
	}
	for _, m := range migrations {
		var applied int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE version=?`, m.Version).Scan(&applied); err != nil {
			return err
		}
		if applied > 0 {
			continue
		}
		if _, err := tx.Exec(m.UpSQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version,name) VALUES (?,?)`, m.Version, m.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}
