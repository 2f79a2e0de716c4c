package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied on every open; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		script_path TEXT NOT NULL DEFAULT '',
		handle_kind TEXT NOT NULL,
		handle_id   INTEGER NOT NULL,
		job_ids     TEXT NOT NULL DEFAULT '[]',
		dependency  TEXT NOT NULL DEFAULT '',
		tries       INTEGER NOT NULL DEFAULT 1,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_handle ON submissions(handle_kind, handle_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at)`,
}

// addedColumn is a column introduced after the first release of a table.
// SQLite has no ADD COLUMN IF NOT EXISTS, so presence is checked first.
type addedColumn struct {
	table      string
	column     string
	definition string
}

var addedColumns = []addedColumn{
	{table: "submissions", column: "host", definition: "TEXT NOT NULL DEFAULT ''"},
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	for _, c := range addedColumns {
		if err := addColumnIfNotExists(ctx, db, c); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func addColumnIfNotExists(ctx context.Context, db *sql.DB, c addedColumn) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ? COLLATE NOCASE`,
		c.table, c.column).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.definition))
	return err
}
