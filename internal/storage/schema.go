package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables. It is idempotent.
func InitSchema(ctx context.Context, db *sql.DB) error {
	const snapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
	name        TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL DEFAULT '',
	document    BLOB NOT NULL,
	saved_at    INTEGER NOT NULL
)`
	if _, err := db.ExecContext(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}
