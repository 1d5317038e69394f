package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/tulul/tululbot/internal/errors"
)

// QuoteSnapshotName is the row the quote document is stored under.
const QuoteSnapshotName = "quote"

// SnapshotStore stores one named document in the snapshots table.
type SnapshotStore struct {
	db   *DB
	name string
	now  func() time.Time
}

// Snapshots returns a store for the named document.
func (db *DB) Snapshots(name string) *SnapshotStore {
	return &SnapshotStore{db: db, name: name, now: time.Now}
}

// SaveSnapshot replaces the stored document.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, fingerprint string, document []byte) error {
	const q = `
INSERT INTO snapshots (name, fingerprint, document, saved_at) VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	fingerprint = excluded.fingerprint,
	document    = excluded.document,
	saved_at    = excluded.saved_at`
	if _, err := s.db.conn.ExecContext(ctx, q, s.name, fingerprint, document, s.now().Unix()); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.name, err)
	}
	return nil
}

// LoadSnapshot returns the stored document, or errors.ErrNotFound.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (string, []byte, error) {
	var (
		fingerprint string
		document    []byte
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT fingerprint, document FROM snapshots WHERE name = ?`, s.name,
	).Scan(&fingerprint, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("snapshot %s: %w", s.name, domerrors.ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("load snapshot %s: %w", s.name, err)
	}
	return fingerprint, document, nil
}

// SavedAt returns when the document was last stored.
func (s *SnapshotStore) SavedAt(ctx context.Context) (time.Time, error) {
	var ts int64
	err := s.db.conn.QueryRowContext(ctx, `SELECT saved_at FROM snapshots WHERE name = ?`, s.name).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, domerrors.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}
