// Package sqlite implements the queue store on a shared SQLite database
// file. It serves self-hosted runners that share one machine, and local
// development; cross-host coordination needs the dynamodb backend.
//
// SQLite has no native record expiry, so expired rows are reaped
// opportunistically at scan time. The core.Store contract already requires
// callers to filter expired records themselves, so lazy reaping is enough.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

//go:embed migrations/001_queue_table.sql
var migrationV1 string

// Store implements core.Store on a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// New opens (and if needed creates) the queue database.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating queue directory: %w", err)
		}
	}

	// WAL mode plus a busy timeout: multiple runner processes hit this
	// file concurrently.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening queue database: %w", err)
	}

	if _, err := db.Exec(migrationV1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating queue schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertIfAbsent implements core.Store. The primary key enforces
// uniqueness; a conflicting insert affects zero rows.
func (s *Store) InsertIfAbsent(ctx context.Context, record core.QueueRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_entries (entrant_id, enqueued_at, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (entrant_id) DO NOTHING`,
		record.EntrantID, record.EnqueuedAt, record.ExpiresAt)
	if err != nil {
		return core.ErrStore("inserting queue record").WithCause(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.ErrStore("inserting queue record").WithCause(err)
	}
	if affected == 0 {
		return core.ErrAlreadyQueued(record.EntrantID)
	}
	return nil
}

// UpdateExpiry implements core.Store. Updating a reaped record affects
// zero rows and is not an error.
func (s *Store) UpdateExpiry(ctx context.Context, entrantID string, expiresAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_entries SET expires_at = ? WHERE entrant_id = ?`,
		expiresAt, entrantID)
	if err != nil {
		return core.ErrStore("updating lease expiry").WithCause(err)
	}
	return nil
}

// ScanLive implements core.Store, reaping expired rows first.
func (s *Store) ScanLive(ctx context.Context, now time.Time) ([]core.QueueRecord, error) {
	// Best-effort reap; a failure here only leaves rows the filter below
	// excludes anyway.
	_, _ = s.db.ExecContext(ctx,
		`DELETE FROM queue_entries WHERE expires_at <= ?`, now.Unix())

	rows, err := s.db.QueryContext(ctx,
		`SELECT entrant_id, enqueued_at, expires_at
		 FROM queue_entries
		 WHERE expires_at > ?
		 ORDER BY enqueued_at`, now.Unix())
	if err != nil {
		return nil, core.ErrStore("scanning queue table").WithCause(err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.QueueRecord
	for rows.Next() {
		var record core.QueueRecord
		if err := rows.Scan(&record.EntrantID, &record.EnqueuedAt, &record.ExpiresAt); err != nil {
			return nil, core.ErrStore("reading queue record").WithCause(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStore("scanning queue table").WithCause(err)
	}
	return records, nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, entrantID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_entries WHERE entrant_id = ?`, entrantID)
	if err != nil {
		return core.ErrStore("deleting queue record").WithCause(err)
	}
	return nil
}
