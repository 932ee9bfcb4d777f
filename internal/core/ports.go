package core

import (
	"context"
	"time"
)

// Store is the contract for the strongly-consistent queue table. One table
// models one exclusive resource. Implementations must provide conditional
// insert, atomic expiry update, consistent scans and delete-by-key.
//
// Stores may reap expired records on their own schedule; scans are allowed
// to return records that are already past expiry, and callers must filter
// them out before ranking.
type Store interface {
	// InsertIfAbsent creates the record unless one already exists for its
	// entrant id. Returns a conflict DomainError (CodeAlreadyQueued) when
	// the key is present, a store DomainError on transport failure.
	InsertIfAbsent(ctx context.Context, record QueueRecord) error

	// UpdateExpiry unconditionally sets the record's lease expiry.
	UpdateExpiry(ctx context.Context, entrantID string, expiresAt int64) error

	// ScanLive returns all records whose expiry is strictly after now.
	// The read must be consistent: no stale snapshots across entrants.
	ScanLive(ctx context.Context, now time.Time) ([]QueueRecord, error)

	// Delete removes the record by entrant id. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, entrantID string) error
}

// Rerunner requests a restart of a workflow run on the hosting platform.
// Used as a best-effort escape hatch when an entrant has waited past the
// ceiling: a fresh run re-enters the queue cleanly instead of burning the
// platform's own job timeout.
type Rerunner interface {
	// TriggerRerun issues one rerun request for the given run id. The
	// error reports whether the request was issued, not whether the rerun
	// itself will succeed.
	TriggerRerun(ctx context.Context, runID string) error
}
