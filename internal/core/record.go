package core

import (
	"sort"
	"time"
)

// ArrivalTimeFormat renders arrival timestamps with fixed-width microsecond
// precision so that lexicographic order equals chronological order.
const ArrivalTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// FormatArrival renders an arrival timestamp in UTC.
func FormatArrival(t time.Time) string {
	return t.UTC().Format(ArrivalTimeFormat)
}

// QueueRecord is one row in the queue table: a single entrant's claim to a
// position in line for the exclusive resource.
type QueueRecord struct {
	// EntrantID uniquely identifies the workflow instance. Primary key.
	EntrantID string

	// EnqueuedAt is the arrival timestamp string, immutable after
	// registration. It is the sort key for service order.
	EnqueuedAt string

	// ExpiresAt is the lease expiry in epoch seconds. Short horizon while
	// waiting, long horizon while holding the resource.
	ExpiresAt int64
}

// IsLive reports whether the record's lease has not yet expired.
// Records past expiry are logically absent even when a scan still
// returns them; they must never count toward ranking.
func (r QueueRecord) IsLive(now time.Time) bool {
	return r.ExpiresAt > now.Unix()
}

// FilterLive returns the records whose leases are still in the future.
func FilterLive(records []QueueRecord, now time.Time) []QueueRecord {
	live := make([]QueueRecord, 0, len(records))
	for _, r := range records {
		if r.IsLive(now) {
			live = append(live, r)
		}
	}
	return live
}

// SortByArrival orders records by arrival timestamp ascending. String
// comparison is the deterministic tie-break if two timestamps collide.
func SortByArrival(records []QueueRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EnqueuedAt != records[j].EnqueuedAt {
			return records[i].EnqueuedAt < records[j].EnqueuedAt
		}
		return records[i].EntrantID < records[j].EntrantID
	})
}

// Rank returns the 1-based position of entrantID in the sorted records,
// or 0 if the entrant is not present.
func Rank(sorted []QueueRecord, entrantID string) int {
	for i, r := range sorted {
		if r.EntrantID == entrantID {
			return i + 1
		}
	}
	return 0
}

// EntrantIDs extracts the ids from records, preserving order.
func EntrantIDs(records []QueueRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.EntrantID
	}
	return ids
}
