// Package memory provides an in-process queue store for tests and dry
// runs. It cannot coordinate separate processes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

// Store is a mutex-guarded map implementing core.Store.
type Store struct {
	mu      sync.Mutex
	records map[string]core.QueueRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]core.QueueRecord)}
}

var _ core.Store = (*Store)(nil)

// InsertIfAbsent implements core.Store.
func (s *Store) InsertIfAbsent(_ context.Context, record core.QueueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.EntrantID]; exists {
		return core.ErrAlreadyQueued(record.EntrantID)
	}
	s.records[record.EntrantID] = record
	return nil
}

// UpdateExpiry implements core.Store. Updating a missing record is a
// no-op: the record was reaped and the caller's next scan will notice.
func (s *Store) UpdateExpiry(_ context.Context, entrantID string, expiresAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[entrantID]
	if !exists {
		return nil
	}
	record.ExpiresAt = expiresAt
	s.records[entrantID] = record
	return nil
}

// ScanLive implements core.Store. Expired records are reaped on the way.
func (s *Store) ScanLive(_ context.Context, now time.Time) ([]core.QueueRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make([]core.QueueRecord, 0, len(s.records))
	for id, record := range s.records {
		if !record.IsLive(now) {
			delete(s.records, id)
			continue
		}
		live = append(live, record)
	}
	return live, nil
}

// Delete implements core.Store.
func (s *Store) Delete(_ context.Context, entrantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, entrantID)
	return nil
}

// Get returns the stored record for an entrant, for test assertions.
func (s *Store) Get(entrantID string) (core.QueueRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[entrantID]
	return record, ok
}

// Len returns the number of stored records, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}
