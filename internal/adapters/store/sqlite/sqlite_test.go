package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id string, at time.Time, lease time.Duration) core.QueueRecord {
	return core.QueueRecord{
		EntrantID:  id,
		EnqueuedAt: core.FormatArrival(at),
		ExpiresAt:  at.Add(lease).Unix(),
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "queue.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestInsertIfAbsent_EnforcesUniqueness(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.InsertIfAbsent(context.Background(), record("run-1", now, time.Minute)))

	err := s.InsertIfAbsent(context.Background(), record("run-1", now.Add(time.Second), time.Minute))
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConflict))

	live, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, core.FormatArrival(now), live[0].EnqueuedAt,
		"conflicting insert must not touch the existing record")
}

func TestUpdateExpiry(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("run-1", now, time.Minute)))

	newExpiry := now.Add(8 * time.Hour).Unix()
	require.NoError(t, s.UpdateExpiry(context.Background(), "run-1", newExpiry))

	live, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, newExpiry, live[0].ExpiresAt)
}

func TestUpdateExpiry_MissingRecordIsNoOp(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateExpiry(context.Background(), "ghost", 42))

	live, err := s.ScanLive(context.Background(), time.Unix(0, 0))
	require.NoError(t, err)
	assert.Empty(t, live, "update must not resurrect a reaped record")
}

func TestScanLive_FiltersExpiredAndOrdersByArrival(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.InsertIfAbsent(context.Background(), record("second", now.Add(time.Second), time.Hour)))
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("first", now, time.Hour)))
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("dead", now.Add(-2*time.Hour), time.Minute)))

	live, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "first", live[0].EntrantID)
	assert.Equal(t, "second", live[1].EntrantID)
}

func TestScanLive_ReapsExpiredRows(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("dead", now.Add(-2*time.Hour), time.Minute)))

	_, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)

	// The reaped id can be reused: the primary key slot is free again.
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("dead", now, time.Hour)))
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("run-1", now, time.Minute)))

	require.NoError(t, s.Delete(context.Background(), "run-1"))
	require.NoError(t, s.Delete(context.Background(), "run-1"))

	live, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, live)
}
