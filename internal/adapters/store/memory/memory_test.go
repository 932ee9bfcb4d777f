package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

func record(id string, at time.Time, lease time.Duration) core.QueueRecord {
	return core.QueueRecord{
		EntrantID:  id,
		EnqueuedAt: core.FormatArrival(at),
		ExpiresAt:  at.Add(lease).Unix(),
	}
}

func TestInsertIfAbsent_EnforcesUniqueness(t *testing.T) {
	s := New()
	now := time.Now()

	require.NoError(t, s.InsertIfAbsent(context.Background(), record("run-1", now, time.Minute)))

	err := s.InsertIfAbsent(context.Background(), record("run-1", now.Add(time.Second), time.Minute))
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConflict))

	got, ok := s.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, core.FormatArrival(now), got.EnqueuedAt,
		"conflicting insert must not touch the existing record")
}

func TestUpdateExpiry(t *testing.T) {
	s := New()
	now := time.Now()
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("run-1", now, time.Minute)))

	newExpiry := now.Add(8 * time.Hour).Unix()
	require.NoError(t, s.UpdateExpiry(context.Background(), "run-1", newExpiry))

	got, _ := s.Get("run-1")
	assert.Equal(t, newExpiry, got.ExpiresAt)
	assert.Equal(t, core.FormatArrival(now), got.EnqueuedAt, "arrival order is immutable")
}

func TestUpdateExpiry_MissingRecordIsNoOp(t *testing.T) {
	s := New()
	require.NoError(t, s.UpdateExpiry(context.Background(), "ghost", 42))
	assert.Equal(t, 0, s.Len(), "update must not resurrect a reaped record")
}

func TestScanLive_FiltersAndReapsExpired(t *testing.T) {
	s := New()
	now := time.Now()

	require.NoError(t, s.InsertIfAbsent(context.Background(), record("live", now, time.Hour)))
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("dead", now.Add(-2*time.Hour), time.Minute)))

	live, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "live", live[0].EntrantID)

	assert.Equal(t, 1, s.Len(), "expired record should be reaped by the scan")
}

func TestDelete_Idempotent(t *testing.T) {
	s := New()
	now := time.Now()
	require.NoError(t, s.InsertIfAbsent(context.Background(), record("run-1", now, time.Minute)))

	require.NoError(t, s.Delete(context.Background(), "run-1"))
	require.NoError(t, s.Delete(context.Background(), "run-1"))
	assert.Equal(t, 0, s.Len())
}
