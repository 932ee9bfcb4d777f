package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_Timing(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 5*time.Hour+30*time.Minute, cfg.MaxWait)
	assert.Equal(t, 8*time.Hour, cfg.RunningLease)
	assert.Equal(t, 10*time.Minute, cfg.WaitingLease)

	// The waiting lease must survive several missed polls before the
	// entrant falls out of the queue.
	assert.Greater(t, cfg.WaitingLease, 3*cfg.PollInterval)
}
