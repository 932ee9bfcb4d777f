package queue

import "time"

// Config holds the admission protocol timing.
type Config struct {
	// PollInterval is the sleep between queue position checks.
	PollInterval time.Duration

	// MaxWait is the wait ceiling. An entrant that has not been admitted
	// within this window stops waiting and exits with failure.
	MaxWait time.Duration

	// RunningLease is the expiry horizon set on promotion. If the holder
	// dies without dequeuing, the queue unblocks after this long.
	RunningLease time.Duration

	// WaitingLease is the expiry horizon while queued, refreshed on every
	// poll. If a waiter dies, its slot frees up after this long.
	WaitingLease time.Duration
}

// DefaultConfig returns the stock timing: one-minute polls under a
// 5h30m ceiling, with an 8h running lease and a 10m waiting lease.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Minute,
		MaxWait:      5*time.Hour + 30*time.Minute,
		RunningLease: 8 * time.Hour,
		WaitingLease: 10 * time.Minute,
	}
}
