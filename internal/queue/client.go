// Package queue implements the admission protocol that serializes workflow
// runs against one shared exclusive resource. Each entrant registers a
// record in a shared table, polls until it is the oldest live record,
// promotes its lease to a long horizon, and deletes the record when done.
// Crashed entrants fall out of the queue when their lease expires.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/logging"
)

// Client runs the queue admission protocol for a single entrant. It is not
// concurrent itself: the coordination happens across processes through the
// shared store.
type Client struct {
	store    core.Store
	rerunner core.Rerunner
	cfg      Config
	log      *logging.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithRerunner enables the restart escape hatch on wait-ceiling timeout.
func WithRerunner(r core.Rerunner) Option {
	return func(c *Client) { c.rerunner = r }
}

// WithLogger sets the progress logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock overrides the wall clock. Tests use this to drive lease and
// ceiling arithmetic deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleeper overrides the poll-interval sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New creates a queue client over the given store.
func New(store core.Store, cfg Config, opts ...Option) *Client {
	c := &Client{
		store: store,
		cfg:   cfg,
		log:   logging.NewNop(),
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EnqueueAndWait registers the entrant and blocks until it is admitted to
// the resource or the wait ceiling is reached. A nil return means the
// entrant holds the resource and must call Dequeue when finished.
func (c *Client) EnqueueAndWait(ctx context.Context, entrantID string) error {
	if entrantID == "" {
		return core.ErrValidation(core.CodeMissingEntrant, "entrant id is required")
	}
	log := c.log.WithEntrant(entrantID)

	if err := c.register(ctx, entrantID, log); err != nil {
		return err
	}

	start := c.now()
	for {
		elapsed := c.now().Sub(start)
		if elapsed >= c.cfg.MaxWait {
			log.Error("wait ceiling exceeded, giving up queue position",
				"elapsed", elapsed.Round(time.Second), "ceiling", c.cfg.MaxWait)
			if c.requestRerun(ctx, entrantID, log) {
				log.Info("rerun requested, a fresh run will re-enter the queue")
			}
			return core.ErrWaitCeiling(fmt.Sprintf("gave up after %s in queue", elapsed.Round(time.Second)))
		}

		front, err := c.checkFront(ctx, entrantID, elapsed, log)
		switch {
		case err != nil:
			if !core.IsRetryable(err) {
				return err
			}
			log.Warn("queue check failed, retrying next interval", "error", err)
		case front:
			if c.promote(ctx, entrantID, log) {
				return nil
			}
			// Lost the promotion race. Re-scan and re-rank immediately
			// rather than trusting the stale position.
			continue
		default:
			c.renew(ctx, entrantID, log)
		}

		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// Dequeue releases the entrant's queue position. Idempotent. Store
// failures are not escalated: an undeleted record expires on its own lease,
// which bounds how long a failed release can block the queue.
func (c *Client) Dequeue(ctx context.Context, entrantID string) error {
	if entrantID == "" {
		return core.ErrValidation(core.CodeMissingEntrant, "entrant id is required")
	}
	log := c.log.WithEntrant(entrantID)

	if err := c.store.Delete(ctx, entrantID); err != nil {
		log.Warn("failed to remove queue record, it will expire on its own lease", "error", err)
		return nil
	}
	log.Info("removed from queue")
	return nil
}

// register inserts the entrant's record with a fresh waiting lease.
// A record already present for this entrant is not an error: retried
// scripts keep their original arrival position.
func (c *Client) register(ctx context.Context, entrantID string, log *logging.Logger) error {
	now := c.now()
	record := core.QueueRecord{
		EntrantID:  entrantID,
		EnqueuedAt: core.FormatArrival(now),
		ExpiresAt:  now.Add(c.cfg.WaitingLease).Unix(),
	}

	err := c.store.InsertIfAbsent(ctx, record)
	if err == nil {
		log.Info("registered in queue", "enqueued_at", record.EnqueuedAt)
		return nil
	}
	if core.IsCategory(err, core.ErrCatConflict) {
		log.Info("already registered, keeping existing queue position")
		return nil
	}
	return fmt.Errorf("registering in queue: %w", err)
}

// checkFront scans the live queue and reports whether the entrant is at
// the front. Expired-but-unreaped records are filtered out before ranking.
func (c *Client) checkFront(ctx context.Context, entrantID string, elapsed time.Duration, log *logging.Logger) (bool, error) {
	now := c.now()
	records, err := c.store.ScanLive(ctx, now)
	if err != nil {
		return false, err
	}

	live := core.FilterLive(records, now)
	if len(live) == 0 {
		return false, core.ErrQueueState(core.CodeQueueEmpty,
			"live scan returned no records, expected own registration to be present")
	}

	core.SortByArrival(live)
	rank := core.Rank(live, entrantID)
	log.Info("checked queue position",
		"rank", rank,
		"depth", len(live),
		"front", live[0].EntrantID,
		"elapsed", elapsed.Round(time.Second),
		"queue", core.EntrantIDs(live))

	if rank == 0 {
		// The waiting lease lapsed and the record was reaped, most likely
		// after failed renewals. Rejoin at the back of the queue.
		log.Warn("own record missing from live queue, re-registering")
		if err := c.register(ctx, entrantID, log); err != nil {
			return false, err
		}
		return false, nil
	}

	return live[0].EntrantID == entrantID, nil
}

// promote switches the entrant's lease to the running horizon, claiming
// the resource. The update is unconditional: the front-of-queue check is
// the only guard, and a narrow window remains where two entrants that both
// observed themselves at the front would both succeed. Callers re-rank
// after any failure here instead of trusting a stale position.
func (c *Client) promote(ctx context.Context, entrantID string, log *logging.Logger) bool {
	expiresAt := c.now().Add(c.cfg.RunningLease).Unix()
	if err := c.store.UpdateExpiry(ctx, entrantID, expiresAt); err != nil {
		log.Warn("promotion update failed, re-checking queue position", "error", err)
		return false
	}
	log.Info("front of queue, admitted to resource", "lease", c.cfg.RunningLease)
	return true
}

// renew refreshes the waiting lease. Fail-soft: a missed renewal only
// risks this entrant's record expiring early, and the next poll detects
// that and re-registers. A transient store hiccup must not abort a wait
// that may already be hours long.
func (c *Client) renew(ctx context.Context, entrantID string, log *logging.Logger) {
	expiresAt := c.now().Add(c.cfg.WaitingLease).Unix()
	if err := c.store.UpdateExpiry(ctx, entrantID, expiresAt); err != nil {
		log.Warn("failed to refresh waiting lease", "error", err)
		return
	}
	log.Debug("refreshed waiting lease", "lease", c.cfg.WaitingLease)
}

// requestRerun issues one best-effort restart request. The return value
// reports whether the request was issued, not whether the rerun succeeds;
// either way the caller still exits with failure.
func (c *Client) requestRerun(ctx context.Context, entrantID string, log *logging.Logger) bool {
	if c.rerunner == nil {
		log.Info("no rerun target configured, skipping restart")
		return false
	}
	log.Info("requesting workflow rerun before giving up")
	if err := c.rerunner.TriggerRerun(ctx, entrantID); err != nil {
		log.Warn("rerun request failed", "error", err)
		return false
	}
	return true
}
