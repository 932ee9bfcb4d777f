package config

import (
	"fmt"
	"strings"
)

var knownDrivers = map[string]bool{
	"dynamodb": true,
	"sqlite":   true,
	"memory":   true,
}

// Validate checks configuration consistency. It returns all problems at
// once so operators can fix a config file in a single pass.
func Validate(cfg *Config) error {
	var problems []string

	if !knownDrivers[cfg.Store.Driver] {
		problems = append(problems, fmt.Sprintf("store.driver: unknown driver %q (want dynamodb, sqlite or memory)", cfg.Store.Driver))
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.Path == "" {
		problems = append(problems, "store.path: required for the sqlite driver")
	}

	if cfg.Queue.PollInterval <= 0 {
		problems = append(problems, "queue.poll_interval: must be positive")
	}
	if cfg.Queue.MaxWait <= 0 {
		problems = append(problems, "queue.max_wait: must be positive")
	}
	if cfg.Queue.RunningLease <= 0 {
		problems = append(problems, "queue.running_lease: must be positive")
	}
	if cfg.Queue.WaitingLease <= 0 {
		problems = append(problems, "queue.waiting_lease: must be positive")
	}

	// A waiting lease shorter than the poll interval would expire between
	// renewals and silently drop the entrant from the queue.
	if cfg.Queue.PollInterval > 0 && cfg.Queue.WaitingLease > 0 &&
		cfg.Queue.WaitingLease <= cfg.Queue.PollInterval {
		problems = append(problems, "queue.waiting_lease: must exceed queue.poll_interval")
	}

	if cfg.GitHub.Repository != "" && !strings.Contains(cfg.GitHub.Repository, "/") {
		problems = append(problems, "github.repository: must be in owner/name form")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
