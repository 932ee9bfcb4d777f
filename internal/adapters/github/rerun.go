// Package github implements the restart escape hatch through the GitHub
// CLI. A wait that is about to hit the ceiling can request a rerun of its
// own workflow run, letting a fresh run re-enter the queue instead of
// burning the remainder of the platform's job timeout.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

const defaultTimeout = 60 * time.Second

// RerunClient triggers workflow reruns via `gh api`. Authentication and
// endpoint selection are delegated to the gh CLI, the same way the CI
// environment already uses it.
type RerunClient struct {
	repo    string // owner/name
	runner  CommandRunner
	timeout time.Duration
}

var _ core.Rerunner = (*RerunClient)(nil)

// NewRerunClient creates a client for the given owner/name repository.
func NewRerunClient(repo string) (*RerunClient, error) {
	return NewRerunClientWithRunner(repo, NewExecRunner())
}

// NewRerunClientWithRunner creates a client with an explicit runner.
func NewRerunClientWithRunner(repo string, runner CommandRunner) (*RerunClient, error) {
	if !strings.Contains(repo, "/") {
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("rerun repository must be owner/name, got %q", repo))
	}
	return &RerunClient{
		repo:    repo,
		runner:  runner,
		timeout: defaultTimeout,
	}, nil
}

// TriggerRerun implements core.Rerunner. It issues exactly one rerun
// request; the returned error reports only whether the request was issued.
func (c *RerunClient) TriggerRerun(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("repos/%s/actions/runs/%s/rerun", c.repo, runID)
	if _, err := c.runner.Run(ctx, "gh", "api", endpoint, "--method", "POST"); err != nil {
		return (&core.DomainError{
			Category: core.ErrCatNetwork,
			Code:     core.CodeRerunFailed,
			Message:  fmt.Sprintf("requesting rerun of run %s in %s", runID, c.repo),
		}).WithCause(err)
	}
	return nil
}
