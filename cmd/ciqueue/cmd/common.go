package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/adapters/store/dynamodb"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/adapters/store/memory"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/adapters/store/sqlite"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/config"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/logging"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/queue"
)

// loadConfig loads and validates configuration. Flags bound to the global
// viper instance take precedence over env vars and config files.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildLogger creates the process logger from config.
func buildLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		NoColor: cfg.Log.NoColor,
	})
}

// buildStore creates the configured store backend. The returned cleanup
// function releases backend resources and is always safe to call.
func buildStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch cfg.Store.Driver {
	case "dynamodb":
		if cfg.Store.Table == "" {
			return nil, nil, core.ErrValidation(core.CodeMissingTable,
				"table name is required (--table-name, CIQUEUE_STORE_TABLE or store.table)")
		}
		store, err := dynamodb.New(ctx, cfg.Store.Table, cfg.Store.Region)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "sqlite":
		store, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "memory":
		// Single-process only; useful for dry runs and demos.
		return memory.New(), func() {}, nil

	default:
		return nil, nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("unknown store driver %q", cfg.Store.Driver))
	}
}

// queueConfig maps file/flag configuration onto the protocol timing.
func queueConfig(cfg *config.Config) queue.Config {
	return queue.Config{
		PollInterval: cfg.Queue.PollInterval,
		MaxWait:      cfg.Queue.MaxWait,
		RunningLease: cfg.Queue.RunningLease,
		WaitingLease: cfg.Queue.WaitingLease,
	}
}

// resolveEntrantID returns the explicit id, falling back to the run id
// GitHub Actions exports into every job.
func resolveEntrantID(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if runID := os.Getenv("GITHUB_RUN_ID"); runID != "" {
		return runID, nil
	}
	return "", core.ErrValidation(core.CodeMissingEntrant,
		"entrant id is required (--entrant-id or GITHUB_RUN_ID)")
}
