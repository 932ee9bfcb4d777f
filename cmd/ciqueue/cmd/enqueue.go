package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/adapters/github"
	"github.com/hugo-lorenzo-mato/ci-queue/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Join the queue and block until admitted",
	Long: `Join the queue for the resource behind the given table and block
until this run reaches the front.

Exit code 0 means the run holds the resource and must call 'dequeue'
when its protected work is done. Non-zero means the wait ceiling was
reached or the queue state was unrecoverable; the protected work must
not start.

With --restart-target set, hitting the wait ceiling first requests a
rerun of this workflow run via the gh CLI, so a fresh run re-enters the
queue instead of wasting the job timeout. The command still exits
non-zero in that case.`,
	Args: cobra.NoArgs,
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().String("table-name", "",
		"queue table backing the shared resource (one table per resource)")
	enqueueCmd.Flags().String("entrant-id", "",
		"unique id of this workflow run (default: $GITHUB_RUN_ID)")
	enqueueCmd.Flags().String("restart-target", "",
		"owner/name repository for the rerun escape hatch (empty disables it)")
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	// Bound here rather than in init: enqueue and dequeue share these
	// viper keys, and only the running command's flags may win.
	_ = viper.BindPFlag("store.table", cmd.Flags().Lookup("table-name"))
	_ = viper.BindPFlag("github.repository", cmd.Flags().Lookup("restart-target"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := buildLogger(cfg)

	entrantFlag, _ := cmd.Flags().GetString("entrant-id")
	entrantID, err := resolveEntrantID(entrantFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []queue.Option{queue.WithLogger(log.WithTable(cfg.Store.Table))}
	if cfg.GitHub.Repository != "" {
		rerunner, err := github.NewRerunClient(cfg.GitHub.Repository)
		if err != nil {
			return err
		}
		opts = append(opts, queue.WithRerunner(rerunner))
	}

	client := queue.New(store, queueConfig(cfg), opts...)
	return client.EnqueueAndWait(ctx, entrantID)
}
