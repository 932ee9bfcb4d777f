package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/queue"
)

var dequeueCmd = &cobra.Command{
	Use:   "dequeue",
	Short: "Release this run's queue position",
	Long: `Remove this run's record from the queue table after the protected
work has finished.

Safe to call more than once. If the delete cannot be confirmed, the
record still expires on its running lease, so a failed release blocks
the queue for at most that horizon.`,
	Args: cobra.NoArgs,
	RunE: runDequeue,
}

func init() {
	rootCmd.AddCommand(dequeueCmd)

	dequeueCmd.Flags().String("table-name", "",
		"queue table backing the shared resource")
	dequeueCmd.Flags().String("entrant-id", "",
		"unique id of this workflow run (default: $GITHUB_RUN_ID)")
}

func runDequeue(cmd *cobra.Command, _ []string) error {
	// Bound at run time: enqueue binds the same key for its own flag.
	_ = viper.BindPFlag("store.table", cmd.Flags().Lookup("table-name"))

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

	client := queue.New(store, queueConfig(cfg),
		queue.WithLogger(log.WithTable(cfg.Store.Table)))
	return client.Dequeue(ctx, entrantID)
}
