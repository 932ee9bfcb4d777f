package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "ciqueue",
	Short: "Serialize CI workflow runs against a shared exclusive resource",
	Long: `ciqueue gates workflow runs on a distributed mutual-exclusion queue.

A run joins the queue with 'enqueue', which blocks until every earlier
live entrant has finished or expired, then holds the resource under a
long lease. 'dequeue' releases the position when the run's protected
work is done. If a run dies without releasing, its lease expires and the
queue heals on its own.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .ciqueue.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().Bool("no-color", false,
		"disable colored output")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log.no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}
