package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Store  StoreConfig  `mapstructure:"store"`
	GitHub GitHubConfig `mapstructure:"github"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// QueueConfig configures the admission protocol timing. All four values
// are tunable per table.
type QueueConfig struct {
	// PollInterval is the sleep between queue position checks.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// MaxWait is the wait ceiling: total time an entrant will wait
	// before giving up (and optionally requesting a rerun).
	MaxWait time.Duration `mapstructure:"max_wait"`

	// RunningLease is the expiry horizon granted on promotion. It must
	// exceed the longest expected run of the protected work.
	RunningLease time.Duration `mapstructure:"running_lease"`

	// WaitingLease is the short expiry horizon used while queued. It is
	// refreshed every poll, so it only needs to outlive a few intervals.
	WaitingLease time.Duration `mapstructure:"waiting_lease"`
}

// StoreConfig selects and configures the queue table backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // dynamodb, sqlite, memory
	Table  string `mapstructure:"table"`
	Region string `mapstructure:"region"` // dynamodb only
	Path   string `mapstructure:"path"`   // sqlite only
}

// GitHubConfig configures the rerun escape hatch.
type GitHubConfig struct {
	// Repository is the owner/name whose workflow runs may be rerun.
	// Empty disables the escape hatch.
	Repository string `mapstructure:"repository"`
}
