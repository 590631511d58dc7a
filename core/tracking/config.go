package tracking

import "time"

// Config holds configuration for movement reconciliation.
type Config struct {
	// Rooms is the comma separated list of monitored rooms.
	Rooms string `mapstructure:"rooms" default:"Room A,Room B"`
	// StoreTimeout bounds every directory lookup and commit.
	StoreTimeout time.Duration `mapstructure:"store_timeout" default:"5s"`
	// MaxCommitAttempts is the compare-and-commit budget per event.
	MaxCommitAttempts int `mapstructure:"max_commit_attempts" default:"3"`
	// ReconnectDelay is the pause before a failed event source is restarted.
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" default:"2s"`
	// ShutdownTimeout bounds the drain of accepted events at shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"15s"`
	// ReplayFile is an optional detection log replayed at startup.
	ReplayFile string `mapstructure:"replay_file" default:""`
}
