package config

import "time"

// QueueConfig contains job-scheduler concurrency and timeout configuration.
// Unlike the originating queue config this no longer governs DB polling —
// there is no claim queue to poll since incidents live in memory — but the
// same names are kept for the concerns that still apply: how many
// investigations may run concurrently, and how long one is allowed to run.
type QueueConfig struct {
	// MaxConcurrentSessions bounds how many investigations run at once.
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions"`

	// SessionTimeout is the maximum wall-clock time a single investigation
	// may run before its context is cancelled.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active
	// investigations to finish during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxConcurrentSessions:   5,
		SessionTimeout:          10 * time.Minute,
		GracefulShutdownTimeout: 1 * time.Minute,
	}
}
