package tailqueue

import "time"

// Config holds queue settings loadable from the environment.
type Config struct {
	MaxBytes               int64         `env:"TAILQUEUE_MAX_BYTES" envDefault:"104857600"`
	EmptyRetryInterval     time.Duration `env:"TAILQUEUE_EMPTY_RETRY_INTERVAL" envDefault:"100ms"`
	ReopenInterval         time.Duration `env:"TAILQUEUE_REOPEN_INTERVAL" envDefault:"100ms"`
	MaxConsecutiveFailures int           `env:"TAILQUEUE_MAX_CONSECUTIVE_FAILURES" envDefault:"0"`
	ConsumerID             string        `env:"TAILQUEUE_CONSUMER_ID"`
}

// DefaultConfig returns the defaults used when no options are given.
func DefaultConfig() Config {
	return Config{
		MaxBytes:           DefaultMaxBytes,
		EmptyRetryInterval: DefaultEmptyRetryInterval,
		ReopenInterval:     DefaultEmptyRetryInterval,
	}
}
