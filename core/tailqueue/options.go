package tailqueue

import (
	"log/slog"
	"time"
)

const (
	// DefaultMaxBytes is the capacity used when a log is created without WithMaxBytes.
	DefaultMaxBytes int64 = 100 << 20

	// DefaultEmptyRetryInterval is the pause before re-querying a log that had no records.
	DefaultEmptyRetryInterval = 100 * time.Millisecond
)

// Option configures a Queue.
type Option func(*options)

type options struct {
	name                   string
	consumerID             string
	maxBytes               int64
	emptyRetryInterval     time.Duration
	reopenInterval         time.Duration
	maxConsecutiveFailures int
	codec                  Codec
	logger                 *slog.Logger
}

// WithName overrides the log name derived from the message type.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithConsumerID gives the queue its own position record, keyed
// "<name>:<id>". Queues without an id share the record keyed by the log name.
func WithConsumerID(id string) Option {
	return func(o *options) {
		o.consumerID = id
	}
}

// WithMaxBytes sets the capacity used if the log has to be created.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithEmptyRetryInterval sets the pause before re-querying an empty log.
func WithEmptyRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.emptyRetryInterval = d
		}
	}
}

// WithReopenInterval sets the pause after a failed attempt to open a cursor.
func WithReopenInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.reopenInterval = d
		}
	}
}

// WithMaxConsecutiveFailures makes Receive give up with ErrStoreUnavailable
// after n failed cursor operations in a row. Zero retries forever.
func WithMaxConsecutiveFailures(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxConsecutiveFailures = n
		}
	}
}

// WithCodec replaces the JSON payload codec.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// configOptions converts cfg to options. Zero values are ignored by the
// option functions, so an empty Config leaves the defaults in place.
func configOptions(cfg Config) []Option {
	return []Option{
		WithMaxBytes(cfg.MaxBytes),
		WithEmptyRetryInterval(cfg.EmptyRetryInterval),
		WithReopenInterval(cfg.ReopenInterval),
		WithMaxConsecutiveFailures(cfg.MaxConsecutiveFailures),
		WithConsumerID(cfg.ConsumerID),
	}
}
