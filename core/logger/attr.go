package logger

import (
	"fmt"
	"log/slog"
	"time"
)

// Helpers that may receive empty input return the zero Attr, which slog
// drops, so callers can write log.Info("msg", logger.Error(err)) without a
// nil check.

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Queue creates an attribute for the queue (bounded log) name.
func Queue(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("queue", name)
}

// Position creates an attribute for a log position. Store-specific
// identifiers log uniformly through fmt.Stringer.
func Position(pos fmt.Stringer) slog.Attr {
	if pos == nil {
		return slog.Attr{}
	}
	return slog.String("position", pos.String())
}

// Consumer creates an attribute for a consumer position key.
func Consumer(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("consumer", id)
}

// Backend creates an attribute for the storage backend name.
func Backend(name string) slog.Attr {
	return slog.String("backend", name)
}

// Capacity creates an attribute for a log capacity in bytes.
func Capacity(maxBytes int64) slog.Attr {
	return slog.Int64("max_bytes", maxBytes)
}

// Duration creates an attribute for a configured duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Latency creates an attribute for the time between enqueue and delivery.
func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}

// ID creates an identifier attribute with a custom key.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// Component names the subsystem that emitted the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count creates a counter attribute.
func Count(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// RetryCount creates an attribute for consecutive failed attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}
