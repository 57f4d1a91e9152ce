package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type format int

const (
	formatText format = iota
	formatJSON
)

type config struct {
	level          slog.Level
	format         format
	output         io.Writer
	attrs          []slog.Attr
	handlerOptions *slog.HandlerOptions
}

// Option configures a logger created by New.
type Option func(*config)

// New creates a *slog.Logger. Without options it writes text at info level
// to stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: formatText,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hopts := cfg.handlerOptions
	if hopts == nil {
		hopts = &slog.HandlerOptions{}
	}
	if hopts.Level == nil {
		hopts.Level = cfg.level
	}

	var h slog.Handler
	switch cfg.format {
	case formatJSON:
		h = slog.NewJSONHandler(cfg.output, hopts)
	default:
		h = slog.NewTextHandler(cfg.output, hopts)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}

	return slog.New(h)
}

// WithDevelopment configures text output at debug level.
func WithDevelopment(service string) Option {
	return func(c *config) {
		c.level = slog.LevelDebug
		c.format = formatText
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "development"))
	}
}

// WithStaging configures JSON output at info level.
func WithStaging(service string) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		c.format = formatJSON
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "staging"))
	}
}

// WithProduction configures JSON output at info level.
func WithProduction(service string) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		c.format = formatJSON
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "production"))
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithJSONFormatter switches to JSON output.
func WithJSONFormatter() Option {
	return func(c *config) {
		c.format = formatJSON
	}
}

// WithTextFormatter switches to logfmt-style text output.
func WithTextFormatter() Option {
	return func(c *config) {
		c.format = formatText
	}
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithHandlerOptions sets handler options. A nil Level in opts falls back to
// the level configured with WithLevel.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		c.handlerOptions = opts
	}
}

// SetAsDefault installs l as the slog default logger.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
