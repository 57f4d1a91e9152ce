package server

import "time"

// Config holds probe server settings.
type Config struct {
	Addr              string        `env:"HEALTH_SERVER_ADDR" envDefault:":8081"`
	ReadHeaderTimeout time.Duration `env:"HEALTH_SERVER_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HEALTH_SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"HEALTH_SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `env:"HEALTH_SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"HEALTH_SERVER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewFromConfig creates a Server from configuration. Additional options
// override config values.
func NewFromConfig(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}

	configOpts := []Option{
		WithTimeouts(cfg.ReadHeaderTimeout, cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}
	return New(cfg.Addr, append(configOpts, opts...)...), nil
}
