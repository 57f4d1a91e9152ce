package cmd

import "errors"

var (
	ErrUnknownBackend      = errors.New("unknown backend")
	ErrProcessLocalBackend = errors.New("backend cannot be shared between processes, use the demo command")
	ErrUnknownPositions    = errors.New("unknown positions store")
	ErrInvalidCount        = errors.New("count must not be negative")
	ErrInvalidConsumers    = errors.New("consumers must be positive")
)
