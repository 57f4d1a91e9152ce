// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads a .env file on first use, when one exists, and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/tailqueue/core/config"
//
//	var qcfg tailqueue.Config
//	if err := config.Load(&qcfg); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or panic on failure (useful for startup)
//	var mcfg mongo.Config
//	config.MustLoad(&mcfg)
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 tailqueue.Config
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 tailqueue.Config
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Reset clears the cache, which tests use after changing the environment.
package config
