package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when environment variables cannot be parsed
// into the target struct.
var ErrParsingConfig = errors.New("failed to parse configuration")

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any (value of T)
)

// Load fills cfg from the environment. The first call for a type parses the
// environment; later calls copy the cached value.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil target", ErrParsingConfig)
	}

	dotenvOnce.Do(func() {
		// A missing .env file is normal outside local development.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()
	if v, ok := cache.Load(key); ok {
		*cfg = v.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	v, _ := cache.LoadOrStore(key, parsed)
	*cfg = v.(T)
	return nil
}

// MustLoad is Load that panics on error. Intended for program startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Reset drops all cached values so the next Load re-reads the environment.
func Reset() {
	cache.Range(func(k, _ any) bool {
		cache.Delete(k)
		return true
	})
}
