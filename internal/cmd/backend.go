package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/tailqueue/core/config"
	"github.com/dmitrymomot/tailqueue/core/logger"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
	mongodb "github.com/dmitrymomot/tailqueue/integration/database/mongo"
	"github.com/dmitrymomot/tailqueue/integration/database/pg"
	redisdb "github.com/dmitrymomot/tailqueue/integration/database/redis"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/mongostore"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/pebblestore"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/pgstore"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/redisstore"
)

// backend is an opened log store plus the position store paired with it.
type backend struct {
	logs      tailqueue.LogStore
	positions tailqueue.PositionStore
	checks    []func(context.Context) error
	closers   []func(context.Context) error
}

// openBackend connects the stores selected by cfg. processLocal allows the
// memory backend, which only works when every queue lives in this process.
func openBackend(ctx context.Context, cfg Config, log *slog.Logger, processLocal bool) (*backend, error) {
	b := &backend{}
	storeLog := log.With(logger.Component("store"))

	switch cfg.Backend {
	case BackendMongo:
		var mcfg mongodb.Config
		if err := config.Load(&mcfg); err != nil {
			return nil, err
		}
		db, err := mongodb.NewWithDatabase(ctx, mcfg, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Client().Disconnect)
		opts := []mongostore.Option{mongostore.WithLogger(storeLog)}
		if cfg.MongoUnackedCheckpoints {
			opts = append(opts, mongostore.WithUnacknowledgedCheckpoints())
		}
		store, err := mongostore.NewStore(db, opts...)
		if err != nil {
			return nil, b.closeWith(ctx, err)
		}
		b.logs, b.positions = store, store
		b.checks = append(b.checks, store.Healthcheck)

	case BackendRedis:
		var rcfg redisdb.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, err
		}
		client, err := redisdb.Connect(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		store, err := redisstore.NewStore(client, redisstore.WithLogger(storeLog))
		if err != nil {
			return nil, b.closeWith(ctx, err)
		}
		b.logs, b.positions = store, store
		b.checks = append(b.checks, store.Healthcheck)

	case BackendPebble:
		store, err := pebblestore.Open(pebblestore.Options{
			DataDir: cfg.DataDir,
			Logger:  storeLog,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return store.Close() })
		b.logs, b.positions = store, store
		b.checks = append(b.checks, store.Healthcheck)

	case BackendMemory:
		if !processLocal {
			return nil, fmt.Errorf("%w: %s", ErrProcessLocalBackend, cfg.Backend)
		}
		store := tailqueue.NewMemoryStore(tailqueue.WithMemoryStoreLogger(storeLog))
		b.closers = append(b.closers, func(context.Context) error { return store.Close() })
		b.logs, b.positions = store, store
		b.checks = append(b.checks, store.Healthcheck)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	switch cfg.Positions {
	case "":
	case PositionsPostgres:
		positions, err := openPositions(ctx, storeLog)
		if err != nil {
			return nil, b.closeWith(ctx, err)
		}
		b.positions = positions.store
		b.checks = append(b.checks, positions.store.Healthcheck)
		b.closers = append(b.closers, positions.close)
	default:
		return nil, b.closeWith(ctx, fmt.Errorf("%w: %q", ErrUnknownPositions, cfg.Positions))
	}

	return b, nil
}

type pgPositions struct {
	store *pgstore.Store
	close func(context.Context) error
}

// openPositions connects to PostgreSQL and makes sure the positions table exists.
func openPositions(ctx context.Context, log *slog.Logger) (*pgPositions, error) {
	var pcfg pg.Config
	if err := config.Load(&pcfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pgstore.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	store, err := pgstore.New(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &pgPositions{
		store: store,
		close: func(context.Context) error { pool.Close(); return nil },
	}, nil
}

// Close releases connections in reverse order of opening.
func (b *backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *backend) closeWith(ctx context.Context, err error) error {
	return errors.Join(err, b.Close(ctx))
}
