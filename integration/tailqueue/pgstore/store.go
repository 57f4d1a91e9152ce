package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
	"github.com/dmitrymomot/tailqueue/integration/database/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsTable is the goose version table used by Migrate.
const MigrationsTable = "tailqueue_schema_migrations"

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements tailqueue.PositionStore on PostgreSQL. Pair it with any
// LogStore to keep checkpoints next to application data.
type Store struct {
	db DBTX
}

// New creates a position store. Run Migrate first.
func New(db DBTX) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	return &Store{db: db}, nil
}

// Migrate creates the positions table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return pg.MigrateFS(ctx, pool, migrations, "migrations", MigrationsTable, log)
}

const loadPositionQuery = `SELECT position FROM tailqueue_positions WHERE key = $1`

const savePositionQuery = `
INSERT INTO tailqueue_positions (key, position, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET position = EXCLUDED.position, updated_at = EXCLUDED.updated_at`

// LoadPosition reads the position stored for key.
func (s *Store) LoadPosition(ctx context.Context, key string) (tailqueue.Position, bool, error) {
	var pos string
	err := s.conn(ctx).QueryRow(ctx, loadPositionQuery, key).Scan(&pos)
	if pg.IsNotFoundError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tailqueue.Position(pos), true, nil
}

// SavePosition upserts the position for key. When ctx carries a transaction
// (pg.WithTx) the write joins it, and a failure is reported as
// tailqueue.ErrCheckpointAborted because PostgreSQL aborts that transaction.
func (s *Store) SavePosition(ctx context.Context, key string, pos tailqueue.Position) error {
	if tx, ok := pg.TxFromContext(ctx); ok {
		if _, err := tx.Exec(ctx, savePositionQuery, key, string(pos)); err != nil {
			return errors.Join(tailqueue.ErrCheckpointAborted, err)
		}
		return nil
	}
	_, err := s.db.Exec(ctx, savePositionQuery, key, string(pos))
	return err
}

// Healthcheck runs a trivial query.
func (s *Store) Healthcheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Join(pg.ErrHealthcheckFailed, err)
	}
	return nil
}

func (s *Store) conn(ctx context.Context) DBTX {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}
