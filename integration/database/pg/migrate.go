package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Migrate applies the migrations found in cfg.MigrationsPath on disk.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	if cfg.MigrationsPath == "" {
		return ErrMigrationPathNotProvided
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrMigrationsDirNotFound
		}
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return migrate(ctx, pool, nil, cfg.MigrationsPath, cfg.MigrationsTable, log)
}

// MigrateFS applies the migrations under dir in fsys, typically an embed.FS
// shipped with the package that owns the schema.
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir, table string, log *slog.Logger) error {
	if fsys == nil || dir == "" {
		return ErrMigrationPathNotProvided
	}
	return migrate(ctx, pool, fsys, dir, table, log)
}

func migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir, table string, log *slog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	// goose works on database/sql.
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	if table != "" {
		goose.SetTableName(table)
	}
	if log != nil {
		goose.SetLogger(gooseLogger{log: log})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, fmt.Errorf("dir %q: %w", dir, err))
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}
