// Package pg connects to PostgreSQL and runs goose migrations. The tailqueue
// position store (pgstore) builds on it.
//
// Connect opens a pgxpool.Pool sized from Config and pings it with retries.
// Config is read from PG_* variables:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg) // PG_CONN_URL is required
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
// # Migrations
//
// Migrate applies SQL files from cfg.MigrationsPath on disk. MigrateFS applies
// files from any fs.FS, which is how packages ship their own schema:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err := pg.MigrateFS(ctx, pool, migrations, "migrations", "myapp_schema_migrations", log)
//
// Goose keeps its dialect, table name and base filesystem in package state, so
// both functions serialize on a package mutex. Each caller should use its own
// version table.
//
// # Transactions
//
// WithTx attaches a pgx.Tx to a context and TxFromContext reads it back.
// InTx wraps the usual begin, commit and rollback sequence and nests as a
// savepoint when the context already carries a transaction:
//
//	err := pg.InTx(ctx, pool, func(ctx context.Context) error {
//		tx, _ := pg.TxFromContext(ctx)
//		if _, err := tx.Exec(ctx, "UPDATE accounts SET ..."); err != nil {
//			return err
//		}
//		return positions.SavePosition(ctx, key, pos) // joins the same transaction
//	})
//
// # Errors
//
// Sentinels are joined with their cause and checked with errors.Is.
// IsNotFoundError matches pgx.ErrNoRows and IsTxClosedError a transaction
// that was already committed or rolled back.
package pg
