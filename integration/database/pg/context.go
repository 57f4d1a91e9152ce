package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// Beginner starts transactions. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx attaches tx to ctx. Stores that check TxFromContext, such as the
// tailqueue position store, run their statements inside it.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction attached with WithTx.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// InTx runs fn inside a transaction carried by the context it receives and
// commits when fn returns nil. When ctx already carries a transaction the
// new one is a savepoint inside it.
func InTx(ctx context.Context, db Beginner, fn func(ctx context.Context) error) (err error) {
	if outer, ok := TxFromContext(ctx); ok {
		db = outer
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrFailedToBeginTx, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !IsTxClosedError(rbErr) {
			err = errors.Join(err, rbErr)
		}
	}()

	if err = fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
