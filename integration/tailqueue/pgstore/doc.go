// Package pgstore keeps tailqueue consumer positions in PostgreSQL.
//
// It implements only tailqueue.PositionStore; the log itself stays in a
// LogStore such as mongostore or redisstore. Keeping checkpoints in the same
// database as the consumer's own tables lets a handler commit both in one
// transaction:
//
//	pool, err := pg.Connect(ctx, pgCfg)
//	if err != nil {
//		return err
//	}
//	if err := pgstore.Migrate(ctx, pool, log); err != nil {
//		return err
//	}
//	positions, err := pgstore.New(pool)
//	if err != nil {
//		return err
//	}
//	q, err := tailqueue.New[ExampleMessage](ctx, redisstore.New(client), positions)
//
// SavePosition writes through the transaction attached with pg.WithTx when
// there is one, so a handler can commit its own writes and the checkpoint
// together:
//
//	err := pg.InTx(ctx, pool, func(ctx context.Context) error {
//		if err := orders.Apply(ctx, msg); err != nil {
//			return err
//		}
//		return positions.SavePosition(ctx, q.PositionKey(), env.ID)
//	})
//
// A failed write inside a caller transaction aborts it in PostgreSQL, so
// SavePosition then returns tailqueue.ErrCheckpointAborted. When Receive runs
// with such a ctx it hands that error back instead of the message, and the
// message is delivered again on the next Receive. Roll back and retry in a new
// transaction.
package pgstore
