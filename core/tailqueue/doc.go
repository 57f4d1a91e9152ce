// Package tailqueue provides a durable broadcast queue over a bounded,
// append-only log.
//
// Every Queue bound to the same log name sees every message, in append order.
// Nothing is removed on read: the log drops its oldest records once it reaches
// its byte capacity, and each consumer keeps its own position so it can resume
// after a restart. Consumers block on a live-tail cursor instead of polling.
//
// # Stores
//
// A Queue talks to two collaborators:
//
//   - LogStore creates bounded logs, appends records and opens live-tail cursors.
//   - PositionStore checkpoints the last delivered position per consumer key.
//
// MemoryStore implements both in process memory for tests and local runs.
// Production backends live under integration/tailqueue (MongoDB capped
// collections, Redis Streams, Pebble and a PostgreSQL position store).
//
// # Basic Usage
//
//	store := tailqueue.NewMemoryStore()
//	defer store.Close()
//
//	type ExampleMessage struct {
//		Number int    `json:"number"`
//		Name   string `json:"name"`
//	}
//
//	q, err := tailqueue.NewWithStore[ExampleMessage](ctx, store,
//		tailqueue.WithMaxBytes(16<<20),
//		tailqueue.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//
//	if err := q.Send(ctx, ExampleMessage{Number: 1, Name: "first"}); err != nil {
//		return err
//	}
//
//	msg, err := q.Receive(ctx) // blocks until a message arrives or ctx is done
//
// The log name defaults to the unqualified name of T ("ExampleMessage").
// WithName overrides it.
//
// # Positions
//
// Queues bound to the same log share one position record keyed by the log
// name, which matches a single logical consumer per process. Give each
// consumer its own record with WithConsumerID:
//
//	q, err := tailqueue.New[ExampleMessage](ctx, logs, positions,
//		tailqueue.WithConsumerID("billing"),
//	)
//
// A position is checkpointed before the message is returned, so a crash after
// Receive returns but before the caller finishes loses that message for the
// consumer. Failed checkpoints are logged and counted in Stats, never returned.
//
// # Recovery
//
// Receive reopens the cursor whenever it dies: on an empty log, after a
// connection drop, when the server kills it or when the consumer fell behind
// the capacity window. A consumer that fell behind resumes at the oldest
// surviving record. By default Receive retries forever; WithMaxConsecutiveFailures
// makes it return ErrStoreUnavailable instead.
//
// Records that cannot be decoded into T are skipped, logged and counted.
//
// # Configuration
//
// Config can be loaded from the environment with the config package:
//
//	var cfg tailqueue.Config
//	config.MustLoad(&cfg)
//	q, err := tailqueue.NewFromConfig[ExampleMessage](ctx, cfg, logs, positions)
//
// # Error Handling
//
//	_, err := q.Receive(ctx)
//	switch {
//	case errors.Is(err, tailqueue.ErrStoreUnavailable):
//		// the store kept failing
//	case errors.Is(err, context.Canceled):
//		// shutdown
//	}
package tailqueue
