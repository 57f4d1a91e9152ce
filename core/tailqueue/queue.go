package tailqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tailqueue/core/logger"
)

// Queue is a broadcast queue for messages of type T bound to one bounded log.
//
// Send may be called from any number of goroutines. Receive serves a single
// logical consumer: it owns one live cursor and the in-memory position, so
// concurrent Receive calls on the same Queue are serialized.
type Queue[T any] struct {
	logs      LogStore
	positions PositionStore
	codec     Codec
	logger    *slog.Logger

	id          uuid.UUID
	name        string
	positionKey string

	emptyRetryInterval     time.Duration
	reopenInterval         time.Duration
	maxConsecutiveFailures int

	// Consumer state, guarded by recvMu.
	recvMu         sync.Mutex
	cursor         Cursor
	last           Position
	startedReading bool
	cursorYielded  bool
	failures       int

	position atomic.Value // Position, mirrors last for Stats

	sent               atomic.Int64
	received           atomic.Int64
	skipped            atomic.Int64
	cursorOpens        atomic.Int64
	emptyRetries       atomic.Int64
	reinits            atomic.Int64
	checkpointFailures atomic.Int64
}

// Stats provides counters for monitoring and tests.
type Stats struct {
	Sent               int64    // Messages appended by this instance
	Received           int64    // Messages handed back by Receive
	Skipped            int64    // Records dropped because they could not be decoded
	CursorOpens        int64    // Tail queries issued
	EmptyRetries       int64    // Re-queries after finding no records at start
	Reinits            int64    // Re-queries after a dead or failed cursor
	CheckpointFailures int64    // Position upserts that returned an error
	Position           Position // Last delivered position
}

// New binds a queue for T to the given stores. The bounded log is created when
// it does not exist yet and the consumer position is restored from positions.
// No cursor is opened until the first Receive.
func New[T any](ctx context.Context, logs LogStore, positions PositionStore, opts ...Option) (*Queue[T], error) {
	if logs == nil {
		return nil, ErrLogStoreNil
	}
	if positions == nil {
		return nil, ErrPositionStoreNil
	}

	var zero T
	o := &options{
		name:               typeName(zero),
		maxBytes:           DefaultMaxBytes,
		emptyRetryInterval: DefaultEmptyRetryInterval,
		codec:              JSONCodec{},
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.name == "" {
		return nil, ErrEmptyName
	}
	if o.maxBytes <= 0 {
		return nil, ErrInvalidMaxBytes
	}
	if o.reopenInterval <= 0 {
		o.reopenInterval = o.emptyRetryInterval
	}

	q := &Queue[T]{
		logs:                   logs,
		positions:              positions,
		codec:                  o.codec,
		id:                     uuid.New(),
		name:                   o.name,
		positionKey:            positionKey(o.name, o.consumerID),
		emptyRetryInterval:     o.emptyRetryInterval,
		reopenInterval:         o.reopenInterval,
		maxConsecutiveFailures: o.maxConsecutiveFailures,
	}
	q.logger = o.logger.With(
		logger.Component("tailqueue"),
		logger.Queue(q.name),
		logger.ID("queue_instance", q.id.String()),
	)

	if err := q.ensureLog(ctx, o.maxBytes); err != nil {
		return nil, err
	}

	last, found, err := positions.LoadPosition(ctx, q.positionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load position %q: %w", q.positionKey, err)
	}
	if found {
		q.last = last
		q.logger.DebugContext(ctx, "resuming from stored position", logger.Position(last))
	}
	q.position.Store(q.last)

	return q, nil
}

// NewFromConfig creates a Queue from configuration. Additional options
// override config values.
func NewFromConfig[T any](ctx context.Context, cfg Config, logs LogStore, positions PositionStore, opts ...Option) (*Queue[T], error) {
	return New[T](ctx, logs, positions, append(configOptions(cfg), opts...)...)
}

// NewWithStore is a shortcut for backends that serve both the log and the
// positions.
func NewWithStore[T any](ctx context.Context, store Store, opts ...Option) (*Queue[T], error) {
	if store == nil {
		return nil, ErrLogStoreNil
	}
	return New[T](ctx, store, store, opts...)
}

// ensureLog creates the bounded log unless it already exists. Losing the
// creation race to another instance is not an error.
func (q *Queue[T]) ensureLog(ctx context.Context, maxBytes int64) error {
	exists, err := q.logs.LogExists(ctx, q.name)
	if err != nil {
		return fmt.Errorf("failed to check log %q: %w", q.name, err)
	}
	if exists {
		return nil
	}

	q.logger.InfoContext(ctx, "creating queue", logger.Capacity(maxBytes))

	if err := q.logs.CreateLog(ctx, q.name, maxBytes); err != nil {
		if errors.Is(err, ErrLogExists) {
			q.logger.DebugContext(ctx, "queue created concurrently by another instance")
			return nil
		}
		return fmt.Errorf("failed to create log %q: %w", q.name, err)
	}
	return nil
}

// Send appends msg to the log. Store errors are returned as is, wrapped; the
// send is not retried.
func (q *Queue[T]) Send(ctx context.Context, msg T) error {
	_, err := q.Publish(ctx, msg)
	return err
}

// Publish appends msg to the log and returns the position assigned to it.
func (q *Queue[T]) Publish(ctx context.Context, msg T) (Position, error) {
	payload, err := q.codec.Marshal(msg)
	if err != nil {
		return "", errors.Join(ErrFailedToEncode, fmt.Errorf("message of type %T: %w", msg, err))
	}

	pos, err := q.logs.Append(ctx, q.name, Record{
		EnqueuedAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message to %q: %w", q.name, err)
	}

	q.sent.Add(1)
	q.logger.DebugContext(ctx, "message sent", logger.Position(pos))
	return pos, nil
}

// Name returns the name of the bound log.
func (q *Queue[T]) Name() string {
	return q.name
}

// PositionKey returns the key under which this consumer checkpoints.
func (q *Queue[T]) PositionKey() string {
	return q.positionKey
}

// Position returns the last delivered position.
func (q *Queue[T]) Position() Position {
	p, _ := q.position.Load().(Position)
	return p
}

// Stats returns current counters. Safe to call at any time.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Sent:               q.sent.Load(),
		Received:           q.received.Load(),
		Skipped:            q.skipped.Load(),
		CursorOpens:        q.cursorOpens.Load(),
		EmptyRetries:       q.emptyRetries.Load(),
		Reinits:            q.reinits.Load(),
		CheckpointFailures: q.checkpointFailures.Load(),
		Position:           q.Position(),
	}
}

// Close releases the live cursor, if any. The queue can still be used
// afterwards; the next Receive opens a new cursor.
func (q *Queue[T]) Close(ctx context.Context) error {
	q.recvMu.Lock()
	defer q.recvMu.Unlock()
	return q.discardCursor(ctx)
}
