package tailqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tailqueue/core/logger"
)

// Receive blocks until the next message is available and returns its payload.
// Cursor failures are recovered internally; Receive only returns an error when
// ctx is done, when a checkpoint fails with ErrCheckpointAborted or, with
// WithMaxConsecutiveFailures, when the store keeps failing.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	env, err := q.ReceiveEnvelope(ctx)
	return env.Payload, err
}

// ReceiveEnvelope is Receive returning the envelope metadata as well.
// The position of a record is checkpointed before the record is returned.
func (q *Queue[T]) ReceiveEnvelope(ctx context.Context) (Envelope[T], error) {
	q.recvMu.Lock()
	defer q.recvMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return Envelope[T]{}, err
		}

		// Uninitialized
		if q.cursor == nil {
			if err := q.openCursor(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Envelope[T]{}, ctxErr
				}
				if err := q.fail(ctx, "failed to open cursor", err); err != nil {
					return Envelope[T]{}, err
				}
				if err := sleep(ctx, q.reopenInterval); err != nil {
					return Envelope[T]{}, err
				}
				continue
			}
		}

		// Tailing
		if q.cursor.Next(ctx) {
			q.failures = 0
			env, ok, err := q.deliver(ctx, q.cursor.Record())
			if err != nil {
				return Envelope[T]{}, err
			}
			if !ok {
				continue
			}
			return env, nil
		}

		if err := q.cursor.Err(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Envelope[T]{}, ctxErr
			}
			// Dead-Reinit: connection drop, killed cursor.
			q.reinits.Add(1)
			if err := q.fail(ctx, "cursor failed", err); err != nil {
				return Envelope[T]{}, err
			}
			_ = q.discardCursor(ctx)
			// The first failure reopens at once; repeated ones back off.
			if q.failures > 1 {
				if err := sleep(ctx, q.reopenInterval); err != nil {
					return Envelope[T]{}, err
				}
			}
			continue
		}
		q.failures = 0

		if !q.startedReading {
			// Empty-Retry: a live-tail query against a log without records
			// returns nothing and has to be reissued.
			q.logger.DebugContext(ctx, "cursor empty")
			q.emptyRetries.Add(1)
			if err := sleep(ctx, q.emptyRetryInterval); err != nil {
				return Envelope[T]{}, err
			}
			_ = q.discardCursor(ctx)
			continue
		}

		if q.cursor.Dead() {
			// Dead-Reinit. A cursor that died without yielding anything was
			// opened past the end of the log; wait before asking again.
			q.logger.DebugContext(ctx, "cursor dead")
			q.reinits.Add(1)
			yielded := q.cursorYielded
			_ = q.discardCursor(ctx)
			if !yielded {
				if err := sleep(ctx, q.emptyRetryInterval); err != nil {
					return Envelope[T]{}, err
				}
			}
			continue
		}

		// The await period elapsed without data; keep tailing.
	}
}

// deliver records rec as consumed and decodes it. The position is advanced
// and checkpointed even when decoding fails, so an undecodable record is
// skipped rather than redelivered forever.
func (q *Queue[T]) deliver(ctx context.Context, rec Record) (Envelope[T], bool, error) {
	if err := q.checkpoint(ctx, rec.ID); err != nil {
		// Reopen at the last delivered position so rec comes back.
		_ = q.discardCursor(ctx)
		return Envelope[T]{}, false, err
	}
	q.startedReading = true
	q.cursorYielded = true
	q.last = rec.ID
	q.position.Store(rec.ID)

	var payload T
	if err := q.codec.Unmarshal(rec.Payload, &payload); err != nil {
		q.skipped.Add(1)
		q.logger.ErrorContext(ctx, "skipping undecodable message",
			logger.Position(rec.ID),
			logger.Error(errors.Join(ErrFailedToDecode, err)))
		return Envelope[T]{}, false, nil
	}

	q.received.Add(1)
	if !rec.EnqueuedAt.IsZero() {
		q.logger.DebugContext(ctx, "message received",
			logger.Position(rec.ID),
			logger.Latency(time.Since(rec.EnqueuedAt)))
	}

	return Envelope[T]{
		ID:         rec.ID,
		EnqueuedAt: rec.EnqueuedAt,
		Payload:    payload,
	}, true, nil
}

// checkpoint upserts the consumer position. Failures are logged and counted:
// losing the latest checkpoint only leads to redelivery after a restart.
// Only ErrCheckpointAborted is returned, since the caller's transaction is
// already lost.
func (q *Queue[T]) checkpoint(ctx context.Context, pos Position) error {
	err := q.positions.SavePosition(ctx, q.positionKey, pos)
	if err == nil {
		return nil
	}
	q.checkpointFailures.Add(1)
	if errors.Is(err, ErrCheckpointAborted) {
		q.logger.WarnContext(ctx, "checkpoint aborted transaction, message will be redelivered",
			logger.Position(pos),
			logger.Error(err))
		return fmt.Errorf("failed to save position %q: %w", q.positionKey, err)
	}
	q.logger.WarnContext(ctx, "failed to save position",
		logger.Position(pos),
		logger.Error(err))
	return nil
}

func (q *Queue[T]) openCursor(ctx context.Context) error {
	q.logger.DebugContext(ctx, "initializing cursor", logger.Position(q.last))
	q.cursorOpens.Add(1)

	cur, err := q.logs.Tail(ctx, q.name, q.last)
	if err != nil {
		return err
	}
	q.cursor = cur
	q.cursorYielded = false
	return nil
}

func (q *Queue[T]) discardCursor(ctx context.Context) error {
	if q.cursor == nil {
		return nil
	}
	err := q.cursor.Close(context.WithoutCancel(ctx))
	q.cursor = nil
	return err
}

// fail counts a failed cursor operation and returns ErrStoreUnavailable once
// the configured limit is reached.
func (q *Queue[T]) fail(ctx context.Context, msg string, err error) error {
	q.failures++
	q.logger.DebugContext(ctx, msg,
		logger.Error(err),
		logger.RetryCount(q.failures))

	if q.maxConsecutiveFailures > 0 && q.failures >= q.maxConsecutiveFailures {
		q.logger.ErrorContext(ctx, "giving up on unavailable store",
			logger.Error(err),
			slog.Int("max_consecutive_failures", q.maxConsecutiveFailures))
		q.failures = 0
		_ = q.discardCursor(ctx)
		return errors.Join(ErrStoreUnavailable, fmt.Errorf("%s after %d attempts: %w", msg, q.maxConsecutiveFailures, err))
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
