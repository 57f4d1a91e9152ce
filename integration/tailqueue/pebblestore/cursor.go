package pebblestore

import (
	"context"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/dmitrymomot/tailqueue/core/logger"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

type cursor struct {
	store *Store
	name  string
	seq   uint64

	current tailqueue.Record
	dead    bool
	err     error
}

// Next reads the entry after the cursor, waiting up to the store's await
// timeout for an append when the cursor is at the end of the log.
func (c *cursor) Next(ctx context.Context) bool {
	if c.dead || c.err != nil {
		return false
	}

	timer := time.NewTimer(c.store.awaitTimeout)
	defer timer.Stop()

	for {
		found, notify, err := c.read()
		if err != nil {
			c.fail(err)
			return false
		}
		if found {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-c.store.closeCh:
			c.fail(tailqueue.ErrStoreClosed)
			return false
		case <-timer.C:
			return false
		case <-notify:
		}
	}
}

// read loads the entry at c.seq+1. When there is none it returns the channel
// closed by the next append.
func (c *cursor) read() (bool, <-chan struct{}, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok, err := s.state(c.name)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, tailqueue.ErrLogNotFound
	}
	if st.firstSeq == 0 || c.seq >= st.lastSeq {
		return false, st.notifyCh, nil
	}
	if c.seq+1 < st.firstSeq {
		return false, nil, tailqueue.ErrPositionLost
	}

	for next := c.seq + 1; next <= st.lastSeq; next++ {
		val, closer, err := s.db.Get(keyEntry(c.name, next))
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil, tailqueue.ErrPositionLost
		}
		if err != nil {
			return false, nil, err
		}
		enqueued, payload, ok := decodeEntry(val)
		closer.Close()
		c.seq = next
		if !ok {
			s.logger.Warn("skipping corrupt entry",
				logger.Queue(c.name),
				logger.Position(formatSeq(next)),
				logger.Error(ErrCorruptEntry))
			continue
		}

		c.current = tailqueue.Record{
			ID:         formatSeq(next),
			EnqueuedAt: enqueued,
			Payload:    payload,
		}
		return true, nil, nil
	}
	return false, st.notifyCh, nil
}

func (c *cursor) fail(err error) {
	c.err = err
	c.dead = true
}

func (c *cursor) Record() tailqueue.Record {
	return c.current
}

func (c *cursor) Dead() bool {
	return c.dead
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close(ctx context.Context) error {
	c.dead = true
	return nil
}
