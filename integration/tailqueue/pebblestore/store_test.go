package pebblestore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/pebblestore"
)

type ExampleMessage struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

func openStore(t *testing.T, dir string) *pebblestore.Store {
	t.Helper()
	s, err := pebblestore.Open(pebblestore.Options{
		DataDir:      dir,
		AwaitTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return s
}

func TestOpen_RequiresDataDir(t *testing.T) {
	t.Parallel()

	_, err := pebblestore.Open(pebblestore.Options{})
	assert.ErrorIs(t, err, pebblestore.ErrDataDirRequired)
}

func TestStore_CreateLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	defer s.Close()

	assert.ErrorIs(t, s.CreateLog(ctx, "", 10), tailqueue.ErrEmptyName)
	assert.Error(t, s.CreateLog(ctx, "a/b", 10))
	assert.ErrorIs(t, s.CreateLog(ctx, "log", 0), tailqueue.ErrInvalidMaxBytes)

	require.NoError(t, s.CreateLog(ctx, "log", 1024))
	assert.ErrorIs(t, s.CreateLog(ctx, "log", 1024), tailqueue.ErrLogExists)

	exists, err := s.LogExists(ctx, "log")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.Append(ctx, "missing", tailqueue.Record{Payload: []byte("x")})
	assert.ErrorIs(t, err, tailqueue.ErrLogNotFound)

	_, err = s.Append(ctx, "log", tailqueue.Record{Payload: make([]byte, 2048)})
	assert.ErrorIs(t, err, tailqueue.ErrRecordTooLarge)
}

func TestStore_TrimsToCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	defer s.Close()

	// Each entry takes 8+4 bytes of framing plus its payload.
	require.NoError(t, s.CreateLog(ctx, "log", 64))
	for range 20 {
		_, err := s.Append(ctx, "log", tailqueue.Record{Payload: []byte("abcd")})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, s.Len("log"))

	cur, err := s.Tail(ctx, "log", "")
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))
	assert.Equal(t, tailqueue.Position("17"), cur.Record().ID)
}

func TestStore_DeadCursorAtEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	defer s.Close()
	require.NoError(t, s.CreateLog(ctx, "log", 1024))

	cur, err := s.Tail(ctx, "log", "")
	require.NoError(t, err)
	assert.True(t, cur.Dead())

	pos, err := s.Append(ctx, "log", tailqueue.Record{Payload: []byte("a")})
	require.NoError(t, err)

	cur, err = s.Tail(ctx, "log", pos)
	require.NoError(t, err)
	assert.True(t, cur.Dead())

	_, err = s.Tail(ctx, "log", "x")
	assert.ErrorIs(t, err, tailqueue.ErrInvalidPosition)
}

func TestStore_OverrunCursor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	defer s.Close()
	require.NoError(t, s.CreateLog(ctx, "log", 32))

	_, err := s.Append(ctx, "log", tailqueue.Record{Payload: []byte("abcd")})
	require.NoError(t, err)
	cur, err := s.Tail(ctx, "log", "")
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))

	for range 4 {
		_, err := s.Append(ctx, "log", tailqueue.Record{Payload: []byte("abcd")})
		require.NoError(t, err)
	}

	assert.False(t, cur.Next(ctx))
	assert.ErrorIs(t, cur.Err(), tailqueue.ErrPositionLost)
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dir := t.TempDir()

	s := openStore(t, dir)
	q, err := tailqueue.NewWithStore[ExampleMessage](ctx, s)
	require.NoError(t, err)
	for i := 1; i <= 10; i++ {
		require.NoError(t, q.Send(ctx, ExampleMessage{Number: i}))
	}
	for range 4 {
		_, err := q.Receive(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, q.Close(ctx))
	require.NoError(t, s.Close())

	s = openStore(t, dir)
	defer s.Close()

	q, err = tailqueue.NewWithStore[ExampleMessage](ctx, s)
	require.NoError(t, err)
	assert.Equal(t, tailqueue.Position("4"), q.Position())

	msg, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, msg.Number)

	// Sequences continue after the reopen.
	pos, err := q.Publish(ctx, ExampleMessage{Number: 11})
	require.NoError(t, err)
	assert.Equal(t, tailqueue.Position("11"), pos)
	assert.Equal(t, 11, s.Len(q.Name()))
}

func TestQueue_FanOutOnPebble(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s := openStore(t, t.TempDir())
	defer s.Close()

	const consumers, messages = 5, 300
	done := make(chan error, consumers)
	for i := range consumers {
		q, err := tailqueue.NewWithStore[ExampleMessage](ctx, s,
			tailqueue.WithConsumerID(fmt.Sprint(i)),
			tailqueue.WithEmptyRetryInterval(5*time.Millisecond))
		require.NoError(t, err)

		go func() {
			for want := 1; want <= messages; want++ {
				msg, err := q.Receive(ctx)
				if err != nil {
					done <- err
					return
				}
				if msg.Number != want {
					done <- fmt.Errorf("consumer %d: got %d, want %d", i, msg.Number, want)
					return
				}
			}
			done <- nil
		}()
	}

	producer, err := tailqueue.NewWithStore[ExampleMessage](ctx, s)
	require.NoError(t, err)
	for i := 1; i <= messages; i++ {
		require.NoError(t, producer.Send(ctx, ExampleMessage{Number: i, Name: "pebble"}))
	}

	for range consumers {
		require.NoError(t, <-done)
	}
}

func TestStore_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Healthcheck(ctx))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Healthcheck(ctx), pebblestore.ErrHealthcheckFailed)
	assert.ErrorIs(t, s.SavePosition(ctx, "k", "1"), tailqueue.ErrStoreClosed)
	_, err := s.LogExists(ctx, "log")
	assert.ErrorIs(t, err, tailqueue.ErrStoreClosed)
}
