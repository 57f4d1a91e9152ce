package tailqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

func appendN(t *testing.T, store *tailqueue.MemoryStore, name string, payloads ...string) []tailqueue.Position {
	t.Helper()
	positions := make([]tailqueue.Position, 0, len(payloads))
	for _, p := range payloads {
		pos, err := store.Append(context.Background(), name, tailqueue.Record{Payload: []byte(p)})
		require.NoError(t, err)
		positions = append(positions, pos)
	}
	return positions
}

func TestMemoryStore_CreateLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	assert.ErrorIs(t, store.CreateLog(ctx, "log", 0), tailqueue.ErrInvalidMaxBytes)

	exists, err := store.LogExists(ctx, "log")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateLog(ctx, "log", 100))
	assert.ErrorIs(t, store.CreateLog(ctx, "log", 100), tailqueue.ErrLogExists)

	exists, err = store.LogExists(ctx, "log")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStore_Append(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown log", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		_, err := store.Append(ctx, "missing", tailqueue.Record{Payload: []byte("x")})
		assert.ErrorIs(t, err, tailqueue.ErrLogNotFound)
	})

	t.Run("record larger than capacity", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 4))

		_, err := store.Append(ctx, "log", tailqueue.Record{Payload: []byte("12345")})
		assert.ErrorIs(t, err, tailqueue.ErrRecordTooLarge)
	})

	t.Run("assigns increasing ids", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))

		ids := appendN(t, store, "log", "a", "b", "c")
		assert.Equal(t, []tailqueue.Position{"1", "2", "3"}, ids)
	})

	t.Run("evicts oldest records when full", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 10))

		appendN(t, store, "log", "aaaa", "bbbb", "cccc", "dddd", "eeee")
		assert.Equal(t, 2, store.Len("log"))

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		defer cur.Close(ctx)

		require.True(t, cur.Next(ctx))
		assert.Equal(t, tailqueue.Position("4"), cur.Record().ID)
		assert.Equal(t, []byte("dddd"), cur.Record().Payload)
	})
}

func TestMemoryStore_Tail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty log returns dead cursor", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		assert.True(t, cur.Dead())
		assert.False(t, cur.Next(ctx))
		assert.NoError(t, cur.Err())
		assert.Equal(t, 0, store.Stats().OpenCursors)
	})

	t.Run("position at end returns dead cursor", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))
		ids := appendN(t, store, "log", "a", "b")

		cur, err := store.Tail(ctx, "log", ids[1])
		require.NoError(t, err)
		assert.True(t, cur.Dead())
	})

	t.Run("invalid position", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))

		_, err := store.Tail(ctx, "log", "not-a-number")
		assert.ErrorIs(t, err, tailqueue.ErrInvalidPosition)
	})

	t.Run("unknown log", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		_, err := store.Tail(ctx, "missing", "")
		assert.ErrorIs(t, err, tailqueue.ErrLogNotFound)
	})

	t.Run("yields records after position", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))
		ids := appendN(t, store, "log", "a", "b", "c")

		cur, err := store.Tail(ctx, "log", ids[0])
		require.NoError(t, err)
		defer cur.Close(ctx)

		require.True(t, cur.Next(ctx))
		assert.Equal(t, []byte("b"), cur.Record().Payload)
		require.True(t, cur.Next(ctx))
		assert.Equal(t, []byte("c"), cur.Record().Payload)
	})

	t.Run("await timeout keeps cursor alive", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))
		appendN(t, store, "log", "a")

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		defer cur.Close(ctx)
		require.True(t, cur.Next(ctx))

		start := time.Now()
		assert.False(t, cur.Next(ctx))
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
		assert.False(t, cur.Dead())
		assert.NoError(t, cur.Err())
	})

	t.Run("wakes up on append", func(t *testing.T) {
		t.Parallel()
		store := tailqueue.NewMemoryStore(tailqueue.WithAwaitTimeout(5 * time.Second))
		defer store.Close()
		require.NoError(t, store.CreateLog(ctx, "log", 100))
		appendN(t, store, "log", "a")

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		defer cur.Close(ctx)
		require.True(t, cur.Next(ctx))

		go func() {
			time.Sleep(20 * time.Millisecond)
			_, _ = store.Append(ctx, "log", tailqueue.Record{Payload: []byte("b")})
		}()

		start := time.Now()
		require.True(t, cur.Next(ctx))
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, []byte("b"), cur.Record().Payload)
	})

	t.Run("overrun cursor reports lost position", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 8))
		appendN(t, store, "log", "aaaa")

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		defer cur.Close(ctx)
		require.True(t, cur.Next(ctx))

		appendN(t, store, "log", "bbbb", "cccc", "dddd")

		assert.False(t, cur.Next(ctx))
		assert.True(t, cur.Dead())
		assert.ErrorIs(t, cur.Err(), tailqueue.ErrPositionLost)
	})

	t.Run("killed cursor", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		require.NoError(t, store.CreateLog(ctx, "log", 100))
		appendN(t, store, "log", "a")

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		require.True(t, cur.Next(ctx))

		assert.Equal(t, 1, store.KillCursors("log"))
		assert.Equal(t, 0, store.KillCursors("missing"))
		assert.False(t, cur.Next(ctx))
		assert.ErrorIs(t, cur.Err(), tailqueue.ErrCursorKilled)
	})

	t.Run("context cancel stops waiting", func(t *testing.T) {
		t.Parallel()
		store := tailqueue.NewMemoryStore(tailqueue.WithAwaitTimeout(5 * time.Second))
		defer store.Close()
		require.NoError(t, store.CreateLog(ctx, "log", 100))
		appendN(t, store, "log", "a")

		cur, err := store.Tail(ctx, "log", "")
		require.NoError(t, err)
		require.True(t, cur.Next(ctx))

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		assert.False(t, cur.Next(cctx))
		assert.NoError(t, cur.Err())
	})
}

func TestMemoryStore_Positions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, found, err := store.LoadPosition(ctx, "consumer")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SavePosition(ctx, "consumer", "3"))
	require.NoError(t, store.SavePosition(ctx, "consumer", "4"))

	pos, found, err := store.LoadPosition(ctx, "consumer")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, tailqueue.Position("4"), pos)
	assert.Equal(t, 1, store.Stats().Positions)
}

func TestMemoryStore_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := tailqueue.NewMemoryStore()
	require.NoError(t, store.CreateLog(ctx, "log", 100))
	appendN(t, store, "log", "a")
	require.NoError(t, store.Healthcheck(ctx))

	cur, err := store.Tail(ctx, "log", "")
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Healthcheck(ctx), tailqueue.ErrHealthcheckFailed)
	assert.False(t, cur.Next(ctx))
	assert.ErrorIs(t, cur.Err(), tailqueue.ErrCursorKilled)

	_, err = store.Append(ctx, "log", tailqueue.Record{Payload: []byte("b")})
	assert.ErrorIs(t, err, tailqueue.ErrStoreClosed)
	assert.ErrorIs(t, store.SavePosition(ctx, "k", "1"), tailqueue.ErrStoreClosed)
	_, err = store.Tail(ctx, "log", "")
	assert.ErrorIs(t, err, tailqueue.ErrStoreClosed)
}
