package pgstore_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
	"github.com/dmitrymomot/tailqueue/integration/database/pg"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/pgstore"
)

// MockDB is a mock implementation of pgstore.DBTX
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ret := m.Called(ctx, sql, args)
	return pgconn.NewCommandTag("INSERT 0 1"), ret.Error(0)
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ret := m.Called(ctx, sql, args)
	return ret.Get(0).(pgx.Row)
}

type row struct {
	value string
	err   error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *string:
		*d = r.value
	case *int:
		*d = 1
	}
	return nil
}

func TestNew_NilDB(t *testing.T) {
	t.Parallel()

	_, err := pgstore.New(nil)
	assert.ErrorIs(t, err, pgstore.ErrDBNil)
}

func TestStore_LoadPosition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		db := new(MockDB)
		db.On("QueryRow", mock.Anything, mock.Anything, []any{"orders"}).Return(row{value: "42"}).Once()

		s, err := pgstore.New(db)
		require.NoError(t, err)

		pos, found, err := s.LoadPosition(ctx, "orders")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, tailqueue.Position("42"), pos)
		db.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		db := new(MockDB)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(row{err: pgx.ErrNoRows}).Once()

		s, err := pgstore.New(db)
		require.NoError(t, err)

		_, found, err := s.LoadPosition(ctx, "orders")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		db := new(MockDB)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(row{err: boom}).Once()

		s, err := pgstore.New(db)
		require.NoError(t, err)

		_, _, err = s.LoadPosition(ctx, "orders")
		assert.ErrorIs(t, err, boom)
	})
}

func TestStore_SavePosition(t *testing.T) {
	t.Parallel()

	db := new(MockDB)
	db.On("Exec", mock.Anything, mock.Anything, []any{"orders:billing", "7"}).Return(nil).Once()

	s, err := pgstore.New(db)
	require.NoError(t, err)
	require.NoError(t, s.SavePosition(context.Background(), "orders:billing", "7"))
	db.AssertExpectations(t)
}

// failingTx stands in for a pgx.Tx whose statements fail.
type failingTx struct {
	pgx.Tx
	err error
}

func (tx failingTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, tx.err
}

func TestStore_SavePositionInFailedTx(t *testing.T) {
	t.Parallel()

	db := new(MockDB)
	s, err := pgstore.New(db)
	require.NoError(t, err)

	boom := errors.New("deadlock detected")
	ctx := pg.WithTx(context.Background(), failingTx{err: boom})
	err = s.SavePosition(ctx, "orders:billing", "7")
	assert.ErrorIs(t, err, tailqueue.ErrCheckpointAborted)
	assert.ErrorIs(t, err, boom)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)

	// Outside a transaction the error is returned as is.
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(boom).Once()
	err = s.SavePosition(context.Background(), "orders:billing", "7")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, tailqueue.ErrCheckpointAborted)
}

func TestStore_Healthcheck(t *testing.T) {
	t.Parallel()

	db := new(MockDB)
	db.On("QueryRow", mock.Anything, "SELECT 1", mock.Anything).Return(row{err: errors.New("down")}).Once()

	s, err := pgstore.New(db)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Healthcheck(context.Background()), pg.ErrHealthcheckFailed)
}

func TestStore_Live(t *testing.T) {
	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL not set")
	}
	ctx := context.Background()

	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: url, RetryAttempts: 1})
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, pgstore.Migrate(ctx, pool, nil))

	s, err := pgstore.New(pool)
	require.NoError(t, err)
	require.NoError(t, s.Healthcheck(ctx))

	key := "test:" + uuid.NewString()
	_, found, err := s.LoadPosition(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SavePosition(ctx, key, "1"))
	require.NoError(t, s.SavePosition(ctx, key, "2"))
	pos, found, err := s.LoadPosition(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, tailqueue.Position("2"), pos)

	// A rolled back transaction leaves the checkpoint untouched.
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SavePosition(pg.WithTx(ctx, tx), key, "3"))
	require.NoError(t, tx.Rollback(ctx))

	pos, _, err = s.LoadPosition(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, tailqueue.Position("2"), pos)

	// InTx commits the checkpoint together with the caller's work.
	require.NoError(t, pg.InTx(ctx, pool, func(ctx context.Context) error {
		return s.SavePosition(ctx, key, "4")
	}))
	boom := errors.New("handler failed")
	err = pg.InTx(ctx, pool, func(ctx context.Context) error {
		require.NoError(t, s.SavePosition(ctx, key, "5"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	pos, _, err = s.LoadPosition(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, tailqueue.Position("4"), pos)

	// Paired with an in-memory log.
	logs := tailqueue.NewMemoryStore()
	defer logs.Close()
	q, err := tailqueue.New[string](ctx, logs, s, tailqueue.WithName("pgstore_test"), tailqueue.WithConsumerID(uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, q.Send(ctx, "hello"))
	msg, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg)

	stored, found, err := s.LoadPosition(ctx, q.PositionKey())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, q.Position(), stored)
}
