package mongostore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	driver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
	"github.com/dmitrymomot/tailqueue/integration/database/mongo"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/mongostore"
)

func testDatabase(t *testing.T) *driver.Database {
	t.Helper()
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}

	ctx := context.Background()
	name := "tailqueue_test_" + uuid.NewString()[:8]
	db, err := mongo.NewWithDatabase(ctx, mongo.Config{ConnectionURL: url, RetryAttempts: 1}, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})
	return db
}

func TestStore_CreateLog(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := mongostore.New(db)

	exists, err := store.LogExists(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateLog(ctx, "orders", 1<<20))
	assert.ErrorIs(t, store.CreateLog(ctx, "orders", 1<<20), tailqueue.ErrLogExists)

	exists, err = store.LogExists(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_EmptyCollectionCursorIsDead(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := mongostore.New(db)
	require.NoError(t, store.CreateLog(ctx, "empty", 1<<20))

	cur, err := store.Tail(ctx, "empty", "")
	require.NoError(t, err)
	defer cur.Close(ctx)

	assert.False(t, cur.Next(ctx))
	assert.True(t, cur.Dead())
	assert.NoError(t, cur.Err())
}

func TestStore_Positions(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := mongostore.New(db)

	_, found, err := store.LoadPosition(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.CreateLog(ctx, "orders", 1<<20))
	pos, err := store.Append(ctx, "orders", tailqueue.Record{EnqueuedAt: time.Now().UTC(), Payload: []byte(`{}`)})
	require.NoError(t, err)

	require.NoError(t, store.SavePosition(ctx, "orders", pos))
	got, found, err := store.LoadPosition(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, pos, got)

	// Positions from other backends are kept as strings.
	require.NoError(t, store.SavePosition(ctx, "orders:pebble", "00000042"))
	got, _, err = store.LoadPosition(ctx, "orders:pebble")
	require.NoError(t, err)
	assert.Equal(t, tailqueue.Position("00000042"), got)
}

func TestQueue_OnMongo(t *testing.T) {
	db := testDatabase(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := mongostore.New(db, mongostore.WithMaxAwaitTime(200*time.Millisecond))

	type ExampleMessage struct {
		Number int    `json:"number"`
		Name   string `json:"name"`
	}

	const consumers, messages = 3, 200
	queues := make([]*tailqueue.Queue[ExampleMessage], consumers)
	for i := range queues {
		q, err := tailqueue.NewWithStore[ExampleMessage](ctx, store,
			tailqueue.WithMaxBytes(1<<20),
			tailqueue.WithConsumerID(fmt.Sprint(i)))
		require.NoError(t, err)
		queues[i] = q
	}

	producer, err := tailqueue.NewWithStore[ExampleMessage](ctx, store)
	require.NoError(t, err)
	for i := 1; i <= messages; i++ {
		require.NoError(t, producer.Send(ctx, ExampleMessage{Number: i, Name: "mongo"}))
	}

	for _, q := range queues {
		for i := 1; i <= messages; i++ {
			msg, err := q.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, i, msg.Number)
		}
	}

	// Restart resumes after the stored position.
	restarted, err := tailqueue.NewWithStore[ExampleMessage](ctx, store, tailqueue.WithConsumerID("0"))
	require.NoError(t, err)
	assert.Equal(t, queues[0].Position(), restarted.Position())
}

func TestQueue_OnMongoDocumentPayloads(t *testing.T) {
	db := testDatabase(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := mongostore.New(db, mongostore.WithDocumentPayloads())
	q, err := tailqueue.NewWithStore[exampleMessage](ctx, store, tailqueue.WithCodec(mongostore.BSONCodec{}))
	require.NoError(t, err)

	require.NoError(t, q.Send(ctx, exampleMessage{Number: 1, Name: "doc"}))
	msg, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, exampleMessage{Number: 1, Name: "doc"}, msg)
}
