package redisstore

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidID(t *testing.T) {
	t.Parallel()

	assert.True(t, validID("1700000000000-0"))
	assert.True(t, validID("0-0"))
	assert.False(t, validID("1700000000000"))
	assert.False(t, validID("abc-1"))
	assert.False(t, validID("1-"))
}

func TestDecodeEntry(t *testing.T) {
	t.Parallel()

	rec, err := decodeEntry(redis.XMessage{
		ID: "1-1",
		Values: map[string]any{
			fieldPayload:  `{"number":1}`,
			fieldEnqueued: "2024-05-01T10:00:00.5Z",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1-1", string(rec.ID))
	assert.Equal(t, []byte(`{"number":1}`), rec.Payload)
	assert.Equal(t, 500_000_000, rec.EnqueuedAt.Nanosecond())

	_, err = decodeEntry(redis.XMessage{ID: "1-2", Values: map[string]any{}})
	assert.ErrorIs(t, err, ErrMalformedEntry)
}
