package redisstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tailqueue/core/logger"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

const (
	// DefaultPrefix namespaces every key the store writes.
	DefaultPrefix = "tailqueue"

	// DefaultEntrySizeHint is the average entry size used to turn a byte
	// capacity into a stream length.
	DefaultEntrySizeHint = 256

	// DefaultBlock is how long XREAD waits for new entries.
	DefaultBlock = time.Second

	// DefaultBatchSize is the COUNT passed to XREAD.
	DefaultBatchSize = 100

	fieldEnqueued = "enqueued"
	fieldPayload  = "payload"
	fieldMaxBytes = "max_bytes"
	fieldMaxLen   = "max_len"
)

// Store implements tailqueue.Store on Redis Streams. A log is a stream trimmed
// with XADD MAXLEN ~; positions are fields of a single hash.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	sizeHint  int64
	block     time.Duration
	batchSize int64
	logger    *slog.Logger

	maxLens sync.Map // log name -> int64
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithEntrySizeHint sets the average entry size used to derive MAXLEN from
// the byte capacity given to CreateLog.
func WithEntrySizeHint(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.sizeHint = n
		}
	}
}

// WithBlock sets how long a cursor blocks waiting for entries.
func WithBlock(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.block = d
		}
	}
}

// WithBatchSize sets how many entries a cursor fetches per round trip.
func WithBatchSize(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store. It panics if client is nil; use NewStore to get an error instead.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s, err := NewStore(client, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewStore creates a store.
func NewStore(client redis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, ErrClientNil
	}
	s := &Store{
		client:    client,
		prefix:    DefaultPrefix,
		sizeHint:  DefaultEntrySizeHint,
		block:     DefaultBlock,
		batchSize: DefaultBatchSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Backend("redis"))
	return s, nil
}

func (s *Store) streamKey(name string) string { return s.prefix + ":log:" + name }
func (s *Store) metaKey(name string) string   { return s.prefix + ":log:" + name + ":meta" }
func (s *Store) positionsKey() string         { return s.prefix + ":positions" }

// LogExists reports whether the log's max_len has been written. That field
// alone marks a log as created.
func (s *Store) LogExists(ctx context.Context, name string) (bool, error) {
	return s.client.HExists(ctx, s.metaKey(name), fieldMaxLen).Result()
}

// CreateLog records the log capacity. The stream itself appears on the first
// XADD. Concurrent creators race on HSETNX of max_len; the loser gets
// ErrLogExists. max_bytes is informational and written afterwards.
func (s *Store) CreateLog(ctx context.Context, name string, maxBytes int64) error {
	if maxBytes <= 0 {
		return tailqueue.ErrInvalidMaxBytes
	}
	maxLen := max(maxBytes/s.sizeHint, 1)

	created, err := s.client.HSetNX(ctx, s.metaKey(name), fieldMaxLen, maxLen).Result()
	if err != nil {
		return err
	}
	if !created {
		return tailqueue.ErrLogExists
	}
	s.maxLens.Store(name, maxLen)

	if err := s.client.HSet(ctx, s.metaKey(name), fieldMaxBytes, maxBytes).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to record stream capacity",
			logger.Queue(name),
			logger.Error(err))
	}

	s.logger.InfoContext(ctx, "stream created",
		logger.Queue(name),
		logger.Capacity(maxBytes),
		slog.Int64("max_len", maxLen))
	return nil
}

// Append adds rec with XADD, trimming the stream to its approximate length.
func (s *Store) Append(ctx context.Context, name string, rec tailqueue.Record) (tailqueue.Position, error) {
	maxLen, err := s.maxLen(ctx, name)
	if err != nil {
		return "", err
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.streamKey(name),
		MaxLen: maxLen,
		Approx: true,
		Values: []any{
			fieldEnqueued, rec.EnqueuedAt.Format(time.RFC3339Nano),
			fieldPayload, rec.Payload,
		},
	}).Result()
	if err != nil {
		return "", err
	}
	return tailqueue.Position(id), nil
}

func (s *Store) maxLen(ctx context.Context, name string) (int64, error) {
	if v, ok := s.maxLens.Load(name); ok {
		return v.(int64), nil
	}
	raw, err := s.client.HGet(ctx, s.metaKey(name), fieldMaxLen).Result()
	if errors.Is(err, redis.Nil) {
		return 0, tailqueue.ErrLogNotFound
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid max_len for %q: %w", name, err)
	}
	s.maxLens.Store(name, n)
	return n, nil
}

// Tail returns a cursor reading entries after the position with XREAD BLOCK.
// A consumer that fell behind the trimmed window continues at the oldest
// surviving entry.
func (s *Store) Tail(ctx context.Context, name string, after tailqueue.Position) (tailqueue.Cursor, error) {
	id := "0-0"
	if !after.IsZero() {
		if !validID(string(after)) {
			return nil, fmt.Errorf("%w: %q", tailqueue.ErrInvalidPosition, after)
		}
		id = string(after)
	}
	exists, err := s.LogExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, tailqueue.ErrLogNotFound
	}
	return &cursor{store: s, key: s.streamKey(name), lastID: id}, nil
}

// LoadPosition reads the position stored for key.
func (s *Store) LoadPosition(ctx context.Context, key string) (tailqueue.Position, bool, error) {
	v, err := s.client.HGet(ctx, s.positionsKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tailqueue.Position(v), true, nil
}

// SavePosition stores pos for key.
func (s *Store) SavePosition(ctx context.Context, key string, pos tailqueue.Position) error {
	return s.client.HSet(ctx, s.positionsKey(), key, string(pos)).Err()
}

// Healthcheck pings Redis.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

type cursor struct {
	store  *Store
	key    string
	lastID string

	buf     []redis.XMessage
	current tailqueue.Record
	err     error
	closed  bool
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil || c.closed {
		return false
	}
	if len(c.buf) == 0 {
		streams, err := c.store.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{c.key, c.lastID},
			Count:   c.store.batchSize,
			Block:   c.store.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return false
		}
		if err != nil {
			if ctx.Err() == nil {
				c.err = err
			}
			return false
		}
		for _, st := range streams {
			c.buf = append(c.buf, st.Messages...)
		}
		if len(c.buf) == 0 {
			return false
		}
	}

	msg := c.buf[0]
	c.buf = c.buf[1:]
	c.lastID = msg.ID
	rec, err := decodeEntry(msg)
	if err != nil {
		// Hand it on without a payload so the queue skips and checkpoints it.
		c.store.logger.WarnContext(ctx, "malformed stream entry",
			logger.Position(tailqueue.Position(msg.ID)),
			logger.Error(err))
		rec = tailqueue.Record{ID: tailqueue.Position(msg.ID)}
	}
	c.current = rec
	return true
}

func (c *cursor) Record() tailqueue.Record {
	return c.current
}

// Dead is true only after an error; an XREAD cursor is a plain stream id and
// never expires on the server.
func (c *cursor) Dead() bool {
	return c.err != nil || c.closed
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close(ctx context.Context) error {
	c.closed = true
	c.buf = nil
	return nil
}

func decodeEntry(msg redis.XMessage) (tailqueue.Record, error) {
	payload, ok := msg.Values[fieldPayload].(string)
	if !ok {
		return tailqueue.Record{}, fmt.Errorf("%w: %s has no payload", ErrMalformedEntry, msg.ID)
	}
	rec := tailqueue.Record{
		ID:      tailqueue.Position(msg.ID),
		Payload: []byte(payload),
	}
	if raw, ok := msg.Values[fieldEnqueued].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.EnqueuedAt = ts
		}
	}
	return rec, nil
}

// validID checks the "<ms>-<seq>" stream id format.
func validID(id string) bool {
	ms, seq, ok := strings.Cut(id, "-")
	if !ok {
		return false
	}
	if _, err := strconv.ParseUint(ms, 10, 64); err != nil {
		return false
	}
	_, err := strconv.ParseUint(seq, 10, 64)
	return err == nil
}
