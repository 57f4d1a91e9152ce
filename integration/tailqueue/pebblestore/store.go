package pebblestore

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

	"github.com/cockroachdb/pebble"

	"github.com/dmitrymomot/tailqueue/core/logger"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval.
	FsyncModeInterval FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every append and checkpoint.
	FsyncModeAlways
	// FsyncModeNever leaves syncing to Pebble.
	FsyncModeNever
)

const (
	DefaultFsyncInterval = 5 * time.Millisecond
	DefaultAwaitTimeout  = time.Second
)

// Options configures Open.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group commit when Fsync is FsyncModeInterval.
	FsyncInterval time.Duration
	// AwaitTimeout is how long Cursor.Next blocks waiting for appends.
	AwaitTimeout time.Duration
	// PebbleOptions allows advanced tuning. Nil uses defaults.
	PebbleOptions *pebble.Options
	// Logger receives store events. Nil discards them.
	Logger *slog.Logger
}

// Store implements tailqueue.Store on an embedded Pebble database. Logs are
// bounded by the encoded size of their entries; appends that overflow the
// capacity delete the oldest entries in the same batch.
type Store struct {
	db           *pebble.DB
	writeOpts    *pebble.WriteOptions
	awaitTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	logs    map[string]*logState
	closed  bool
	closeCh chan struct{}
}

type logState struct {
	maxBytes int64
	size     int64
	firstSeq uint64 // 0 when empty
	lastSeq  uint64
	notifyCh chan struct{}
}

// Open opens or creates the database in opts.DataDir.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, ErrDataDirRequired
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	writeOpts := pebble.NoSync
	switch opts.Fsync {
	case FsyncModeAlways:
		writeOpts = pebble.Sync
	case FsyncModeNever:
	default:
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = DefaultFsyncInterval
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
		writeOpts = pebble.Sync
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %q: %w", opts.DataDir, err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	await := opts.AwaitTimeout
	if await <= 0 {
		await = DefaultAwaitTimeout
	}

	return &Store{
		db:           db,
		writeOpts:    writeOpts,
		awaitTimeout: await,
		logger:       log.With(logger.Backend("pebble")),
		logs:         make(map[string]*logState),
		closeCh:      make(chan struct{}),
	}, nil
}

func validateName(name string) error {
	if name == "" {
		return tailqueue.ErrEmptyName
	}
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("pebblestore: log name %q must not contain '/'", name)
	}
	return nil
}

// state returns the cached state of name, loading it from disk on first use.
// The boolean is false when the log does not exist. Callers hold s.mu.
func (s *Store) state(name string) (*logState, bool, error) {
	if s.closed {
		return nil, false, tailqueue.ErrStoreClosed
	}
	if st, ok := s.logs[name]; ok {
		return st, true, nil
	}

	raw, closer, err := s.db.Get(keyMeta(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	maxBytes, lastSeq, ok := decodeMeta(raw)
	closer.Close()
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrCorruptMeta, name)
	}

	st := &logState{maxBytes: maxBytes, lastSeq: lastSeq, notifyCh: make(chan struct{})}
	lower, upper := entryBounds(name)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, false, err
	}
	defer iter.Close()
	for valid := iter.First(); valid; valid = iter.Next() {
		if st.firstSeq == 0 {
			st.firstSeq = seqFromKey(iter.Key())
		}
		st.size += int64(len(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return nil, false, err
	}

	s.logs[name] = st
	return st, true, nil
}

// LogExists reports whether the log metadata exists.
func (s *Store) LogExists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.state(name)
	return ok, err
}

// CreateLog writes the log metadata.
func (s *Store) CreateLog(ctx context.Context, name string, maxBytes int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	if maxBytes <= 0 {
		return tailqueue.ErrInvalidMaxBytes
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.state(name); err != nil {
		return err
	} else if ok {
		return tailqueue.ErrLogExists
	}
	if err := s.db.Set(keyMeta(name), encodeMeta(maxBytes, 0), s.writeOpts); err != nil {
		return err
	}
	s.logs[name] = &logState{maxBytes: maxBytes, notifyCh: make(chan struct{})}

	s.logger.InfoContext(ctx, "log created",
		logger.Queue(name),
		logger.Capacity(maxBytes))
	return nil
}

// Append writes rec and trims the oldest entries until the log fits its
// capacity, all in one batch.
func (s *Store) Append(ctx context.Context, name string, rec tailqueue.Record) (tailqueue.Position, error) {
	val := encodeEntry(rec.EnqueuedAt, rec.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok, err := s.state(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", tailqueue.ErrLogNotFound
	}
	if int64(len(val)) > st.maxBytes {
		return "", tailqueue.ErrRecordTooLarge
	}

	b := s.db.NewBatch()
	defer b.Close()

	seq := st.lastSeq + 1
	if err := b.Set(keyEntry(name, seq), val, nil); err != nil {
		return "", err
	}
	if err := b.Set(keyMeta(name), encodeMeta(st.maxBytes, seq), nil); err != nil {
		return "", err
	}

	size := st.size + int64(len(val))
	firstSeq := st.firstSeq
	if firstSeq == 0 {
		firstSeq = seq
	}
	trimmed := 0
	if size > st.maxBytes {
		lower, upper := entryBounds(name)
		iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
		if err != nil {
			return "", err
		}
		for valid := iter.First(); valid && size > st.maxBytes; valid = iter.Next() {
			if err := b.Delete(iter.Key(), nil); err != nil {
				iter.Close()
				return "", err
			}
			size -= int64(len(iter.Value()))
			firstSeq = seqFromKey(iter.Key()) + 1
			trimmed++
		}
		if err := iter.Close(); err != nil {
			return "", err
		}
	}

	if err := b.Commit(s.writeOpts); err != nil {
		return "", err
	}

	st.lastSeq = seq
	st.size = size
	st.firstSeq = firstSeq
	if trimmed > 0 {
		s.logger.DebugContext(ctx, "trimmed oldest entries",
			logger.Queue(name),
			logger.Count("count", int64(trimmed)))
	}

	// Wake up tailing cursors.
	close(st.notifyCh)
	st.notifyCh = make(chan struct{})

	return formatSeq(seq), nil
}

// Tail opens a cursor after the position. A cursor with nothing to read at
// open time is returned dead, like a tailable cursor on a capped collection.
func (s *Store) Tail(ctx context.Context, name string, after tailqueue.Position) (tailqueue.Cursor, error) {
	seq, err := parseSeq(after)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok, err := s.state(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, tailqueue.ErrLogNotFound
	}

	c := &cursor{store: s, name: name, seq: seq}
	if st.firstSeq == 0 || seq >= st.lastSeq {
		c.dead = true
		return c, nil
	}
	// Records between after and the oldest survivor were trimmed already.
	if seq < st.firstSeq-1 {
		c.seq = st.firstSeq - 1
	}
	return c, nil
}

// LoadPosition reads the position stored for key.
func (s *Store) LoadPosition(ctx context.Context, key string) (tailqueue.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, tailqueue.ErrStoreClosed
	}
	raw, closer, err := s.db.Get(keyPosition(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer closer.Close()
	return tailqueue.Position(raw), true, nil
}

// SavePosition stores pos for key.
func (s *Store) SavePosition(ctx context.Context, key string, pos tailqueue.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tailqueue.ErrStoreClosed
	}
	return s.db.Set(keyPosition(key), []byte(pos), s.writeOpts)
}

// Len returns the number of entries currently held by the named log.
func (s *Store) Len(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok, err := s.state(name)
	if err != nil || !ok || st.firstSeq == 0 {
		return 0
	}
	return int(st.lastSeq - st.firstSeq + 1)
}

// Healthcheck reports whether the store is open.
func (s *Store) Healthcheck(ctx context.Context) error {
	if s.isClosed() {
		return errors.Join(ErrHealthcheckFailed, tailqueue.ErrStoreClosed)
	}
	return nil
}

// Close wakes up waiting cursors and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeCh)
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func formatSeq(seq uint64) tailqueue.Position {
	return tailqueue.Position(strconv.FormatUint(seq, 10))
}

func parseSeq(p tailqueue.Position) (uint64, error) {
	if p.IsZero() {
		return 0, nil
	}
	seq, err := strconv.ParseUint(string(p), 10, 64)
	if err != nil {
		return 0, errors.Join(tailqueue.ErrInvalidPosition, err)
	}
	return seq, nil
}
