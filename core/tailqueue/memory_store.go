package tailqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrymomot/tailqueue/core/logger"
)

// DefaultAwaitTimeout is how long a MemoryStore cursor blocks in Next before
// reporting that nothing arrived.
const DefaultAwaitTimeout = time.Second

// MemoryStoreStats provides observability metrics for monitoring and tests.
type MemoryStoreStats struct {
	Logs        int // Number of created logs
	Records     int // Records currently held across all logs
	OpenCursors int // Cursors not yet closed
	Positions   int // Stored consumer positions
}

// MemoryStore implements Store in process memory for tests and local
// development. It reproduces the behavior of a capped collection with
// tailable cursors: each log keeps at most maxBytes of payload and drops the
// oldest records when full, and a cursor opened when no record matches is
// returned already dead.
type MemoryStore struct {
	mu        sync.Mutex
	logs      map[string]*memoryLog
	positions map[string]Position
	closed    bool

	awaitTimeout time.Duration
	logger       *slog.Logger
}

type memoryLog struct {
	maxBytes int64
	size     int64
	lastSeq  uint64
	records  []memoryRecord
	notifyCh chan struct{}
	cursors  map[*memoryCursor]struct{}
}

type memoryRecord struct {
	seq uint64
	rec Record
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithAwaitTimeout sets how long Cursor.Next blocks waiting for new records.
func WithAwaitTimeout(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if d > 0 {
			ms.awaitTimeout = d
		}
	}
}

// WithMemoryStoreLogger sets the logger for internal operations.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		logs:         make(map[string]*memoryLog),
		positions:    make(map[string]Position),
		awaitTimeout: DefaultAwaitTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// LogExists reports whether name has been created.
func (ms *MemoryStore) LogExists(ctx context.Context, name string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return false, ErrStoreClosed
	}
	_, ok := ms.logs[name]
	return ok, nil
}

// CreateLog creates a bounded log. A second call for the same name returns ErrLogExists.
func (ms *MemoryStore) CreateLog(ctx context.Context, name string, maxBytes int64) error {
	if maxBytes <= 0 {
		return ErrInvalidMaxBytes
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	if _, ok := ms.logs[name]; ok {
		return ErrLogExists
	}

	ms.logs[name] = &memoryLog{
		maxBytes: maxBytes,
		notifyCh: make(chan struct{}),
		cursors:  make(map[*memoryCursor]struct{}),
	}
	ms.logger.DebugContext(ctx, "log created",
		logger.Queue(name),
		logger.Capacity(maxBytes))
	return nil
}

// Append stores rec at the end of the log, evicting the oldest records until
// the log fits its capacity again.
func (ms *MemoryStore) Append(ctx context.Context, name string, rec Record) (Position, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return "", ErrStoreClosed
	}
	l, ok := ms.logs[name]
	if !ok {
		return "", ErrLogNotFound
	}

	size := int64(len(rec.Payload))
	if size > l.maxBytes {
		return "", ErrRecordTooLarge
	}

	l.lastSeq++
	rec.ID = formatSeq(l.lastSeq)
	rec.Payload = append([]byte(nil), rec.Payload...)
	l.records = append(l.records, memoryRecord{seq: l.lastSeq, rec: rec})
	l.size += size

	evicted := 0
	for l.size > l.maxBytes && len(l.records) > 0 {
		l.size -= int64(len(l.records[0].rec.Payload))
		l.records[0] = memoryRecord{}
		l.records = l.records[1:]
		evicted++
	}
	if evicted > 0 {
		ms.logger.DebugContext(ctx, "evicted oldest records",
			logger.Queue(name),
			logger.Count("count", int64(evicted)))
	}

	// Wake up tailing cursors.
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})

	return rec.ID, nil
}

// Tail opens a cursor over records after the given position. When no record
// matches at open time the cursor is returned dead.
func (ms *MemoryStore) Tail(ctx context.Context, name string, after Position) (Cursor, error) {
	seq, err := parseSeq(after)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}
	l, ok := ms.logs[name]
	if !ok {
		return nil, ErrLogNotFound
	}

	c := &memoryCursor{
		store:  ms,
		name:   name,
		seq:    seq,
		killCh: make(chan struct{}),
	}
	first, _, found := l.after(seq)
	if !found {
		c.dead = true
		return c, nil
	}
	// Start right before the oldest match; records between after and it may
	// have been evicted already.
	c.seq = first.seq - 1
	l.cursors[c] = struct{}{}
	return c, nil
}

// LoadPosition returns the stored position for key.
func (ms *MemoryStore) LoadPosition(ctx context.Context, key string) (Position, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return "", false, ErrStoreClosed
	}
	pos, ok := ms.positions[key]
	return pos, ok, nil
}

// SavePosition upserts the position for key.
func (ms *MemoryStore) SavePosition(ctx context.Context, key string, pos Position) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	ms.positions[key] = pos
	return nil
}

// KillCursors invalidates every open cursor on the named log, the way a
// server kills cursors on failover. It returns the number of cursors killed.
func (ms *MemoryStore) KillCursors(name string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	l, ok := ms.logs[name]
	if !ok {
		return 0
	}
	n := 0
	for c := range l.cursors {
		c.kill()
		delete(l.cursors, c)
		n++
	}
	return n
}

// Len returns the number of records currently held by the named log.
func (ms *MemoryStore) Len(name string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if l, ok := ms.logs[name]; ok {
		return len(l.records)
	}
	return 0
}

// Stats returns current store statistics.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stats := MemoryStoreStats{
		Logs:      len(ms.logs),
		Positions: len(ms.positions),
	}
	for _, l := range ms.logs {
		stats.Records += len(l.records)
		stats.OpenCursors += len(l.cursors)
	}
	return stats
}

// Healthcheck returns an error once the store has been closed.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return errors.Join(ErrHealthcheckFailed, ErrStoreClosed)
	}
	return nil
}

// Close kills all cursors and rejects further operations.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return nil
	}
	ms.closed = true
	for _, l := range ms.logs {
		for c := range l.cursors {
			c.kill()
		}
		l.cursors = make(map[*memoryCursor]struct{})
	}
	return nil
}

// after returns the first record with a sequence greater than seq. lost is
// true when the record right after seq has already been evicted.
func (l *memoryLog) after(seq uint64) (rec memoryRecord, lost bool, found bool) {
	i := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].seq > seq
	})
	if i == len(l.records) {
		return memoryRecord{}, false, false
	}
	rec = l.records[i]
	return rec, seq > 0 && rec.seq > seq+1, true
}

type memoryCursor struct {
	store *MemoryStore
	name  string
	seq   uint64

	current Record
	dead    bool
	err     error

	killOnce sync.Once
	killCh   chan struct{}
}

func (c *memoryCursor) kill() {
	c.killOnce.Do(func() { close(c.killCh) })
}

func (c *memoryCursor) Next(ctx context.Context) bool {
	if c.dead || c.err != nil {
		return false
	}

	timer := time.NewTimer(c.store.awaitTimeout)
	defer timer.Stop()

	for {
		c.store.mu.Lock()
		select {
		case <-c.killCh:
			c.store.mu.Unlock()
			c.fail(ErrCursorKilled)
			return false
		default:
		}

		l, ok := c.store.logs[c.name]
		if !ok || c.store.closed {
			c.store.mu.Unlock()
			c.fail(ErrLogNotFound)
			return false
		}

		rec, lost, found := l.after(c.seq)
		if lost {
			c.store.mu.Unlock()
			c.fail(ErrPositionLost)
			return false
		}
		if found {
			c.seq = rec.seq
			c.current = rec.rec
			c.store.mu.Unlock()
			return true
		}
		notify := l.notifyCh
		c.store.mu.Unlock()

		select {
		case <-ctx.Done():
			return false
		case <-c.killCh:
			c.fail(ErrCursorKilled)
			return false
		case <-timer.C:
			return false
		case <-notify:
		}
	}
}

func (c *memoryCursor) fail(err error) {
	c.err = err
	c.dead = true
}

func (c *memoryCursor) Record() Record {
	return c.current
}

func (c *memoryCursor) Dead() bool {
	return c.dead
}

func (c *memoryCursor) Err() error {
	return c.err
}

func (c *memoryCursor) Close(ctx context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if l, ok := c.store.logs[c.name]; ok {
		delete(l.cursors, c)
	}
	c.dead = true
	return nil
}

func formatSeq(seq uint64) Position {
	return Position(strconv.FormatUint(seq, 10))
}

func parseSeq(p Position) (uint64, error) {
	if p.IsZero() {
		return 0, nil
	}
	seq, err := strconv.ParseUint(string(p), 10, 64)
	if err != nil {
		return 0, errors.Join(ErrInvalidPosition, err)
	}
	return seq, nil
}
