package tailqueue

import (
	"context"
	"time"
)

// Position identifies a record within one bounded log. Its format belongs to
// the store that assigned it; the queue only hands it back to the same store.
// The zero value sorts before every record.
type Position string

// IsZero reports whether p is the minimum sentinel.
func (p Position) IsZero() bool {
	return p == ""
}

// String implements fmt.Stringer.
func (p Position) String() string {
	if p == "" {
		return "<start>"
	}
	return string(p)
}

// Record is the store-level form of an envelope. Payload holds the codec output.
type Record struct {
	ID         Position
	EnqueuedAt time.Time
	Payload    []byte
}

// Envelope is a decoded message together with its log metadata.
type Envelope[T any] struct {
	ID         Position
	EnqueuedAt time.Time
	Payload    T
}

// LogStore is the bounded log provider. Implementations own capacity
// enforcement, identifier assignment and live-tail blocking.
type LogStore interface {
	// LogExists reports whether the named log has been created.
	LogExists(ctx context.Context, name string) (bool, error)

	// CreateLog creates a bounded log holding at most maxBytes. It returns
	// ErrLogExists when another instance created it first.
	CreateLog(ctx context.Context, name string, maxBytes int64) error

	// Append writes rec at the end of the log and returns its new identifier.
	Append(ctx context.Context, name string, rec Record) (Position, error)

	// Tail opens a live cursor over records with an id greater than after,
	// oldest first.
	Tail(ctx context.Context, name string, after Position) (Cursor, error)
}

// Cursor is a live-tail iterator returned by LogStore.Tail.
type Cursor interface {
	// Next advances to the next record. It may block for a store-defined
	// await period and returns false when nothing arrived in that window,
	// when the cursor died or when an error occurred.
	Next(ctx context.Context) bool

	// Record returns the record Next advanced to.
	Record() Record

	// Dead reports whether the cursor can no longer produce records and has
	// to be reopened.
	Dead() bool

	// Err returns the error that stopped the last Next call, if any.
	Err() error

	// Close releases server-side resources held by the cursor.
	Close(ctx context.Context) error
}

// PositionStore persists the last delivered position per consumer key.
type PositionStore interface {
	// LoadPosition returns the stored position for key. The boolean is false
	// when nothing has been stored yet.
	LoadPosition(ctx context.Context, key string) (Position, bool, error)

	// SavePosition upserts the position for key.
	SavePosition(ctx context.Context, key string, pos Position) error
}

// Store combines both collaborators for backends that serve them from the
// same storage engine.
type Store interface {
	LogStore
	PositionStore
}
