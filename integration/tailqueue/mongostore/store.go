package mongostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/dmitrymomot/tailqueue/core/logger"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

const (
	// DefaultPositionsCollection holds one document per consumer key.
	DefaultPositionsCollection = "_queueIndex"

	// DefaultMaxAwaitTime bounds how long a getMore waits for new documents.
	DefaultMaxAwaitTime = time.Second

	// MongoDB NamespaceExists
	codeNamespaceExists = 48
)

// Store implements tailqueue.Store on MongoDB. Each log is a capped
// collection read through tailable await cursors; positions live in a
// separate collection keyed by consumer.
type Store struct {
	db              *mongo.Database
	positions       *mongo.Collection
	positionsName   string
	positionsWC     *writeconcern.WriteConcern
	maxAwaitTime    time.Duration
	documentPayload bool
	logger          *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPositionsCollection overrides the collection used for positions.
func WithPositionsCollection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.positionsName = name
		}
	}
}

// WithMaxAwaitTime sets how long the server blocks a cursor waiting for data.
func WithMaxAwaitTime(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAwaitTime = d
		}
	}
}

// WithUnacknowledgedCheckpoints writes positions with w:0. Checkpoints get
// cheaper and may be lost silently.
func WithUnacknowledgedCheckpoints() Option {
	return func(s *Store) {
		s.positionsWC = writeconcern.Unacknowledged()
	}
}

// WithDocumentPayloads stores payloads as embedded documents. The queue must
// use BSONCodec.
func WithDocumentPayloads() Option {
	return func(s *Store) {
		s.documentPayload = true
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

// New creates a store on db. It panics if db is nil; use NewStore to get an error instead.
func New(db *mongo.Database, opts ...Option) *Store {
	s, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewStore creates a store on db.
func NewStore(db *mongo.Database, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDatabaseNil
	}
	s := &Store{
		db:            db,
		positionsName: DefaultPositionsCollection,
		maxAwaitTime:  DefaultMaxAwaitTime,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	collOpts := options.Collection()
	if s.positionsWC != nil {
		collOpts.SetWriteConcern(s.positionsWC)
	}
	s.positions = db.Collection(s.positionsName, collOpts)
	s.logger = s.logger.With(logger.Backend("mongo"))
	return s, nil
}

type message struct {
	ID       bson.ObjectID `bson:"_id"`
	Enqueued time.Time     `bson:"enqueued"`
	Message  any           `bson:"message"`
}

type storedMessage struct {
	ID       bson.ObjectID `bson:"_id"`
	Enqueued time.Time     `bson:"enqueued"`
	Message  bson.RawValue `bson:"message"`
}

type position struct {
	ID   string        `bson:"_id"`
	Last bson.RawValue `bson:"last"`
}

// LogExists reports whether the capped collection exists.
func (s *Store) LogExists(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	return len(names) > 0, nil
}

// CreateLog creates a capped collection of maxBytes.
func (s *Store) CreateLog(ctx context.Context, name string, maxBytes int64) error {
	if maxBytes <= 0 {
		return tailqueue.ErrInvalidMaxBytes
	}
	opts := options.CreateCollection().SetCapped(true).SetSizeInBytes(maxBytes)
	if err := s.db.CreateCollection(ctx, name, opts); err != nil {
		var se mongo.ServerError
		if errors.As(err, &se) && se.HasErrorCode(codeNamespaceExists) {
			return tailqueue.ErrLogExists
		}
		return err
	}
	s.logger.InfoContext(ctx, "capped collection created",
		logger.Queue(name),
		logger.Capacity(maxBytes))
	return nil
}

// Append inserts rec. The ObjectID is generated client side and becomes the
// record position.
func (s *Store) Append(ctx context.Context, name string, rec tailqueue.Record) (tailqueue.Position, error) {
	doc := message{
		ID:       bson.NewObjectID(),
		Enqueued: rec.EnqueuedAt,
		Message:  bson.Binary{Subtype: bson.TypeBinaryGeneric, Data: rec.Payload},
	}
	if s.documentPayload {
		doc.Message = bson.Raw(rec.Payload)
	}
	if _, err := s.db.Collection(name).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return tailqueue.Position(doc.ID.Hex()), nil
}

// Tail opens a tailable await cursor over documents with _id after the
// position, in natural (insertion) order.
func (s *Store) Tail(ctx context.Context, name string, after tailqueue.Position) (tailqueue.Cursor, error) {
	filter := bson.D{}
	if !after.IsZero() {
		id, err := bson.ObjectIDFromHex(string(after))
		if err != nil {
			return nil, errors.Join(tailqueue.ErrInvalidPosition, err)
		}
		filter = bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: id}}}}
	}

	opts := options.Find().
		SetCursorType(options.TailableAwait).
		SetNoCursorTimeout(true).
		SetMaxAwaitTime(s.maxAwaitTime).
		SetSort(bson.D{{Key: "$natural", Value: 1}})

	cur, err := s.db.Collection(name).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur, logger: s.logger.With(logger.Queue(name))}, nil
}

// LoadPosition reads the position document for key.
func (s *Store) LoadPosition(ctx context.Context, key string) (tailqueue.Position, bool, error) {
	var doc position
	err := s.positions.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	switch doc.Last.Type {
	case bson.TypeObjectID:
		return tailqueue.Position(doc.Last.ObjectID().Hex()), true, nil
	case bson.TypeString:
		return tailqueue.Position(doc.Last.StringValue()), true, nil
	default:
		return "", false, fmt.Errorf("%w: position %q has type %s", tailqueue.ErrInvalidPosition, key, doc.Last.Type)
	}
}

// SavePosition upserts {_id: key, last: pos}. Positions that are ObjectID
// hex strings are stored as ObjectIDs.
func (s *Store) SavePosition(ctx context.Context, key string, pos tailqueue.Position) error {
	var last any = string(pos)
	if id, err := bson.ObjectIDFromHex(string(pos)); err == nil {
		last = id
	}
	_, err := s.positions.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last", Value: last}}}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// Healthcheck pings the server.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

type cursor struct {
	cur     *mongo.Cursor
	logger  *slog.Logger
	current tailqueue.Record
	err     error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.TryNext(ctx) {
		if err := c.cur.Err(); err != nil && ctx.Err() == nil {
			c.err = err
		}
		return false
	}

	var doc storedMessage
	if err := c.cur.Decode(&doc); err != nil {
		id, ok := c.cur.Current.Lookup("_id").ObjectIDOK()
		if !ok {
			c.err = err
			return false
		}
		// Hand it on without a payload so the queue skips and checkpoints it.
		c.logger.WarnContext(ctx, "malformed document", logger.Error(err))
		c.current = tailqueue.Record{ID: tailqueue.Position(id.Hex())}
		return true
	}
	payload, err := payloadBytes(doc.Message)
	if err != nil {
		c.logger.WarnContext(ctx, "unexpected payload", logger.Error(err))
		payload = nil
	}
	c.current = tailqueue.Record{
		ID:         tailqueue.Position(doc.ID.Hex()),
		EnqueuedAt: doc.Enqueued,
		Payload:    payload,
	}
	return true
}

func (c *cursor) Record() tailqueue.Record {
	return c.current
}

// Dead reports whether the server closed the cursor. A tailable query that
// matched nothing returns a cursor with id 0.
func (c *cursor) Dead() bool {
	return c.err != nil || c.cur.ID() == 0
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

func payloadBytes(v bson.RawValue) ([]byte, error) {
	switch v.Type {
	case bson.TypeBinary:
		_, data := v.Binary()
		return data, nil
	case bson.TypeEmbeddedDocument:
		return v.Document(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedPayload, v.Type)
	}
}
