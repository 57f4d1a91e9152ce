package tailqueue_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

// MockLogStore is a mock implementation of tailqueue.LogStore
type MockLogStore struct {
	mock.Mock
}

func (m *MockLogStore) LogExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockLogStore) CreateLog(ctx context.Context, name string, maxBytes int64) error {
	args := m.Called(ctx, name, maxBytes)
	return args.Error(0)
}

func (m *MockLogStore) Append(ctx context.Context, name string, rec tailqueue.Record) (tailqueue.Position, error) {
	args := m.Called(ctx, name, rec)
	return args.Get(0).(tailqueue.Position), args.Error(1)
}

func (m *MockLogStore) Tail(ctx context.Context, name string, after tailqueue.Position) (tailqueue.Cursor, error) {
	args := m.Called(ctx, name, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tailqueue.Cursor), args.Error(1)
}

// MockPositionStore is a mock implementation of tailqueue.PositionStore
type MockPositionStore struct {
	mock.Mock
}

func (m *MockPositionStore) LoadPosition(ctx context.Context, key string) (tailqueue.Position, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(tailqueue.Position), args.Bool(1), args.Error(2)
}

func (m *MockPositionStore) SavePosition(ctx context.Context, key string, pos tailqueue.Position) error {
	args := m.Called(ctx, key, pos)
	return args.Error(0)
}

// Test payload types
type ExampleMessage struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type Wrapper[T any] struct {
	Value T `json:"value"`
}
