package bench

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/idealo/mongobench/internal/config"
)

type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTarget) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTarget) Insert(ctx context.Context, docs []interface{}) error {
	return m.Called(ctx, docs).Error(0)
}

func (m *MockTarget) PointQuery(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTarget) FilterQuery(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTarget) TagAggregation(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTarget) CommentAggregation(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTarget) CreateIndexes(ctx context.Context, fields []string) error {
	return m.Called(ctx, fields).Error(0)
}

func (m *MockTarget) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// healthyTarget returns a target on which every call succeeds. Expectations
// registered on it beforehand take precedence.
func healthyTarget(m *MockTarget) *MockTarget {
	if m == nil {
		m = new(MockTarget)
	}
	for _, method := range []string{"Ping", "Clear", "PointQuery", "FilterQuery", "TagAggregation", "CommentAggregation", "Close"} {
		m.On(method, mock.Anything).Return(nil)
	}
	m.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.On("CreateIndexes", mock.Anything, mock.Anything).Return(nil)
	return m
}

type staticDocs struct{}

func (staticDocs) Documents(worker, n int) []interface{} {
	docs := make([]interface{}, n)
	for i := range docs {
		docs[i] = map[string]int{"worker": worker, "i": i}
	}
	return docs
}

func testConfig(threads int) config.Config {
	return config.Config{
		Threads:     threads,
		Runs:        1,
		Records:     10,
		Servers:     []config.Server{{Label: "local", URI: "mongodb://localhost:27017"}},
		Database:    "benchmarking",
		Collection:  "posts",
		IndexFields: []string{"author", "tags"},
		Durability:  config.DurabilityFast,
	}
}
