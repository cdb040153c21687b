package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/idealo/mongobench/internal/config"
)

type MockCollection struct {
	mock.Mock
}

func (m *MockCollection) InsertOne(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document)
	return args.Get(0).(*mongo.InsertOneResult), args.Error(1)
}

func (m *MockCollection) FindOne(ctx context.Context, filter interface{}) *mongo.SingleResult {
	args := m.Called(ctx, filter)
	return args.Get(0).(*mongo.SingleResult)
}

func (m *MockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func (m *MockCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, pipeline)
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func (m *MockCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	args := m.Called(ctx, models)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCollection) Drop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return m.Called(ctx, rp).Error(0)
}

func (m *MockClient) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func cursorOf(t *testing.T, n int) *mongo.Cursor {
	docs := make([]interface{}, n)
	for i := range docs {
		docs[i] = bson.D{{Key: "_id", Value: i}, {Key: "count", Value: i + 1}}
	}
	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)
	return cursor
}

func newTestTarget(coll, writes *MockCollection, meter metrics.Meter) (*Target, *MockClient) {
	client := new(MockClient)
	return NewTarget(client, coll, writes, NewQueryGenerator(42), meter), client
}

func TestInsertWritesEveryDocument(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	meter := metrics.NewMeter()
	defer meter.Stop()
	target, _ := newTestTarget(coll, writes, meter)

	writes.On("InsertOne", mock.Anything, mock.Anything).Return(&mongo.InsertOneResult{}, nil)

	docs := NewDocumentGenerator(1, 0, 3).Documents(0, 10)
	require.NoError(t, target.Insert(context.Background(), docs))

	writes.AssertNumberOfCalls(t, "InsertOne", 10)
	coll.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
	assert.Equal(t, int64(10), meter.Count())
}

func TestInsertTreatsUnacknowledgedAsSuccess(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)

	writes.On("InsertOne", mock.Anything, mock.Anything).Return((*mongo.InsertOneResult)(nil), mongo.ErrUnacknowledgedWrite)

	require.NoError(t, target.Insert(context.Background(), []interface{}{bson.M{}, bson.M{}}))
	writes.AssertNumberOfCalls(t, "InsertOne", 2)
}

func TestInsertStopsAtFirstFailure(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)
	boom := errors.New("boom")

	writes.On("InsertOne", mock.Anything, mock.Anything).Return(&mongo.InsertOneResult{}, nil).Once()
	writes.On("InsertOne", mock.Anything, mock.Anything).Return((*mongo.InsertOneResult)(nil), boom).Once()

	err := target.Insert(context.Background(), []interface{}{bson.M{}, bson.M{}, bson.M{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	writes.AssertNumberOfCalls(t, "InsertOne", 2)
}

func TestClearIsIdempotent(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)

	coll.On("Drop", mock.Anything).Return(nil)

	require.NoError(t, target.Clear(context.Background()))
	require.NoError(t, target.Clear(context.Background()))
	coll.AssertNumberOfCalls(t, "Drop", 2)
}

func TestPointQueryAcceptsNoDocuments(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)

	coll.On("FindOne", mock.Anything, mock.Anything).
		Return(mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)).Once()
	coll.On("FindOne", mock.Anything, mock.Anything).
		Return(mongo.NewSingleResultFromDocument(bson.D{{Key: "author", Value: "John Doe"}}, nil, nil)).Once()

	require.NoError(t, target.PointQuery(context.Background()))
	require.NoError(t, target.PointQuery(context.Background()))

	filter := coll.Calls[0].Arguments.Get(1).(bson.M)
	assert.Contains(t, authors, filter["author"])
}

func TestFilterQueryDrainsCursor(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)

	coll.On("Find", mock.Anything, mock.Anything).Return(cursorOf(t, 3), nil)

	require.NoError(t, target.FilterQuery(context.Background()))
	coll.AssertNumberOfCalls(t, "Find", 1)
}

func TestFilterQueryReportsFailure(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)

	coll.On("Find", mock.Anything, mock.Anything).Return((*mongo.Cursor)(nil), errors.New("no route"))

	err := target.FilterQuery(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter query")
}

func TestAggregationsUsePipelines(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)
	queries := NewQueryGenerator(1)

	coll.On("Aggregate", mock.Anything, queries.TagCountPipeline()).Return(cursorOf(t, 4), nil).Once()
	coll.On("Aggregate", mock.Anything, queries.CommentAuthorPipeline()).Return(cursorOf(t, 2), nil).Once()

	require.NoError(t, target.TagAggregation(context.Background()))
	require.NoError(t, target.CommentAggregation(context.Background()))
	coll.AssertExpectations(t)
}

func TestCreateIndexesOnePerField(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, _ := newTestTarget(coll, writes, nil)

	coll.On("CreateIndexes", mock.Anything, mock.Anything).Return([]string{"author_1", "tags_1"}, nil)

	require.NoError(t, target.CreateIndexes(context.Background(), []string{"author", "tags"}))

	models := coll.Calls[0].Arguments.Get(1).([]mongo.IndexModel)
	require.Len(t, models, 2)
	assert.Equal(t, bson.D{{Key: "author", Value: 1}}, models[0].Keys)
	assert.Equal(t, bson.D{{Key: "tags", Value: 1}}, models[1].Keys)
}

func TestPingAndClose(t *testing.T) {
	coll, writes := new(MockCollection), new(MockCollection)
	target, client := newTestTarget(coll, writes, nil)
	down := errors.New("server selection timeout")

	client.On("Ping", mock.Anything, mock.Anything).Return(down)
	client.On("Disconnect", mock.Anything).Return(nil)

	err := target.Ping(context.Background())
	assert.True(t, errors.Is(err, down))
	assert.NoError(t, target.Close(context.Background()))
}

func TestWriteConcern(t *testing.T) {
	durable := WriteConcern(config.DurabilityDurable)
	assert.Equal(t, 1, durable.W)
	require.NotNil(t, durable.Journal)
	assert.True(t, *durable.Journal)
	assert.True(t, durable.Acknowledged())

	fast := WriteConcern(config.DurabilityFast)
	assert.Equal(t, 0, fast.W)
	assert.False(t, fast.Acknowledged())
}

func TestClientOptions(t *testing.T) {
	cfg := config.Config{Threads: 4, ConnectTimeout: 5 * time.Second}
	opts := ClientOptions(cfg, config.Server{Label: "a", URI: "mongodb://db.example:27017"})

	require.NoError(t, opts.Validate())
	assert.Equal(t, []string{"db.example:27017"}, opts.Hosts)
	assert.Equal(t, appName, *opts.AppName)
	assert.Equal(t, uint64(4), *opts.MinPoolSize)
	assert.Equal(t, 5*time.Second, *opts.ServerSelectionTimeout)
}
