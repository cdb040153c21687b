package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionAPI defines the MongoDB collection operations the benchmark uses,
// allowing for testing
type CollectionAPI interface {
	InsertOne(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error)
	Drop(ctx context.Context) error
}

// ClientAPI is the part of *mongo.Client the benchmark uses.
type ClientAPI interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// MongoDBCollection is a wrapper around mongo.Collection to implement CollectionAPI
type MongoDBCollection struct {
	*mongo.Collection
}

func (c *MongoDBCollection) InsertOne(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
	return c.Collection.InsertOne(ctx, document)
}

func (c *MongoDBCollection) FindOne(ctx context.Context, filter interface{}) *mongo.SingleResult {
	return c.Collection.FindOne(ctx, filter)
}

func (c *MongoDBCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return c.Collection.Find(ctx, filter, opts...)
}

func (c *MongoDBCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	return c.Collection.Aggregate(ctx, pipeline, opts...)
}

func (c *MongoDBCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	return c.Collection.Indexes().CreateMany(ctx, models)
}

func (c *MongoDBCollection) Drop(ctx context.Context) error {
	return c.Collection.Drop(ctx)
}

// drain reads a cursor to the end and returns the number of documents read.
func drain(ctx context.Context, cursor *mongo.Cursor) (int, error) {
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		count++
	}
	return count, cursor.Err()
}
