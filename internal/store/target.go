package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/idealo/mongobench/internal/bench"
	"github.com/idealo/mongobench/internal/config"
)

const appName = "mongobench"

// Target runs the benchmark operations against one MongoDB collection.
type Target struct {
	client   ClientAPI
	coll     CollectionAPI
	writes   CollectionAPI
	queries  *QueryGenerator
	inserted metrics.Meter
}

var _ bench.Target = (*Target)(nil)

// NewTarget returns a Target. writes is the handle inserts go through, it
// carries the configured write concern; coll serves everything else. A nil
// meter disables insert rate tracking.
func NewTarget(client ClientAPI, coll, writes CollectionAPI, queries *QueryGenerator, inserted metrics.Meter) *Target {
	if inserted == nil {
		inserted = metrics.NilMeter{}
	}
	return &Target{
		client:   client,
		coll:     coll,
		writes:   writes,
		queries:  queries,
		inserted: inserted,
	}
}

// WriteConcern maps a durability level to a write concern: w:0 for fast,
// w:1 with j:true for durable.
func WriteConcern(d config.Durability) *writeconcern.WriteConcern {
	if d == config.DurabilityDurable {
		journaled := true
		return &writeconcern.WriteConcern{W: 1, Journal: &journaled}
	}
	return writeconcern.Unacknowledged()
}

// ClientOptions builds the driver options used to reach server.
func ClientOptions(cfg config.Config, server config.Server) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(server.URI).
		SetAppName(appName).
		SetMinPoolSize(uint64(cfg.Threads))
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).
			SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	return opts
}

// Connect opens a client for server. The connection itself is established
// lazily, reachability is checked by Ping.
func Connect(ctx context.Context, cfg config.Config, server config.Server, inserted metrics.Meter) (*Target, error) {
	client, err := mongo.Connect(ctx, ClientOptions(cfg, server))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", server.Label)
	}

	db := client.Database(cfg.Database)
	coll := db.Collection(cfg.Collection)
	writes := db.Collection(cfg.Collection, options.Collection().SetWriteConcern(WriteConcern(cfg.Durability)))

	log.WithFields(log.Fields{"server": server.Label, "durability": cfg.Durability}).
		Debugf("Client created for [%s.%s]", cfg.Database, cfg.Collection)

	return NewTarget(client,
		&MongoDBCollection{Collection: coll},
		&MongoDBCollection{Collection: writes},
		NewQueryGenerator(cfg.Seed),
		inserted,
	), nil
}

// Connector adapts Connect to bench.Connector.
func Connector(cfg config.Config, inserted metrics.Meter) bench.Connector {
	return func(ctx context.Context, server config.Server) (bench.Target, error) {
		t, err := Connect(ctx, cfg, server, inserted)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func (t *Target) Ping(ctx context.Context) error {
	return errors.Wrap(t.client.Ping(ctx, readpref.Primary()), "ping")
}

// Clear drops the collection together with its indexes. Dropping a missing
// collection succeeds.
func (t *Target) Clear(ctx context.Context) error {
	return errors.Wrap(t.coll.Drop(ctx), "drop collection")
}

// Insert writes docs one at a time and stops at the first failure.
func (t *Target) Insert(ctx context.Context, docs []interface{}) error {
	for _, doc := range docs {
		_, err := t.writes.InsertOne(ctx, doc)
		if err != nil && !errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return errors.Wrap(err, "insert")
		}
		t.inserted.Mark(1)
	}
	return nil
}

// PointQuery looks up one post of a random author. Finding nothing is not an
// error.
func (t *Target) PointQuery(ctx context.Context) error {
	_, err := t.coll.FindOne(ctx, t.queries.PointFilter()).Raw()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(err, "point query")
	}
	return nil
}

// FilterQuery reads every post whose author matches a regular expression.
func (t *Target) FilterQuery(ctx context.Context) error {
	cursor, err := t.coll.Find(ctx, t.queries.RegexFilter())
	if err != nil {
		return errors.Wrap(err, "filter query")
	}
	_, err = drain(ctx, cursor)
	return errors.Wrap(err, "filter query")
}

func (t *Target) TagAggregation(ctx context.Context) error {
	return t.aggregate(ctx, "tag aggregation", t.queries.TagCountPipeline())
}

func (t *Target) CommentAggregation(ctx context.Context) error {
	return t.aggregate(ctx, "comment aggregation", t.queries.CommentAuthorPipeline())
}

func (t *Target) aggregate(ctx context.Context, name string, pipeline mongo.Pipeline) error {
	cursor, err := t.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return errors.Wrap(err, name)
	}
	_, err = drain(ctx, cursor)
	return errors.Wrap(err, name)
}

// CreateIndexes builds one ascending single-field index per field.
func (t *Target) CreateIndexes(ctx context.Context, fields []string) error {
	models := make([]mongo.IndexModel, 0, len(fields))
	for _, field := range fields {
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
	}
	_, err := t.coll.CreateIndexes(ctx, models)
	return errors.Wrap(err, "create indexes")
}

func (t *Target) Close(ctx context.Context) error {
	return errors.Wrap(t.client.Disconnect(ctx), "disconnect")
}
