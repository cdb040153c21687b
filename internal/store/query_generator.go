package store

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// authorPattern is matched by the filter query. It is unanchored, so it
// cannot be answered from an index alone.
const authorPattern = "A.*"

// QueryGenerator provides the filters and pipelines of the benchmark queries.
// It is safe for concurrent use.
type QueryGenerator struct {
	mu  sync.Mutex
	rnd *Randomizer
}

// NewQueryGenerator initializes a new QueryGenerator
func NewQueryGenerator(seed int64) *QueryGenerator {
	return &QueryGenerator{rnd: NewRandomizer(seed)}
}

// PointFilter returns an equality filter on a random known author.
func (g *QueryGenerator) PointFilter() bson.M {
	g.mu.Lock()
	defer g.mu.Unlock()
	return bson.M{"author": g.rnd.Pick(authors)}
}

// RegexFilter returns a regular expression filter on the author field.
func (g *QueryGenerator) RegexFilter() bson.M {
	return bson.M{"author": primitive.Regex{Pattern: authorPattern}}
}

// TagCountPipeline counts posts per tag.
func (g *QueryGenerator) TagCountPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// CommentAuthorPipeline counts comments per comment author.
func (g *QueryGenerator) CommentAuthorPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$comments"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$comments.author"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}
