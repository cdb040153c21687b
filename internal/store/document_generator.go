package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	authors = []string{
		"Alice Example", "John Doe", "Maria Sample", "Max Mustermann",
		"Sophie Miller", "Liam Johnson", "Emma Brown", "Noah Davis",
		"Olivia Wilson", "William Martinez", "Caryn Adams", "Aaron Lee",
	}
	tags = []string{"MongoDB", "Benchmark", "CMS", "Database", "Performance",
		"WebApp", "Scalability", "Indexing", "Query Optimization", "Sharding"}
	lorem = []string{
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		"Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.",
		"Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.",
		"Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum.",
	}
)

// DocumentGenerator produces blog posts with embedded comments. It is safe for
// concurrent use: every call to Documents draws from its own random source.
type DocumentGenerator struct {
	seed        int64
	minComments int
	maxComments int
	now         func() time.Time
}

// NewDocumentGenerator returns a generator giving every post between
// minComments and maxComments comments. With a non-zero seed the documents
// produced for a given worker are reproducible.
func NewDocumentGenerator(seed int64, minComments, maxComments int) *DocumentGenerator {
	return &DocumentGenerator{
		seed:        seed,
		minComments: minComments,
		maxComments: maxComments,
		now:         time.Now,
	}
}

// Documents returns n posts for the given worker.
func (g *DocumentGenerator) Documents(worker, n int) []interface{} {
	seed := g.seed
	if seed != 0 {
		seed += int64(worker) + 1
	}
	r := NewRandomizer(seed)

	docs := make([]interface{}, n)
	for i := range docs {
		docs[i] = g.generatePost(r)
	}
	return docs
}

func (g *DocumentGenerator) generatePost(r *Randomizer) bson.M {
	numComments := r.Between(g.minComments, g.maxComments)
	comments := make(bson.A, 0, numComments)
	for i := 0; i < numComments; i++ {
		comments = append(comments, bson.M{
			"author": r.Pick(authors),
			"text":   generateLoremIpsum(r, 80),
			"date":   g.randomDate(r),
		})
	}

	return bson.M{
		"author":   r.Pick(authors),
		"title":    generateLoremIpsum(r, 30),
		"text":     generateLoremIpsum(r, 500+r.RandomIntn(1500)),
		"tags":     r.Sample(tags, r.RandomIntn(3)+2), // 2 to 4 tags
		"comments": comments,
		"date":     g.randomDate(r),
		"rnd":      r.RandomInt63(),
	}
}

func (g *DocumentGenerator) randomDate(r *Randomizer) time.Time {
	return g.now().Add(-time.Duration(r.RandomIntn(365*2*24)) * time.Hour)
}

func generateLoremIpsum(r *Randomizer, minLen int) string {
	text := ""
	for len(text) < minLen {
		if r.Float32() < 0.1 { // 10% chance to insert a tag
			text += r.Pick(tags) + " "
		} else {
			text += r.Pick(lorem) + " "
		}
	}
	return text[:minLen]
}
