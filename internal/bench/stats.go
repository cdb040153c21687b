package bench

import (
	"github.com/montanaflynn/stats"
)

// Stat summarizes a population of samples. OK is false when the population
// was empty or every contributing operation failed.
type Stat struct {
	Mean   float64
	Median float64
	Max    float64
	Count  int
	OK     bool
}

// Value returns the mean, or ErrNoData.
func (s Stat) Value() (float64, error) {
	if !s.OK {
		return 0, ErrNoData
	}
	return s.Mean, nil
}

func (s Stat) scale(f float64) Stat {
	s.Mean *= f
	s.Median *= f
	s.Max *= f
	return s
}

func summarize(samples []float64) Stat {
	mean, err := stats.Mean(samples)
	if err != nil {
		return Stat{}
	}
	median, _ := stats.Median(samples)
	maximum, _ := stats.Max(samples)
	return Stat{Mean: mean, Median: median, Max: maximum, Count: len(samples), OK: true}
}

// QueryStatistics holds the duration, in seconds, of each composite
// sub-operation.
type QueryStatistics struct {
	PointQuery         Stat
	FilterQuery        Stat
	TagAggregation     Stat
	CommentAggregation Stat
}

// ByKind returns the statistic of one sub-operation kind.
func (q QueryStatistics) ByKind(kind Kind) Stat {
	switch kind {
	case KindPointQuery:
		return q.PointQuery
	case KindFilterQuery:
		return q.FilterQuery
	case KindTagAggregation:
		return q.TagAggregation
	case KindCommentAggregation:
		return q.CommentAggregation
	}
	return Stat{}
}

// Statistics are the derived metrics of a set of results. Durations are in
// seconds, throughput in records per second.
type Statistics struct {
	Server  string
	Threads int

	InsertsPerThreadSecond Stat
	// InsertsPerSecond is InsertsPerThreadSecond multiplied by the thread
	// count. It assumes linear scaling and is not a measured aggregate.
	InsertsPerSecond Stat

	CreateIndex Stat
	Unindexed   QueryStatistics
	Indexed     QueryStatistics

	// Failed counts failed measurements; they are excluded from every Stat.
	Failed int
	// Unmeasured counts successful inserts whose duration was below the clock
	// resolution. They carry no throughput and are excluded from the insert
	// Stats.
	Unmeasured int
}

// Aggregate computes statistics over results. It only reads them.
func Aggregate(results []*Result, threads int) Statistics {
	var inserts, indexes []float64
	var failed, unmeasured int
	unindexed := map[Kind][]float64{}
	indexed := map[Kind][]float64{}

	for _, r := range results {
		if r == nil {
			continue
		}
		switch r.Kind {
		case KindInsert:
			if r.Failed() {
				failed++
				continue
			}
			secs := r.Duration.Seconds()
			if secs <= 0 {
				unmeasured++
				continue
			}
			inserts = append(inserts, float64(r.Records)/secs)
		case KindCreateIndex:
			if r.Failed() {
				failed++
				continue
			}
			indexes = append(indexes, r.Duration.Seconds())
		case KindComposite:
			target := unindexed
			if r.Indexed() {
				target = indexed
			}
			for _, sub := range r.Sub {
				if sub.Failed() {
					failed++
					continue
				}
				target[sub.Kind] = append(target[sub.Kind], sub.Duration.Seconds())
			}
		default:
			if r.Failed() {
				failed++
			}
		}
	}

	perThread := summarize(inserts)
	return Statistics{
		Threads:                threads,
		InsertsPerThreadSecond: perThread,
		InsertsPerSecond:       perThread.scale(float64(threads)),
		CreateIndex:            summarize(indexes),
		Unindexed:              queryStatistics(unindexed),
		Indexed:                queryStatistics(indexed),
		Failed:                 failed,
		Unmeasured:             unmeasured,
	}
}

func queryStatistics(samples map[Kind][]float64) QueryStatistics {
	return QueryStatistics{
		PointQuery:         summarize(samples[KindPointQuery]),
		FilterQuery:        summarize(samples[KindFilterQuery]),
		TagAggregation:     summarize(samples[KindTagAggregation]),
		CommentAggregation: summarize(samples[KindCommentAggregation]),
	}
}

// Statistics returns one set of statistics per benchmarked server, in
// execution order.
func (m *MultiRunResult) Statistics() []Statistics {
	servers := m.Servers()
	all := make([]Statistics, 0, len(servers))
	for _, server := range servers {
		s := Aggregate(m.Results(server), m.Threads)
		s.Server = server
		all = append(all, s)
	}
	return all
}

// Overall returns statistics over the results of every server.
func (m *MultiRunResult) Overall() Statistics {
	return Aggregate(m.Results(""), m.Threads)
}
