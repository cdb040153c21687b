package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idealo/mongobench/internal/bench"
	"github.com/idealo/mongobench/internal/config"
)

func compositeResult(prefix string, failKind bench.Kind, failErr error) *bench.Result {
	r := &bench.Result{Name: prefix + string(bench.KindComposite), Kind: bench.KindComposite}
	for i, kind := range bench.CompositeKinds() {
		sub := &bench.Result{Name: prefix + string(kind), Kind: kind, Duration: time.Duration(i+1) * 100 * time.Millisecond}
		if kind == failKind {
			sub.Duration = 0
			sub.Err = &bench.OperationError{Operation: sub.Name, Err: failErr}
		}
		r.Sub = append(r.Sub, sub)
	}
	return r
}

func completeRun(server string, run int) *bench.ServerRunResult {
	return &bench.ServerRunResult{
		Server:  server,
		Run:     run,
		Threads: 1,
		State:   bench.StateComplete,
		Results: []*bench.Result{
			{Name: string(bench.KindInsert), Kind: bench.KindInsert, Duration: time.Second, Records: 100},
			compositeResult("", "", nil),
			{Name: string(bench.KindCreateIndex), Kind: bench.KindCreateIndex, Duration: 2 * time.Second},
			compositeResult(bench.IndexedPrefix, "", nil),
		},
	}
}

func failedRun(server string, run int) *bench.ServerRunResult {
	return &bench.ServerRunResult{
		Server:  server,
		Run:     run,
		Threads: 1,
		State:   bench.StateIdle,
		Results: make([]*bench.Result, 4),
		Err:     &bench.ConnectivityError{Server: server, Err: errors.New("connection refused")},
	}
}

func TestProgressLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	p.Observe("primary", 1, 2, &bench.Result{Name: "Insert", Kind: bench.KindInsert, Duration: 1500 * time.Millisecond})
	p.Observe("primary", 1, 1, compositeResult("Indexed ", bench.KindFilterQuery, bench.ErrTimeout))
	p.Observe("primary", 2, 1, &bench.Result{Name: "Created Indexes", Kind: bench.KindCreateIndex, Err: errors.New("boom")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "primary\t1\t2\t1.5000\tInsert", lines[0])
	assert.Equal(t, "primary\t1\t1\t0.1000\tIndexed Simple Query", lines[1])
	assert.Equal(t, "primary\t1\t1\tTIMEOUT\tIndexed Filter Query", lines[2])
	assert.Equal(t, "primary\t1\t1\t0.4000\tIndexed Comment Author Aggregation", lines[4])
	assert.Equal(t, "primary\t2\t1\tFAILED\tCreated Indexes", lines[5])
}

func TestTimersObserveLeaves(t *testing.T) {
	registry := metrics.NewRegistry()
	timers := NewTimers(registry)

	timers.Observe("a", 1, 1, compositeResult("", bench.KindPointQuery, errors.New("boom")))
	timers.Observe("a", 1, 2, compositeResult("", "", nil))

	assert.Equal(t, int64(1), timers.Timer("Simple Query").Count())
	assert.Equal(t, int64(1), timers.Failures("Simple Query"))
	assert.Equal(t, int64(2), timers.Timer("Filter Query").Count())
	assert.Equal(t, int64(200*time.Millisecond), timers.Timer("Filter Query").Max())
	assert.Zero(t, timers.Failures("Filter Query"))
	assert.Nil(t, timers.Timer("Insert"))

	timers.Log()
}

func TestRateRecorderFinalSample(t *testing.T) {
	meter := metrics.NewMeter()
	defer meter.Stop()
	meter.Mark(42)

	rec := NewRateRecorder(meter)
	rec.now = func() time.Time { return time.Unix(1700000000, 0) }

	records := rec.Stop()
	require.Len(t, records, 2)
	assert.Equal(t, rateHeader, records[0])
	assert.Equal(t, "1700000000", records[1][0])
	assert.Equal(t, "42", records[1][1])
}

func TestRateRecorderSamplesWhileRunning(t *testing.T) {
	meter := metrics.NewMeter()
	defer meter.Stop()

	rec := NewRateRecorder(meter)
	rec.interval = 5 * time.Millisecond
	rec.Start()
	meter.Mark(3)

	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.records) >= 3
	}, time.Second, 5*time.Millisecond)

	records := rec.Stop()
	assert.GreaterOrEqual(t, len(records), 4)
	assert.Equal(t, "3", records[len(records)-1][1])
}

func TestCollectorOrdersRows(t *testing.T) {
	c := NewCollector()
	c.Observe("b", 1, 1, &bench.Result{Name: "Insert", Kind: bench.KindInsert, Duration: time.Second})
	c.Observe("a", 2, 1, &bench.Result{Name: "Insert", Kind: bench.KindInsert, Duration: time.Second})
	c.Observe("b", 1, 3, &bench.Result{Name: "Insert", Kind: bench.KindInsert, Duration: time.Second})
	c.Observe("b", 1, 2, &bench.Result{Name: "Insert", Kind: bench.KindInsert, Err: bench.ErrTimeout})

	rows := c.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Thread, rows[1].Thread, rows[2].Thread})
	assert.Equal(t, "TIMEOUT", rows[1].Elapsed)
	assert.Equal(t, "a", rows[3].Server)
}

func TestWriteResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench_results.csv")
	rows := []Row{{Server: "a", Run: 1, Thread: 2, Elapsed: "0.1234", Benchmark: "Filter Query"}}

	require.NoError(t, WriteResults(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"server", "run", "thread", "time", "benchmark"},
		{"a", "1", "2", "0.1234", "Filter Query"},
	}, records)
}

func TestWriteCSVReportsBadPath(t *testing.T) {
	err := WriteRates(filepath.Join(t.TempDir(), "missing", "rates.csv"), [][]string{rateHeader})
	assert.Error(t, err)
}

func testConfig() config.Config {
	return config.Config{
		Threads:     1,
		Runs:        1,
		Records:     100,
		Servers:     []config.Server{{Label: "up", URI: "mongodb://up"}, {Label: "down", URI: "mongodb://down"}},
		Database:    "benchmarking",
		Collection:  "posts",
		IndexFields: []string{"author"},
		Durability:  config.DurabilityFast,
	}
}

func TestReportIncludesRunsAndStatistics(t *testing.T) {
	result := &bench.MultiRunResult{
		ID:      "run-id",
		Threads: 1,
		Records: 100,
		Runs:    []*bench.ServerRunResult{completeRun("up", 1), failedRun("down", 1)},
	}

	rep := NewReport(testConfig(), result)
	assert.True(t, rep.Succeeded)
	require.Len(t, rep.Runs, 2)
	assert.Equal(t, "complete", rep.Runs[0].State)
	assert.Equal(t, 4, rep.Runs[0].Populated)
	assert.Contains(t, rep.Runs[1].Error, "connection refused")

	require.Len(t, rep.Statistics, 2)
	assert.InDelta(t, 100.0, rep.Statistics[0].InsertsPerThreadSecond.Mean, 1e-9)
	assert.Nil(t, rep.Statistics[1].InsertsPerThreadSecond)
	assert.InDelta(t, 0.2, rep.Statistics[0].UnindexedSeconds["Filter Query"].Mean, 1e-9)
	require.NotNil(t, rep.Overall)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, rep))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-id", decoded["id"])
	assert.Equal(t, []interface{}{"up", "down"}, decoded["config"].(map[string]interface{})["servers"])
}

func TestReportOmitsStatisticsWithoutCompleteRun(t *testing.T) {
	result := &bench.MultiRunResult{ID: "x", Threads: 1, Runs: []*bench.ServerRunResult{failedRun("down", 1)}}

	rep := NewReport(testConfig(), result)
	assert.False(t, rep.Succeeded)
	assert.Empty(t, rep.Statistics)
	assert.Nil(t, rep.Overall)
}

func TestWriteStatisticsTable(t *testing.T) {
	result := &bench.MultiRunResult{Threads: 1, Runs: []*bench.ServerRunResult{completeRun("up", 1), failedRun("down", 1)}}

	var buf bytes.Buffer
	WriteStatistics(&buf, result.Statistics(), result.Overall())
	out := buf.String()

	assert.Contains(t, out, "Server up (1 threads)")
	assert.Contains(t, out, "Server down (1 threads)")
	assert.Contains(t, out, "Overall (1 threads)")
	assert.Contains(t, out, "Inserts per thread and second")
	assert.Contains(t, out, "100.0")
	assert.Contains(t, out, "Indexed Tag Count Aggregation (s)")
	assert.Contains(t, out, noData)
	assert.Contains(t, out, "Failed operations")
}
