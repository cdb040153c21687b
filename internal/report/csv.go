package report

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/idealo/mongobench/internal/bench"
)

var resultHeader = []string{"server", "run", "thread", "time", "benchmark"}

// Row is one measured operation.
type Row struct {
	Server    string
	Run       int
	Thread    int
	Elapsed   string
	Benchmark string
}

func (r Row) record() []string {
	return []string{r.Server, strconv.Itoa(r.Run), strconv.Itoa(r.Thread), r.Elapsed, r.Benchmark}
}

// Collector records a Row per measured operation it observes.
type Collector struct {
	mu   sync.Mutex
	rows []Row
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Observe(server string, run, thread int, r *bench.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, leaf := range r.Leaves() {
		c.rows = append(c.rows, Row{
			Server:    server,
			Run:       run,
			Thread:    thread,
			Elapsed:   elapsed(leaf),
			Benchmark: leaf.Name,
		})
	}
}

// Rows returns the collected rows ordered by server, run and thread. Rows of
// the same thread keep their completion order.
func (c *Collector) Rows() []Row {
	c.mu.Lock()
	rows := append([]Row(nil), c.rows...)
	c.mu.Unlock()

	order := map[string]int{}
	for _, r := range rows {
		if _, ok := order[r.Server]; !ok {
			order[r.Server] = len(order)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Server != b.Server {
			return order[a.Server] < order[b.Server]
		}
		if a.Run != b.Run {
			return a.Run < b.Run
		}
		return a.Thread < b.Thread
	})
	return rows
}

// WriteResults writes rows as CSV to path.
func WriteResults(path string, rows []Row) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, resultHeader)
	for _, r := range rows {
		records = append(records, r.record())
	}
	return writeCSV(path, records)
}

// WriteRates writes the records of a RateRecorder as CSV to path.
func WriteRates(path string, records [][]string) error {
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create CSV file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return errors.Wrapf(err, "failed to write records to %s", path)
	}
	return nil
}
