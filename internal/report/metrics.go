package report

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/idealo/mongobench/internal/bench"
)

// Timers keeps a go-metrics timer per benchmark name, and a counter of
// failures, for every measured operation it observes.
type Timers struct {
	registry metrics.Registry
}

// NewTimers registers its metrics in registry, or in a private registry when
// registry is nil.
func NewTimers(registry metrics.Registry) *Timers {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &Timers{registry: registry}
}

func (t *Timers) Observe(_ string, _, _ int, r *bench.Result) {
	for _, leaf := range r.Leaves() {
		if leaf.Failed() {
			metrics.GetOrRegisterCounter(leaf.Name+".failed", t.registry).Inc(1)
			continue
		}
		metrics.GetOrRegisterTimer(leaf.Name, t.registry).Update(leaf.Duration)
	}
}

// Timer returns the timer of a benchmark name, or nil if nothing was observed.
func (t *Timers) Timer(name string) metrics.Timer {
	timer, _ := t.registry.Get(name).(metrics.Timer)
	return timer
}

// Failures returns how many operations of a benchmark name failed.
func (t *Timers) Failures(name string) int64 {
	if c, ok := t.registry.Get(name + ".failed").(metrics.Counter); ok {
		return c.Count()
	}
	return 0
}

// Log writes a summary line per timer, in name order.
func (t *Timers) Log() {
	var names []string
	t.registry.Each(func(name string, i interface{}) {
		if _, ok := i.(metrics.Timer); ok {
			names = append(names, name)
		}
	})
	sort.Strings(names)

	for _, name := range names {
		s := t.Timer(name).Snapshot()
		log.WithField("benchmark", name).Infof("count: %d, mean: %.4fs, p95: %.4fs, max: %.4fs, failed: %d",
			s.Count(), s.Mean()/float64(time.Second), s.Percentile(0.95)/float64(time.Second),
			float64(s.Max())/float64(time.Second), t.Failures(name))
	}
}

var rateHeader = []string{"t", "count", "mean", "m1_rate", "m5_rate", "m15_rate"}

// RateRecorder samples an insert meter once per second, logging each sample
// and keeping it as a CSV record.
type RateRecorder struct {
	meter    metrics.Meter
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	records [][]string

	stop chan struct{}
	done chan struct{}
}

func NewRateRecorder(meter metrics.Meter) *RateRecorder {
	return &RateRecorder{
		meter:    meter,
		interval: time.Second,
		now:      time.Now,
		records:  [][]string{rateHeader},
	}
}

// Start begins sampling in the background.
func (r *RateRecorder) Start() {
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sample(true)
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop ends sampling, takes a final sample and returns every record, header
// first.
func (r *RateRecorder) Stop() [][]string {
	if r.stop != nil {
		close(r.stop)
		<-r.done
		r.stop = nil
	}
	r.sample(false)

	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.records...)
}

func (r *RateRecorder) sample(verbose bool) {
	timestamp := r.now().Unix()
	s := r.meter.Snapshot()

	if verbose {
		log.Debugf("Timestamp: %d, Document Count: %d, Mean Rate: %.2f docs/sec, m1_rate: %.2f, m5_rate: %.2f, m15_rate: %.2f",
			timestamp, s.Count(), s.RateMean(), s.Rate1(), s.Rate5(), s.Rate15())
	}

	record := []string{
		fmt.Sprintf("%d", timestamp),
		fmt.Sprintf("%d", s.Count()),
		fmt.Sprintf("%.6f", s.RateMean()),
		fmt.Sprintf("%.6f", s.Rate1()),
		fmt.Sprintf("%.6f", s.Rate5()),
		fmt.Sprintf("%.6f", s.Rate15()),
	}

	r.mu.Lock()
	r.records = append(r.records, record)
	r.mu.Unlock()
}
