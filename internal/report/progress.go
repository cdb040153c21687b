package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/idealo/mongobench/internal/bench"
)

const (
	failedMarker  = "FAILED"
	timeoutMarker = "TIMEOUT"
)

// Progress prints one tab separated line per measured operation as soon as it
// completes:
//
//	server  run  thread  seconds  benchmark
type Progress struct {
	mu sync.Mutex
	w  io.Writer
}

func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

func (p *Progress) Observe(server string, run, thread int, r *bench.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, leaf := range r.Leaves() {
		fmt.Fprintf(p.w, "%s\t%d\t%d\t%s\t%s\n", server, run, thread, elapsed(leaf), leaf.Name)
	}
}

// elapsed formats the duration of r in seconds, or a failure marker.
func elapsed(r *bench.Result) string {
	switch {
	case r.TimedOut():
		return timeoutMarker
	case r.Failed():
		return failedMarker
	}
	return fmt.Sprintf("%.4f", r.Duration.Seconds())
}
