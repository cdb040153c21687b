package bench

import "time"

// Stopwatch measures elapsed wall-clock time on the monotonic clock. It can be
// started and stopped repeatedly; elapsed time accumulates until Reset.
type Stopwatch struct {
	now     func() time.Time
	started time.Time
	elapsed time.Duration
	running bool
}

// NewStopwatch returns a stopped Stopwatch reading zero.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{now: time.Now}
}

// Start begins measuring. Starting a running stopwatch has no effect.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.started = s.now()
	s.running = true
}

// Stop ends the current measurement and returns the total elapsed time.
func (s *Stopwatch) Stop() time.Duration {
	if s.running {
		s.elapsed += s.now().Sub(s.started)
		s.running = false
	}
	return s.elapsed
}

// Elapsed returns the accumulated time, including the current measurement
// when the stopwatch is running.
func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		return s.elapsed + s.now().Sub(s.started)
	}
	return s.elapsed
}

// Reset stops the stopwatch and clears the elapsed time.
func (s *Stopwatch) Reset() {
	s.elapsed = 0
	s.running = false
}
