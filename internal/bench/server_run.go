package bench

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/idealo/mongobench/internal/config"
)

// State is the progress of a server run. A run only moves forward.
type State int

const (
	StateIdle State = iota
	StateConnectivityChecked
	StateDatasetCleared
	StateInsertsDone
	StateUnindexedQueriesDone
	StateIndexBuilt
	StateIndexedQueriesDone
	StateComplete
)

var stateNames = [...]string{
	"idle",
	"connectivity-checked",
	"dataset-cleared",
	"inserts-done",
	"unindexed-queries-done",
	"index-built",
	"indexed-queries-done",
	"complete",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ServerRunResult holds the results of one pass against one server. Results
// always has 3*threads+1 slots:
//
//	[0, n)        inserts
//	[n, 2n)       composite queries without indexes
//	[2n]          index creation
//	[2n+1, 3n+1)  composite queries with indexes
//
// Slots of phases that never ran are nil.
type ServerRunResult struct {
	Server  string
	Run     int
	Threads int
	State   State
	Results []*Result
	Err     error
}

// Complete reports whether every phase ran.
func (r *ServerRunResult) Complete() bool {
	return r.State == StateComplete
}

// Populated returns the number of filled slots.
func (r *ServerRunResult) Populated() int {
	n := 0
	for _, res := range r.Results {
		if res != nil {
			n++
		}
	}
	return n
}

func (r *ServerRunResult) Inserts() []*Result {
	return r.Results[:r.Threads]
}

func (r *ServerRunResult) UnindexedQueries() []*Result {
	return r.Results[r.Threads : 2*r.Threads]
}

func (r *ServerRunResult) CreateIndex() *Result {
	return r.Results[2*r.Threads]
}

func (r *ServerRunResult) IndexedQueries() []*Result {
	return r.Results[2*r.Threads+1:]
}

// ServerRun performs one full benchmark pass against one server: connectivity
// check, dataset reset, concurrent inserts, concurrent composite queries,
// index creation and concurrent composite queries again.
type ServerRun struct {
	cfg      config.Config
	server   config.Server
	run      int
	target   Target
	docs     DocumentSource
	observer Observer
}

// NewServerRun prepares run number run (1-based) against server. observer may
// be nil.
func NewServerRun(cfg config.Config, server config.Server, run int, target Target, docs DocumentSource, observer Observer) *ServerRun {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ServerRun{
		cfg:      cfg,
		server:   server,
		run:      run,
		target:   target,
		docs:     docs,
		observer: observer,
	}
}

func newServerRunResult(cfg config.Config, server string, run int) *ServerRunResult {
	return &ServerRunResult{
		Server:  server,
		Run:     run,
		Threads: cfg.Threads,
		State:   StateIdle,
		Results: make([]*Result, cfg.SlotsPerRun()),
	}
}

// Run executes the pass. Connectivity and reset failures abort it and are
// returned on the result; failures of single operations only mark their slot.
func (s *ServerRun) Run(ctx context.Context) *ServerRunResult {
	n := s.cfg.Threads
	timeout := s.cfg.OperationTimeout
	res := newServerRunResult(s.cfg, s.server.Label, s.run)

	logger := log.WithFields(log.Fields{"server": s.server.Label, "run": s.run})
	logger.Infof("Started server benchmark: threads:%d records:%d", n, s.cfg.Records)

	if err := s.target.Ping(ctx); err != nil {
		res.Err = &ConnectivityError{Server: s.server.Label, Err: err}
		logger.Error(res.Err)
		return res
	}
	res.State = StateConnectivityChecked
	logger.Debug("Database connection successful")

	if err := s.target.Clear(ctx); err != nil {
		res.Err = &DatasetResetError{Server: s.server.Label, Err: err}
		logger.Error(res.Err)
		return res
	}
	res.State = StateDatasetCleared
	logger.Debugf("Cleaning database [%s.%s] successful", s.cfg.Database, s.cfg.Collection)

	phases := []struct {
		next  State
		slots []*Result
		run   func(dst []*Result)
	}{
		{StateInsertsDone, res.Inserts(), func(dst []*Result) {
			s.launch(ctx, dst, InsertFactory(s.target, s.docs, s.cfg.Records, timeout))
		}},
		{StateUnindexedQueriesDone, res.UnindexedQueries(), func(dst []*Result) {
			s.launch(ctx, dst, CompositeFactory(s.target, "", timeout))
		}},
		{StateIndexBuilt, res.Results[2*n : 2*n+1], func(dst []*Result) {
			dst[0] = runOperation(ctx, NewCreateIndex(s.target, s.cfg.IndexFields, timeout))
			s.observer.Observe(s.server.Label, s.run, 1, dst[0])
		}},
		{StateIndexedQueriesDone, res.IndexedQueries(), func(dst []*Result) {
			s.launch(ctx, dst, CompositeFactory(s.target, IndexedPrefix, timeout))
		}},
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			res.Err = err
			logger.WithError(err).Warnf("Benchmark interrupted after %s", res.State)
			return res
		}
		phase.run(phase.slots)
		res.State = phase.next
		logger.Debugf("Reached %s", res.State)
	}

	res.State = StateComplete
	logger.Info("Completed server benchmark")
	return res
}

func (s *ServerRun) launch(ctx context.Context, dst []*Result, factory Factory) {
	launchInto(ctx, dst, factory, func(i int, r *Result) {
		s.observer.Observe(s.server.Label, s.run, i+1, r)
	})
}
