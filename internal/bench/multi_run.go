package bench

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/idealo/mongobench/internal/config"
)

// Connector opens a Target for a server.
type Connector func(ctx context.Context, server config.Server) (Target, error)

// MultiRunResult collects every server run of one benchmark invocation, in
// execution order: all runs of the first server, then the next server.
type MultiRunResult struct {
	ID       string
	Threads  int
	Records  int
	Started  time.Time
	Finished time.Time
	Runs     []*ServerRunResult
}

// Succeeded reports whether at least one server run completed.
func (m *MultiRunResult) Succeeded() bool {
	for _, r := range m.Runs {
		if r.Complete() {
			return true
		}
	}
	return false
}

// Err combines the errors of all failed server runs, or returns nil.
func (m *MultiRunResult) Err() error {
	var result *multierror.Error
	for _, r := range m.Runs {
		if r.Err != nil {
			result = multierror.Append(result, r.Err)
		}
	}
	return result.ErrorOrNil()
}

// Servers returns the labels of all benchmarked servers in execution order.
func (m *MultiRunResult) Servers() []string {
	var labels []string
	seen := map[string]bool{}
	for _, r := range m.Runs {
		if !seen[r.Server] {
			seen[r.Server] = true
			labels = append(labels, r.Server)
		}
	}
	return labels
}

// Results returns every populated slot of the given server's runs, or of all
// runs when server is empty.
func (m *MultiRunResult) Results(server string) []*Result {
	var results []*Result
	for _, r := range m.Runs {
		if server != "" && r.Server != server {
			continue
		}
		for _, res := range r.Results {
			if res != nil {
				results = append(results, res)
			}
		}
	}
	return results
}

// MultiRun repeats a ServerRun cfg.Runs times against every selected server.
// Runs are strictly sequential since they share the server's dataset.
type MultiRun struct {
	cfg      config.Config
	connect  Connector
	docs     DocumentSource
	observer Observer
}

// NewMultiRun returns a MultiRun. observer may be nil.
func NewMultiRun(cfg config.Config, connect Connector, docs DocumentSource, observer Observer) *MultiRun {
	return &MultiRun{
		cfg:      cfg,
		connect:  connect,
		docs:     docs,
		observer: observer,
	}
}

// Run benchmarks all selected servers. A failed run is logged and recorded,
// and the next run starts. The returned error only reports an invalid server
// selection; run failures are on the result.
func (m *MultiRun) Run(ctx context.Context) (*MultiRunResult, error) {
	servers, err := m.cfg.SelectedServers()
	if err != nil {
		return nil, err
	}

	result := &MultiRunResult{
		ID:      uuid.NewString(),
		Threads: m.cfg.Threads,
		Records: m.cfg.Records,
		Started: time.Now(),
	}

	log.Infof("Starting multi-run [%d] benchmarks on %d server(s)", m.cfg.Runs, len(servers))
	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}
		result.Runs = append(result.Runs, m.runServer(ctx, server)...)
	}
	result.Finished = time.Now()
	log.Infof("Completed multi-run benchmarks in %s", result.Finished.Sub(result.Started))

	return result, nil
}

func (m *MultiRun) runServer(ctx context.Context, server config.Server) []*ServerRunResult {
	logger := log.WithField("server", server.Label)

	target, err := m.connect(ctx, server)
	if err != nil {
		logger.WithError(err).Error("Cannot connect")
		runs := make([]*ServerRunResult, 0, m.cfg.Runs)
		for run := 1; run <= m.cfg.Runs; run++ {
			res := newServerRunResult(m.cfg, server.Label, run)
			res.Err = &ConnectivityError{Server: server.Label, Err: err}
			runs = append(runs, res)
		}
		return runs
	}
	defer func() {
		if err := target.Close(context.Background()); err != nil {
			logger.WithError(err).Warn("Closing connection failed")
		}
	}()

	runs := make([]*ServerRunResult, 0, m.cfg.Runs)
	for run := 1; run <= m.cfg.Runs; run++ {
		if ctx.Err() != nil {
			break
		}
		res := NewServerRun(m.cfg, server, run, target, m.docs, m.observer).Run(ctx)
		if res.Err != nil {
			logger.WithField("run", run).Errorf("Run failed in state %s, continuing: %v", res.State, res.Err)
		}
		runs = append(runs, res)
	}
	return runs
}
