package report

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/idealo/mongobench/internal/bench"
	"github.com/idealo/mongobench/internal/config"
)

// Report is the machine readable summary of one benchmark invocation.
type Report struct {
	ID         string        `json:"id"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	Succeeded  bool          `json:"succeeded"`
	Config     ConfigSummary `json:"config"`
	Runs       []RunSummary  `json:"runs"`
	Statistics []Statistics  `json:"statistics,omitempty"`
	Overall    *Statistics   `json:"overall,omitempty"`
}

type ConfigSummary struct {
	Threads          int      `json:"threads"`
	Runs             int      `json:"runs"`
	Records          int      `json:"records"`
	Servers          []string `json:"servers"`
	Database         string   `json:"database"`
	Collection       string   `json:"collection"`
	IndexFields      []string `json:"indexFields"`
	Durability       string   `json:"durability"`
	OperationTimeout string   `json:"operationTimeout"`
	Seed             int64    `json:"seed"`
}

type RunSummary struct {
	Server    string `json:"server"`
	Run       int    `json:"run"`
	State     string `json:"state"`
	Populated int    `json:"populated"`
	Error     string `json:"error,omitempty"`
}

// Stat is a bench.Stat without its availability flag; missing values are
// omitted from the report instead.
type Stat struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

type Statistics struct {
	Server                 string           `json:"server,omitempty"`
	InsertsPerThreadSecond *Stat            `json:"insertsPerThreadSecond,omitempty"`
	InsertsPerSecond       *Stat            `json:"insertsPerSecond,omitempty"`
	CreateIndexSeconds     *Stat            `json:"createIndexSeconds,omitempty"`
	UnindexedSeconds       map[string]*Stat `json:"unindexedSeconds,omitempty"`
	IndexedSeconds         map[string]*Stat `json:"indexedSeconds,omitempty"`
	Failed                 int              `json:"failed"`
	UnmeasuredInserts      int              `json:"unmeasuredInserts,omitempty"`
}

// NewReport builds the report of result. Statistics are only included when
// at least one server run completed.
func NewReport(cfg config.Config, result *bench.MultiRunResult) Report {
	rep := Report{
		ID:        result.ID,
		Started:   result.Started,
		Finished:  result.Finished,
		Succeeded: result.Succeeded(),
		Config:    summarizeConfig(cfg),
		Runs:      make([]RunSummary, 0, len(result.Runs)),
	}

	for _, r := range result.Runs {
		run := RunSummary{
			Server:    r.Server,
			Run:       r.Run,
			State:     r.State.String(),
			Populated: r.Populated(),
		}
		if r.Err != nil {
			run.Error = r.Err.Error()
		}
		rep.Runs = append(rep.Runs, run)
	}

	if !rep.Succeeded {
		return rep
	}
	for _, s := range result.Statistics() {
		rep.Statistics = append(rep.Statistics, convertStatistics(s))
	}
	overall := convertStatistics(result.Overall())
	rep.Overall = &overall
	return rep
}

// WriteJSON writes rep, indented, to path.
func WriteJSON(path string, rep Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %s", path)
}

func summarizeConfig(cfg config.Config) ConfigSummary {
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if cfg.Server == "" || cfg.Server == s.Label {
			servers = append(servers, s.Label)
		}
	}
	return ConfigSummary{
		Threads:          cfg.Threads,
		Runs:             cfg.Runs,
		Records:          cfg.Records,
		Servers:          servers,
		Database:         cfg.Database,
		Collection:       cfg.Collection,
		IndexFields:      cfg.IndexFields,
		Durability:       string(cfg.Durability),
		OperationTimeout: cfg.OperationTimeout.String(),
		Seed:             cfg.Seed,
	}
}

func convertStat(s bench.Stat) *Stat {
	if !s.OK {
		return nil
	}
	return &Stat{Mean: s.Mean, Median: s.Median, Max: s.Max, Count: s.Count}
}

func convertQueries(q bench.QueryStatistics) map[string]*Stat {
	out := map[string]*Stat{}
	for _, kind := range bench.CompositeKinds() {
		if s := convertStat(q.ByKind(kind)); s != nil {
			out[string(kind)] = s
		}
	}
	return out
}

func convertStatistics(s bench.Statistics) Statistics {
	return Statistics{
		Server:                 s.Server,
		InsertsPerThreadSecond: convertStat(s.InsertsPerThreadSecond),
		InsertsPerSecond:       convertStat(s.InsertsPerSecond),
		CreateIndexSeconds:     convertStat(s.CreateIndex),
		UnindexedSeconds:       convertQueries(s.Unindexed),
		IndexedSeconds:         convertQueries(s.Indexed),
		Failed:                 s.Failed,
		UnmeasuredInserts:      s.Unmeasured,
	}
}
