package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idealo/mongobench/internal/bench"
	"github.com/idealo/mongobench/internal/config"
	"github.com/idealo/mongobench/internal/report"
	"github.com/idealo/mongobench/internal/store"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark against the configured servers",
		Long: `Run every configured server (or only the one selected with --server)
through the full benchmark: reset, concurrent inserts, concurrent queries,
index creation and concurrent queries again, repeated --runs times.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := configureLogging(cfg.LogLevel); err != nil {
				return err
			}

			inserted := metrics.NewMeter()
			defer inserted.Stop()

			return runBenchmark(cmd.Context(), cfg, os.Stdout, store.Connector(cfg, inserted), inserted)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flags.Int("threads", 1, "Number of concurrent workers per phase")
	flags.Int("runs", 3, "Number of benchmark passes per server")
	flags.Int("records", 1000, "Number of documents each insert worker writes")
	flags.String("server", "", "Label of the only server to benchmark (default all)")
	flags.String("database", "benchmarking", "Database holding the benchmark collection")
	flags.String("collection", "posts", "Benchmark collection, dropped before every run")
	flags.StringSlice("index-fields", []string{"author", "tags", "comments.author"}, "Fields to build single-field indexes on")
	flags.String("durability", string(config.DurabilityFast), "Insert write concern: fast (unacknowledged) or durable (journaled)")
	flags.Duration("operation-timeout", 0, "Upper bound of a single operation, 0 disables it")
	flags.Duration("connect-timeout", 10*time.Second, "Server selection and connect timeout")
	flags.Int("min-comments", 0, "Minimum number of comments per post")
	flags.Int("max-comments", 10, "Upper bound (exclusive) of comments per post")
	flags.Int64("seed", 0, "Seed for document and query generation, 0 seeds from the clock")
	flags.String("output-prefix", "benchmark", "Prefix of the result files, empty disables them")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	return cmd
}

// runBenchmark executes a multi-run, writes the result files and prints the
// statistics. It fails when no server run completed.
func runBenchmark(ctx context.Context, cfg config.Config, out io.Writer, connect bench.Connector, inserted metrics.Meter) error {
	registry := metrics.NewRegistry()
	if err := registry.Register("inserts", inserted); err != nil {
		return errors.Wrap(err, "registering insert meter")
	}

	collector := report.NewCollector()
	timers := report.NewTimers(registry)
	observers := bench.Observers{report.NewProgress(out), collector, timers}

	docs := store.NewDocumentGenerator(cfg.Seed, cfg.MinComments, cfg.MaxComments)

	rates := report.NewRateRecorder(inserted)
	rates.Start()
	result, err := bench.NewMultiRun(cfg, connect, docs, observers).Run(ctx)
	rateRecords := rates.Stop()
	if err != nil {
		return err
	}

	log.WithField("id", result.ID).Infof("Benchmark finished: %d run(s), %d inserted documents", len(result.Runs), inserted.Count())
	timers.Log()

	if cfg.OutputPrefix != "" {
		if err := writeOutputs(cfg, result, collector.Rows(), rateRecords); err != nil {
			return err
		}
	}

	if !result.Succeeded() {
		if err := result.Err(); err != nil {
			return errors.Wrap(err, "no server run completed")
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "no server run completed")
		}
		return errors.New("no server run completed")
	}

	if err := result.Err(); err != nil {
		log.Warnf("Some runs failed: %v", err)
	}
	report.WriteStatistics(out, result.Statistics(), result.Overall())
	return nil
}

func writeOutputs(cfg config.Config, result *bench.MultiRunResult, rows []report.Row, rateRecords [][]string) error {
	resultsPath := cfg.OutputPrefix + "_results.csv"
	if err := report.WriteResults(resultsPath, rows); err != nil {
		return err
	}
	ratesPath := cfg.OutputPrefix + "_rates.csv"
	if err := report.WriteRates(ratesPath, rateRecords); err != nil {
		return err
	}
	reportPath := cfg.OutputPrefix + "_report.json"
	if err := report.WriteJSON(reportPath, report.NewReport(cfg, result)); err != nil {
		return err
	}
	log.Infof("Results saved to %s, %s and %s", resultsPath, ratesPath, reportPath)
	return nil
}
