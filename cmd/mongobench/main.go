// Package main provides the CLI entry point for mongobench, a benchmark of
// concurrent inserts, queries and index builds against MongoDB servers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mongobench",
		Short: "Benchmark MongoDB inserts, queries and index builds",
		Long: `mongobench runs concurrent inserts of synthetic blog posts against one or
more MongoDB servers, then times point, filter and aggregation queries before
and after building indexes.

Persistent config can be saved in a YAML file passed with --config:

servers:
  - label: primary
    uri: mongodb://localhost:27017
threads: 8
runs: 3
records: 1000
durability: durable
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())

	return root
}

// configureLogging sets up the process logger.
func configureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	return nil
}
