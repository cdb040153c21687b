package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"

	"github.com/idealo/mongobench/internal/bench"
)

const noData = "no data"

// WriteStatistics renders one table per server followed by the overall table.
func WriteStatistics(w io.Writer, perServer []bench.Statistics, overall bench.Statistics) {
	for _, s := range perServer {
		fmt.Fprintf(w, "\nServer %s (%d threads)\n", s.Server, s.Threads)
		writeTable(w, s)
	}
	fmt.Fprintf(w, "\nOverall (%d threads)\n", overall.Threads)
	writeTable(w, overall)
}

func writeTable(w io.Writer, s bench.Statistics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header and footer values.
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	t.AppendHeader(table.Row{"Metric", "Mean", "Median", "Max", "Samples"})
	t.AppendRow(statRow("Inserts per thread and second", s.InsertsPerThreadSecond, "%.1f"))
	t.AppendRow(statRow("Inserts per second", s.InsertsPerSecond, "%.1f"))
	for _, kind := range bench.CompositeKinds() {
		t.AppendRow(statRow(string(kind)+" (s)", s.Unindexed.ByKind(kind), "%.4f"))
	}
	t.AppendRow(statRow(string(bench.KindCreateIndex)+" (s)", s.CreateIndex, "%.4f"))
	for _, kind := range bench.CompositeKinds() {
		t.AppendRow(statRow(bench.IndexedPrefix+string(kind)+" (s)", s.Indexed.ByKind(kind), "%.4f"))
	}
	t.AppendFooter(table.Row{"Failed operations", "", "", "", s.Failed})
	t.Render()
}

func statRow(label string, s bench.Stat, format string) table.Row {
	if !s.OK {
		return table.Row{label, noData, noData, noData, 0}
	}
	return table.Row{label, fmt.Sprintf(format, s.Mean), fmt.Sprintf(format, s.Median), fmt.Sprintf(format, s.Max), s.Count}
}
