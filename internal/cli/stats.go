package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/eventfeed/internal/ingest"
)

// RenderStats prints one row per source followed by the pipeline totals.
func RenderStats(w io.Writer, report ingest.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Source", "Items", "Failures", "Status", "Duration"})

	for _, s := range report.Sources {
		status := "ok"
		if s.Failed {
			status = "failed"
		}
		t.AppendRow(table.Row{s.Source, s.Items, s.Failures, status, s.Duration.Round(time.Millisecond).String()})
	}
	t.AppendFooter(table.Row{"collected", report.Collected, "", "", ""})
	t.AppendFooter(table.Row{"rejected", report.Rejected, "", "", ""})
	t.AppendFooter(table.Row{"duplicates", report.Duplicates, "", "", ""})
	t.AppendFooter(table.Row{"truncated", report.Truncated, "", "", ""})
	t.AppendFooter(table.Row{"written", report.Items, "", "", ""})
	t.Render()
}
