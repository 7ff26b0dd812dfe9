package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/eventfeed/internal/cli"
	"github.com/david/eventfeed/internal/config"
	"github.com/david/eventfeed/internal/ingest"
	"github.com/david/eventfeed/internal/logger"
)

// probe runs a single registry source and prints what it would contribute,
// without touching the dataset file.
func main() {
	sourceID := flag.String("source", "", "Source ID to run (e.g., gzwhg)")
	flag.Parse()

	if *sourceID == "" {
		log.Fatal("Please provide a source ID using -source flag")
	}

	if err := config.LoadEnvFiles(); err != nil {
		log.Fatal(err)
	}
	cfg := config.Load()
	zl, err := logger.New(logger.Config{Level: "debug", Development: true})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	reg, err := ingest.LoadRegistry(cfg.Sources)
	if err != nil {
		log.Fatal(err)
	}
	src, ok := reg.Source(*sourceID)
	if !ok {
		log.Fatalf("source %q not found in registry", *sourceID)
	}

	deps := cli.NewDeps(cfg, zl)
	deps.Filter = ingest.NewContentFilter(reg.Filter.Hard, reg.Filter.Soft)
	adapter, err := ingest.DefaultAdapterFactory.Build(src, deps)
	if err != nil {
		log.Fatal(err)
	}

	b := ingest.NewBoundary(zl)
	items, _ := ingest.GuardAdapter(ingest.WithBoundary(context.Background(), b), b, adapter.Name(), adapter.Collect)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Date", "Area", "Cost", "Link"})
	for _, it := range items {
		t.AppendRow(table.Row{it.Name, it.Date, it.Area, it.Cost, it.Link})
	}
	t.Render()

	for _, f := range b.Failures() {
		log.Print(f.String())
	}
	log.Printf("%s: %d items, %d failures", adapter.Name(), len(items), len(b.Failures()))
}
