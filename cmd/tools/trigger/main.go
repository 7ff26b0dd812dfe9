package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/eventfeed/internal/api"
	"github.com/david/eventfeed/internal/config"
)

const defaultRefreshURL = "http://localhost:8081/api/v1/refresh"

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		log.Fatalf("load env files: %v", err)
	}
	cfg := config.Load()

	target := flag.String("url", envOr("EVENTFEED_REFRESH_URL", defaultRefreshURL), "Refresh endpoint")
	timeout := flag.Duration("timeout", 10*time.Minute, "Time to wait for the refresh to finish")
	flag.Parse()

	if cfg.AdminToken == "" {
		log.Fatal("ADMIN_SECRET is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *target, nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Admin-Secret", cfg.AdminToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("refresh: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("refresh: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var sum api.RefreshSummary
	if err := json.Unmarshal(body, &sum); err != nil {
		log.Fatalf("decode summary: %v", err)
	}
	render(sum)
	if sum.AllFailed {
		os.Exit(2)
	}
}

func render(sum api.RefreshSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("run " + sum.RunID)
	t.AppendHeader(table.Row{"Collected", "Rejected", "Duplicates", "Truncated", "Written"})
	t.AppendRow(table.Row{sum.Collected, sum.Rejected, sum.Duplicates, sum.Truncated, sum.Items})
	t.Render()

	for _, f := range sum.Failures {
		fmt.Fprintln(os.Stderr, f.String())
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
