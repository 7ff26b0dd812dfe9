package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/david/eventfeed/internal/api"
	"github.com/david/eventfeed/internal/cli"
	"github.com/david/eventfeed/internal/config"
	"github.com/david/eventfeed/internal/ingest"
	"github.com/david/eventfeed/internal/logger"
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	runner := &cli.Runner{Deps: cli.NewDeps(cfg, log), Log: log}
	opts := cli.Options{Out: cfg.Output, Sources: cfg.Sources, MaxItems: cfg.MaxItems}
	refresh := func(ctx context.Context) (ingest.Report, error) {
		_, report, err := runner.Update(ctx, opts)
		return report, err
	}

	srv, err := api.NewServer(api.NewStore(cfg.Output), refresh, cfg.AdminToken, log)
	if err != nil {
		log.Error("create server", logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server starting", logger.String("addr", cfg.Addr), logger.String("dataset", cfg.Output))
		if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", logger.Error(err))
	}
}
