package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"market-stats/internal/app"
	"market-stats/internal/slogx"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *app.Config
	Runner *app.Runner
}

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	os.Exit(run())
}

func run() int {
	a, cleanup, err := InitializeApp()
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer cleanup()

	cfg := a.Config
	slog.Info("cache dir", "dir", cfg.CacheDir, "refresh_days", cfg.RefreshDays)
	slog.Info("parallel mode", "workers", cfg.MaxWorkers, "fetch_timeout", cfg.FetchTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Runner.RunFlow(ctx); err != nil {
		slog.Error("run failed", "error", err)
		return 1
	}
	return 0
}
