package app

import (
	"fmt"
	"log/slog"
	"time"

	"market-stats/internal/cache"
	"market-stats/internal/fetch"
	"market-stats/internal/provider"
	"market-stats/internal/provider/polygon"
	"market-stats/internal/provider/yahoo"
	"market-stats/internal/recorder"
	"market-stats/internal/slogx"
)

const heartbeatInterval = 30 * time.Second

// ProvideConfig loads and validates config from environment (for Wire).
func ProvideConfig() (*Config, error) {
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideLogger builds the logger for LOG_LEVEL and installs it as default (for Wire).
func ProvideLogger(cfg *Config) *slog.Logger {
	logger := slogx.NewDefault(cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}

// ProvideStore opens the Parquet cache under CACHE_DIR (for Wire).
func ProvideStore(cfg *Config, logger *slog.Logger) (*cache.Store, error) {
	return cache.New(cfg.CacheDir,
		cache.WithRefreshDays(cfg.RefreshDays),
		cache.WithLogger(logger),
	)
}

// ProvideProvider creates the market data provider named by DATA_PROVIDER (for Wire).
// The cleanup closes it.
func ProvideProvider(cfg *Config, logger *slog.Logger) (provider.Provider, func(), error) {
	var p provider.Provider
	switch cfg.DataProvider {
	case "yahoo":
		p = yahoo.New(yahoo.WithLogger(logger))
	case "polygon":
		pp, err := polygon.New(cfg.PolygonAPIKeys,
			polygon.WithKeyCooldown(cfg.PolygonKeyCooldown),
			polygon.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		p = pp
	default:
		return nil, nil, fmt.Errorf("unsupported data provider: %s. Options: yahoo, polygon", cfg.DataProvider)
	}
	logger.Info("using data provider", "provider", p.GetName())
	return p, func() { p.Close() }, nil
}

// ProvideRecorder opens the SQLite run history at RUN_DB_PATH, or a no-op
// recorder when unset or unavailable (for Wire).
func ProvideRecorder(cfg *Config, logger *slog.Logger) (recorder.Recorder, func()) {
	if cfg.RunDBPath == "" {
		return recorder.NewNoopRecorder(), func() {}
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.RunDBPath)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", "error", err)
		return recorder.NewNoopRecorder(), func() {}
	}
	return sr, func() { sr.Close() }
}

// ProvideLoader creates the fetch orchestrator (for Wire).
func ProvideLoader(cfg *Config, store *cache.Store, p provider.Provider, logger *slog.Logger) *fetch.Loader {
	return fetch.NewLoader(store, p,
		fetch.WithMaxWorkers(cfg.MaxWorkers),
		fetch.WithFetchTimeout(cfg.FetchTimeout),
		fetch.WithHeartbeat(heartbeatInterval),
		fetch.WithLogger(logger),
	)
}
