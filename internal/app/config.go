package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"market-stats/internal/asset"
	"market-stats/internal/cache"
	"market-stats/internal/fetch"
	"market-stats/internal/model"
)

const defaultInstruments = "^GSPC:S&P 500,BTC-USD:Bitcoin"

// Config holds application configuration from env
type Config struct {
	DataProvider       string // yahoo | polygon
	PolygonAPIKeys     []string
	PolygonKeyCooldown time.Duration
	CacheDir           string
	ReportDir          string
	RunDBPath          string // empty = no run history
	LogLevel           string // debug | info | warn | error
	MaxWorkers         int
	FetchTimeout       time.Duration
	RefreshDays        int
	Instruments        []model.Instrument
	InstrumentsFile    string
	StartDate          string // YYYY-MM-DD; empty = two years before end
	EndDate            string // YYYY-MM-DD; empty = today
	Frequency          string
	RollingWindow      int
	RiskFreeRate       float64
	RefreshCron        string // empty = run once
}

// LoadConfig reads config from environment
func LoadConfig() *Config {
	cfg := &Config{
		DataProvider:       strings.ToLower(getEnv("DATA_PROVIDER", "yahoo")),
		PolygonAPIKeys:     parsePolygonAPIKeys(),
		PolygonKeyCooldown: time.Duration(getEnvInt("POLYGON_KEY_COOLDOWN_SEC", 12)) * time.Second,
		CacheDir:           getEnv("CACHE_DIR", "cache_history"),
		RunDBPath:          os.Getenv("RUN_DB_PATH"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxWorkers:         getEnvInt("MAX_WORKERS", fetch.DefaultMaxWorkers),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", fetch.DefaultFetchTimeout),
		RefreshDays:        getEnvInt("REFRESH_DAYS", cache.DefaultRefreshDays),
		Instruments:        ParseInstruments(getEnv("INSTRUMENTS", defaultInstruments)),
		InstrumentsFile:    os.Getenv("INSTRUMENTS_FILE"),
		StartDate:          os.Getenv("START_DATE"),
		EndDate:            os.Getenv("END_DATE"),
		Frequency:          getEnv("FREQUENCY", "monthly"),
		RollingWindow:      getEnvInt("ROLLING_WINDOW", 126),
		RiskFreeRate:       getEnvFloat("RISK_FREE_RATE", 0.02),
		RefreshCron:        os.Getenv("REFRESH_CRON"),
	}
	cfg.ReportDir = getEnv("REPORT_DIR", cfg.CacheDir)
	return cfg
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.DataProvider {
	case "yahoo":
	case "polygon":
		if len(c.PolygonAPIKeys) == 0 {
			return fmt.Errorf("POLYGON_API_KEY or POLYGON_API_KEYS not set")
		}
	default:
		return fmt.Errorf("unsupported data provider: %s. Options: yahoo, polygon", c.DataProvider)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.MaxWorkers)
	}
	if c.RefreshDays < 0 {
		return fmt.Errorf("REFRESH_DAYS must not be negative, got %d", c.RefreshDays)
	}
	if _, err := c.StatsRequest(); err != nil {
		return err
	}
	if _, _, err := c.Range(time.Now()); err != nil {
		return err
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("REFRESH_CRON: %w", err)
		}
	}
	if c.InstrumentsFile == "" && len(c.Instruments) == 0 {
		return fmt.Errorf("no instruments configured (INSTRUMENTS or INSTRUMENTS_FILE)")
	}
	return nil
}

// Range resolves START_DATE and END_DATE against now.
func (c *Config) Range(now time.Time) (start, end time.Time, err error) {
	end = model.Day(now)
	if c.EndDate != "" {
		if end, err = model.ParseDate(c.EndDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("END_DATE: %w", err)
		}
	}
	start = end.AddDate(-2, 0, 0)
	if c.StartDate != "" {
		if start, err = model.ParseDate(c.StartDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("START_DATE: %w", err)
		}
	}
	return start, end, nil
}

// StatsRequest builds the statistics request for the configured range.
// Start and End are left open; the caller clips to the loaded range.
func (c *Config) StatsRequest() (asset.StatsRequest, error) {
	freq, err := asset.ParseFrequency(c.Frequency)
	if err != nil {
		return asset.StatsRequest{}, fmt.Errorf("FREQUENCY: %w", err)
	}
	if c.RollingWindow < 0 {
		return asset.StatsRequest{}, fmt.Errorf("ROLLING_WINDOW must not be negative, got %d", c.RollingWindow)
	}
	return asset.StatsRequest{
		Frequency:     freq,
		RollingWindow: c.RollingWindow,
		RiskFreeRate:  c.RiskFreeRate,
		Lag:           1,
	}, nil
}

// LoadInstruments returns the instruments from INSTRUMENTS_FILE when set,
// INSTRUMENTS otherwise.
func (c *Config) LoadInstruments() ([]model.Instrument, error) {
	if c.InstrumentsFile != "" {
		return LoadInstrumentsFromFile(c.InstrumentsFile)
	}
	return c.Instruments, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", s, "default", def)
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", s, "default", def)
		return def
	}
	return v
}

// getEnvDuration accepts a Go duration ("90s", "2m") or plain seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", s, "default", def)
		return def
	}
	return d
}

func parsePolygonAPIKeys() []string {
	s := os.Getenv("POLYGON_API_KEYS")
	if s == "" {
		s = os.Getenv("POLYGON_API_KEY")
	}
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
