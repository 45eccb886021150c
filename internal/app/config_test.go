package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-stats/internal/asset"
	"market-stats/internal/model"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"DATA_PROVIDER", "CACHE_DIR", "REPORT_DIR", "MAX_WORKERS", "FETCH_TIMEOUT",
		"REFRESH_DAYS", "INSTRUMENTS", "INSTRUMENTS_FILE", "FREQUENCY", "ROLLING_WINDOW", "RISK_FREE_RATE",
		"START_DATE", "END_DATE", "POLYGON_API_KEYS", "POLYGON_API_KEY", "REFRESH_CRON", "RUN_DB_PATH"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "yahoo", cfg.DataProvider)
	assert.Equal(t, "cache_history", cfg.CacheDir)
	assert.Equal(t, "cache_history", cfg.ReportDir)
	assert.Equal(t, 6, cfg.MaxWorkers)
	assert.Equal(t, 1, cfg.RefreshDays)
	assert.Equal(t, 126, cfg.RollingWindow)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.Equal(t, []model.Instrument{{Symbol: "^GSPC", Label: "S&P 500"}, {Symbol: "BTC-USD", Label: "Bitcoin"}}, cfg.Instruments)
	require.NoError(t, cfg.Validate())

	req, err := cfg.StatsRequest()
	require.NoError(t, err)
	assert.Equal(t, asset.Monthly, req.Frequency)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATA_PROVIDER", "Polygon")
	t.Setenv("POLYGON_API_KEYS", " k1, k2 ,,")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("FETCH_TIMEOUT", "45")
	t.Setenv("REFRESH_DAYS", "3")
	t.Setenv("INSTRUMENTS", "spy, gc=f:Gold ,SPY")
	t.Setenv("START_DATE", "2016-01-01")
	t.Setenv("END_DATE", "2025-12-31")
	t.Setenv("FREQUENCY", "W")
	t.Setenv("RISK_FREE_RATE", "oops")

	cfg := LoadConfig()
	assert.Equal(t, "polygon", cfg.DataProvider)
	assert.Equal(t, []string{"k1", "k2"}, cfg.PolygonAPIKeys)
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.RefreshDays)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.Equal(t, []model.Instrument{{Symbol: "SPY"}, {Symbol: "GC=F", Label: "Gold"}}, cfg.Instruments)

	start, end, err := cfg.Range(time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.MustParseDate("2016-01-01"), start)
	assert.Equal(t, model.MustParseDate("2025-12-31"), end)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{DataProvider: "yahoo", MaxWorkers: 1, Frequency: "daily",
			Instruments: []model.Instrument{{Symbol: "SPY"}}}
	}
	require.NoError(t, base().Validate())

	tests := map[string]func(c *Config){
		"unknown provider":     func(c *Config) { c.DataProvider = "bloomberg" },
		"polygon without keys": func(c *Config) { c.DataProvider = "polygon" },
		"zero workers":         func(c *Config) { c.MaxWorkers = 0 },
		"negative refresh":     func(c *Config) { c.RefreshDays = -1 },
		"bad frequency":        func(c *Config) { c.Frequency = "hourly" },
		"bad start":            func(c *Config) { c.StartDate = "01/02/2020" },
		"negative window":      func(c *Config) { c.RollingWindow = -5 },
		"no instruments":       func(c *Config) { c.Instruments = nil },
		"bad schedule":         func(c *Config) { c.RefreshCron = "every day" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestRangeDefaultsToTwoYears(t *testing.T) {
	now := time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC)
	start, end, err := (&Config{}).Range(now)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseDate("2024-06-30"), end)
	assert.Equal(t, model.MustParseDate("2022-06-30"), start)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadInstrumentsFromFile(t *testing.T) {
	want := []model.Instrument{{Symbol: "^GSPC", Label: "S&P 500"}, {Symbol: "BTC-USD", Label: "Bitcoin"}}

	tests := map[string]string{
		"list.yaml": "- symbol: ^GSPC\n  label: S&P 500\n- symbol: btc-usd\n  label: Bitcoin\n",
		"keyed.yml": "instruments:\n  - symbol: ^GSPC\n    label: S&P 500\n  - symbol: BTC-USD\n    label: Bitcoin\n",
		"map.yaml":  "^GSPC:\n  label: S&P 500\nBTC-USD: Bitcoin\n",
		"obj.json":  `[{"symbol":"^GSPC","label":"S&P 500"},{"symbol":"BTC-USD","label":"Bitcoin"}]`,
		"list.txt":  "# indices\n^GSPC:S&P 500\n\nBTC-USD:Bitcoin\n^GSPC\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := LoadInstrumentsFromFile(writeFile(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	got, err := LoadInstrumentsFromFile(writeFile(t, "plain.json", `["spy","qqq"]`))
	require.NoError(t, err)
	assert.Equal(t, []model.Instrument{{Symbol: "SPY"}, {Symbol: "QQQ"}}, got)

	_, err = LoadInstrumentsFromFile(writeFile(t, "x.csv", "SPY"))
	assert.Error(t, err)
	_, err = LoadInstrumentsFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigLoadInstrumentsPrefersFile(t *testing.T) {
	cfg := &Config{
		Instruments:     []model.Instrument{{Symbol: "ENV"}},
		InstrumentsFile: writeFile(t, "i.txt", "FILE\n"),
	}
	got, err := cfg.LoadInstruments()
	require.NoError(t, err)
	assert.Equal(t, []model.Instrument{{Symbol: "FILE"}}, got)
}
