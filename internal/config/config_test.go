package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "TSLA", "GOOGL", "MBLY"}, cfg.Data.Tickers)
	assert.Equal(t, "FVG Data", cfg.Output.Sheet)
	assert.Equal(t, "#FF9999", cfg.Output.Colors.Far)
	require.NoError(t, cfg.Validate())

	start, end, err := cfg.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  tickers: [msft, " nvda ", MSFT]
  start: "2024-01-01"
  end: "2024-06-30"
scanner:
  workers: 2
  timeout: 45s
output:
  xlsx: out.xlsx
  colors:
    near: "#FFEE00"
cache:
  ttl: 1h
`), 0o644))

	t.Setenv("FINNHUB_API_KEY", "fh-key")
	t.Setenv("FVGSCAN_DB", "runs.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"MSFT", "NVDA"}, cfg.NormalizedTickers())
	assert.Equal(t, 2, cfg.Scanner.Workers)
	assert.Equal(t, 45*time.Second, cfg.Scanner.Timeout)
	assert.Equal(t, "out.xlsx", cfg.Output.Excel)
	assert.Equal(t, "#FFEE00", cfg.Output.Colors.Near)
	assert.Equal(t, "#FF9999", cfg.Output.Colors.Far, "unset keys keep defaults")
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "fh-key", cfg.API.Finnhub.Key)
	assert.Equal(t, "runs.db", cfg.Store.SQLitePath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"no tickers", func(c *Config) { c.Data.Tickers = []string{" "} }, false},
		{"no workers", func(c *Config) { c.Scanner.Workers = 0 }, false},
		{"no timeout", func(c *Config) { c.Scanner.Timeout = 0 }, false},
		{"bad start", func(c *Config) { c.Data.Start = "01/01/2023" }, false},
		{"end before start", func(c *Config) { c.Data.End = "2022-12-31" }, false},
		{"rolling window", func(c *Config) { c.Data.Start, c.Data.End = "", "" }, true},
		{"rolling window without lookback", func(c *Config) {
			c.Data.Start, c.Data.End = "", ""
			c.Data.LookbackDays = 0
		}, false},
		{"xlsx without sheet", func(c *Config) { c.Output.Sheet = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRollingRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.LookbackDays = 10

	start, end := cfg.RollingRange(time.Date(2024, 3, 15, 21, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), start)

	// 22:00 in New York is still the 15th there
	_, end = cfg.RollingRange(time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("ALPHAVANTAGE_API_KEY=from-dotenv\n"), 0o644))

	t.Setenv("ALPHAVANTAGE_API_KEY", "")
	os.Unsetenv("ALPHAVANTAGE_API_KEY")

	LoadDotEnv(envPath, filepath.Join(dir, "missing.env"))
	assert.Equal(t, "from-dotenv", os.Getenv("ALPHAVANTAGE_API_KEY"))
}
