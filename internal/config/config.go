package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fvgscan/internal/market"
)

// DateLayout is the layout of start/end dates in config and flags
const DateLayout = "2006-01-02"

// Config represents the application configuration
type Config struct {
	Data    DataConfig    `yaml:"data"`
	API     APIConfig     `yaml:"api"`
	Scanner ScannerConfig `yaml:"scanner"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
	Cache   CacheConfig   `yaml:"cache"`
	Watch   WatchConfig   `yaml:"watch"`
}

// DataConfig selects what to fetch
type DataConfig struct {
	Tickers      []string `yaml:"tickers"`
	Start        string   `yaml:"start"`         // inclusive, YYYY-MM-DD
	End          string   `yaml:"end"`           // exclusive, YYYY-MM-DD
	LookbackDays int      `yaml:"lookback_days"` // watch mode window when start/end are empty
	OfflineDir   string   `yaml:"offline_dir"`   // read <dir>/<TICKER>.csv instead of the network
}

// APIConfig holds API provider configurations
type APIConfig struct {
	Finnhub      ProviderConfig `yaml:"finnhub"`
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
	Yahoo        ProviderConfig `yaml:"yahoo"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig holds report settings; an empty path disables that output
type OutputConfig struct {
	Excel      string        `yaml:"xlsx"`
	Sheet      string        `yaml:"sheet"`
	RawCSV     string        `yaml:"csv"`
	LabeledCSV string        `yaml:"labeled_csv"`
	Colors     PaletteConfig `yaml:"colors"`
}

// PaletteConfig holds row fill colors per proximity tier
type PaletteConfig struct {
	Far     string `yaml:"far"`
	Near    string `yaml:"near"`
	InGap   string `yaml:"in_gap"`
	Default string `yaml:"default"`
}

// StoreConfig holds persistence settings
type StoreConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// CacheConfig holds the optional Redis candle cache
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// WatchConfig holds scheduled-scan settings
type WatchConfig struct {
	Cron        string `yaml:"cron"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Tickers:      []string{"AAPL", "TSLA", "GOOGL", "MBLY"},
			Start:        "2023-01-01",
			End:          "2023-12-31",
			LookbackDays: 365,
		},
		API: APIConfig{
			Finnhub: ProviderConfig{
				Key:       os.Getenv("FINNHUB_API_KEY"),
				RateLimit: 60,
			},
			AlphaVantage: ProviderConfig{
				Key:       os.Getenv("ALPHAVANTAGE_API_KEY"),
				RateLimit: 5,
			},
			Yahoo: ProviderConfig{
				RateLimit: 30,
			},
		},
		Scanner: ScannerConfig{
			Workers: 4,
			Timeout: 2 * time.Minute,
		},
		Output: OutputConfig{
			Excel:  "FVGResults.xlsx",
			Sheet:  "FVG Data",
			RawCSV: "FVGResults.csv",
			Colors: PaletteConfig{
				Far:     "#FF9999",
				Near:    "#FFFF99",
				InGap:   "#99FF99",
				Default: "#FFFFFF",
			},
		},
		Cache: CacheConfig{
			TTL: 12 * time.Hour,
		},
		Watch: WatchConfig{
			Cron:        "0 18 * * 1-5",
			MetricsAddr: ":9108",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Use defaults if file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides config values with environment variables if set
func (c *Config) applyEnv() {
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		c.API.Finnhub.Key = key
	}
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		c.API.AlphaVantage.Key = key
	}
	if addr := os.Getenv("FVGSCAN_REDIS_ADDR"); addr != "" {
		c.Cache.RedisAddr = addr
	}
	if pw := os.Getenv("FVGSCAN_REDIS_PASSWORD"); pw != "" {
		c.Cache.RedisPassword = pw
	}
	if db := os.Getenv("FVGSCAN_DB"); db != "" {
		c.Store.SQLitePath = db
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.NormalizedTickers()) == 0 {
		return fmt.Errorf("at least one ticker is required")
	}
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Scanner.Timeout <= 0 {
		return fmt.Errorf("scanner timeout must be positive")
	}
	if c.Data.Start != "" || c.Data.End != "" {
		start, end, err := c.Range()
		if err != nil {
			return err
		}
		if !end.After(start) {
			return fmt.Errorf("end %s must be after start %s", c.Data.End, c.Data.Start)
		}
	} else if c.Data.LookbackDays < 1 {
		return fmt.Errorf("lookback_days must be at least 1 when start/end are unset")
	}
	if c.Output.Excel != "" && c.Output.Sheet == "" {
		return fmt.Errorf("output sheet name is required when writing xlsx")
	}
	return nil
}

// Range parses the configured [start, end) dates as UTC midnights
func (c *Config) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, c.Data.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", c.Data.Start, err)
	}
	end, err := time.Parse(DateLayout, c.Data.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", c.Data.End, err)
	}
	return start, end, nil
}

// RollingRange returns the lookback window ending after the current
// exchange session date (exclusive), used when no fixed dates are configured.
func (c *Config) RollingRange(now time.Time) (time.Time, time.Time) {
	end := market.SessionDate(now).AddDate(0, 0, 1)
	return end.AddDate(0, 0, -c.Data.LookbackDays), end
}

// NormalizedTickers returns upper-cased, de-duplicated tickers in config order
func (c *Config) NormalizedTickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.Data.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
