package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgscan/internal/config"
	"fvgscan/internal/metrics"
	"fvgscan/internal/provider"
	"fvgscan/internal/scanner"
	"fvgscan/internal/store"
	"fvgscan/pkg/model"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "cfg.xlsx", outputPath(false, "", "cfg.xlsx"))
	assert.Equal(t, "flag.xlsx", outputPath(true, "flag.xlsx", "cfg.xlsx"))
	assert.Equal(t, "", outputPath(true, "-", "cfg.xlsx"))
}

func TestScanRange(t *testing.T) {
	cfg := config.DefaultConfig()
	start, end, err := scanRange(cfg, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", start.Format(config.DateLayout))
	assert.Equal(t, "2023-12-31", end.Format(config.DateLayout))

	cfg.Data.Start, cfg.Data.End = "", ""
	cfg.Data.LookbackDays = 30
	start, end, err = scanRange(cfg, time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-11", end.Format(config.DateLayout))
	assert.Equal(t, "2024-04-11", start.Format(config.DateLayout))
}

func TestCreateProviders(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Finnhub.Key = ""
	cfg.API.AlphaVantage.Key = "av"

	names := func(cfg *config.Config) []string {
		var out []string
		for _, p := range createProviders(cfg) {
			out = append(out, p.Name())
		}
		return out
	}

	got := names(cfg)
	require.Len(t, got, 2)
	assert.Equal(t, "yahoo", got[1])

	cfg.Data.OfflineDir = t.TempDir()
	assert.Equal(t, []string{"csv"}, names(cfg))
}

func TestRollingUnlessDated(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, rollingUnlessDated(cfg, true))
	assert.Equal(t, "2023-01-01", cfg.Data.Start)

	require.NoError(t, rollingUnlessDated(cfg, false))
	assert.Empty(t, cfg.Data.Start)
	assert.Empty(t, cfg.Data.End)

	cfg.Data.LookbackDays = 0
	assert.Error(t, rollingUnlessDated(cfg, false))
}

// countingSource serves one up candle per day of the range
type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) Name() string      { return "source" }
func (s *countingSource) IsAvailable() bool { return true }
func (s *countingSource) RateLimit() int    { return 0 }
func (s *countingSource) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	s.calls.Add(1)
	var candles []model.Candle
	for d := end.AddDate(0, 0, -3); d.Before(end); d = d.AddDate(0, 0, 1) {
		candles = append(candles, model.Candle{Time: d, Open: 10, High: 11, Low: 9, Close: 10.5})
	}
	return candles, nil
}

type redisCommands struct{ n atomic.Int32 }

func (h *redisCommands) BeforeProcess(ctx context.Context, _ goredis.Cmder) (context.Context, error) {
	h.n.Add(1)
	return ctx, nil
}
func (h *redisCommands) AfterProcess(context.Context, goredis.Cmder) error { return nil }
func (h *redisCommands) BeforeProcessPipeline(ctx context.Context, _ []goredis.Cmder) (context.Context, error) {
	return ctx, nil
}
func (h *redisCommands) AfterProcessPipeline(context.Context, []goredis.Cmder) error { return nil }

func TestWatcherScanRefetchesLiveWindow(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.Tickers = []string{"AAPL", "TSLA"}
	cfg.Output = config.OutputConfig{}
	require.NoError(t, rollingUnlessDated(cfg, false))

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	commands := &redisCommands{}
	client.AddHook(commands)

	src := &countingSource{}
	memory := provider.NewCachingProvider(src)
	chain := &providerChain{
		Provider: provider.NewRedisCacheWithClient(memory, client, time.Hour),
		memory:   memory,
		close:    func() {},
	}
	w := &watcher{
		cfg:     cfg,
		chain:   chain,
		scanner: scanner.NewScanner(chain, 2, 5*time.Second),
		rec:     store.NewNoopRecorder(),
		metrics: metrics.New(nil),
	}

	for run := 1; run <= 2; run++ {
		require.NoError(t, w.scan(context.Background()))
		assert.Equal(t, int32(2*run), src.calls.Load(), "run %d", run)
	}
	// the window reaches today's session, so redis is never consulted
	assert.Equal(t, int32(0), commands.n.Load())
}

func TestRenderGaps(t *testing.T) {
	var buf bytes.Buffer
	err := renderGaps(&buf, []store.Gap{{
		RunID:     "0123456789abcdef",
		Ticker:    "AAPL",
		Date:      time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC),
		Open:      13,
		High:      15,
		Low:       13,
		Close:     14.5,
		Status:    model.BullishFVG,
		Proximity: model.InGap,
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2023-01-04")
	assert.Contains(t, out, "Bullish FVG")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "89abcdef")
}
