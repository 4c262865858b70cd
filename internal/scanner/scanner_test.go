package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgscan/internal/analyzer"
	"fvgscan/pkg/model"
)

var (
	start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
)

// mapProvider serves canned series; later tickers answer faster so that
// completion order differs from request order.
type mapProvider struct {
	series map[string][]model.Candle
	errs   map[string]error
	delay  map[string]time.Duration
}

func (m *mapProvider) Name() string      { return "map" }
func (m *mapProvider) IsAvailable() bool { return true }
func (m *mapProvider) RateLimit() int    { return 0 }
func (m *mapProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	if d := m.delay[symbol]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	return m.series[symbol], nil
}

func walk(n int, base float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		o := base + float64(i%5)
		c := o + 0.5
		if i%2 == 1 {
			c = o - 0.5
		}
		candles[i] = model.Candle{
			Time:  start.AddDate(0, 0, i),
			Open:  o,
			High:  max(o, c) + 0.25,
			Low:   min(o, c) - 0.25,
			Close: c,
		}
	}
	return candles
}

func TestScanPreservesTickerOrder(t *testing.T) {
	p := &mapProvider{
		series: map[string][]model.Candle{
			"AAPL":  walk(10, 100),
			"TSLA":  walk(7, 200),
			"GOOGL": walk(4, 90),
			"MBLY":  {},
		},
		delay: map[string]time.Duration{
			"AAPL": 30 * time.Millisecond,
			"TSLA": 10 * time.Millisecond,
		},
	}

	s := NewScanner(p, 4, 5*time.Second)
	var calls atomic.Int32
	s.SetProgressCallback(func(scanned, total int) {
		calls.Add(1)
		assert.Equal(t, 4, total)
	})

	tickers := []string{"AAPL", "TSLA", "MBLY", "GOOGL"}
	result, err := s.Scan(context.Background(), tickers, start, end)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, tickers, result.Tickers)
	assert.Empty(t, result.Errors)
	assert.Equal(t, int32(4), calls.Load())

	require.Len(t, result.Rows, 10+7+0+4)
	want := analyzer.LabelAll([]model.Series{
		{Symbol: "AAPL", Candles: p.series["AAPL"]},
		{Symbol: "TSLA", Candles: p.series["TSLA"]},
		{Symbol: "MBLY"},
		{Symbol: "GOOGL", Candles: p.series["GOOGL"]},
	})
	assert.Equal(t, want, result.Rows)
}

func TestScanRecordsFetchErrors(t *testing.T) {
	p := &mapProvider{
		series: map[string][]model.Candle{"AAPL": walk(5, 100)},
		errs:   map[string]error{"NOPE": errors.New("symbol may be delisted")},
	}

	result, err := NewScanner(p, 2, time.Second).Scan(context.Background(), []string{"NOPE", "AAPL"}, start, end)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "NOPE", result.Errors[0].Symbol)
	assert.Contains(t, result.Errors[0].Err, "delisted")
	require.Len(t, result.Rows, 5)
	assert.Equal(t, "AAPL", result.Rows[0].Ticker)
}

func TestScanNoTickers(t *testing.T) {
	result, err := NewScanner(&mapProvider{}, 2, time.Second).Scan(context.Background(), nil, start, end)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.NotEmpty(t, result.RunID)
}

func TestScanCancelled(t *testing.T) {
	p := &mapProvider{
		series: map[string][]model.Candle{"AAPL": walk(5, 100)},
		delay:  map[string]time.Duration{"AAPL": time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewScanner(p, 1, time.Second).Scan(ctx, []string{"AAPL"}, start, end)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Len(t, result.Errors, 1)
}
