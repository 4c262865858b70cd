package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgscan/internal/analyzer"
	"fvgscan/pkg/model"
)

var day0 = time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

func gapSeries(symbol string) model.Series {
	return model.Series{Symbol: symbol, Candles: []model.Candle{
		{Time: day0, Open: 12, High: 12.5, Low: 9.5, Close: 10},
		{Time: day0.AddDate(0, 0, 1), Open: 13, High: 15, Low: 13, Close: 14.5}, // bullish
		{Time: day0.AddDate(0, 0, 2), Open: 13.6, High: 14.8, Low: 13.5, Close: 14},
		{Time: day0.AddDate(0, 0, 3), Open: 12, High: 12.5, Low: 11, Close: 11.5}, // bearish
	}}
}

func scanResult(runID string, series ...model.Series) *model.ScanResult {
	var tickers []string
	for _, s := range series {
		tickers = append(tickers, s.Symbol)
	}
	return &model.ScanResult{
		RunID:    runID,
		Tickers:  tickers,
		Start:    day0,
		End:      day0.AddDate(0, 0, 30),
		Rows:     analyzer.LabelAll(series),
		ScanTime: 1500 * time.Millisecond,
	}
}

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "fvg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordRunAndRecentGaps(t *testing.T) {
	r := openTemp(t)

	require.NoError(t, r.RecordRun(scanResult("run-1", gapSeries("AAPL"), gapSeries("TSLA"))))

	var runs, candles int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&runs))
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM labeled_candles`).Scan(&candles))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 8, candles)

	gaps, err := r.RecentGaps("aapl", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 2)

	assert.Equal(t, "AAPL", gaps[0].Ticker)
	assert.Equal(t, day0.AddDate(0, 0, 3), gaps[0].Date)
	assert.Equal(t, model.BearishFVG, gaps[0].Status)
	assert.Equal(t, day0.AddDate(0, 0, 1), gaps[1].Date)
	assert.Equal(t, model.BullishFVG, gaps[1].Status)
	assert.Equal(t, model.InGap, gaps[1].Proximity)
	assert.Equal(t, "run-1", gaps[1].RunID)

	all, err := r.RecentGaps("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := r.RecentGaps("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecentGapsDedupesAcrossRuns(t *testing.T) {
	r := openTemp(t)

	require.NoError(t, r.RecordRun(scanResult("run-1", gapSeries("AAPL"))))
	require.NoError(t, r.RecordRun(scanResult("run-2", gapSeries("AAPL"))))

	gaps, err := r.RecentGaps("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 2)
	for _, g := range gaps {
		assert.Equal(t, "run-2", g.RunID)
	}
}

func TestRecentGapsUsesLatestLabel(t *testing.T) {
	r := openTemp(t)
	require.NoError(t, r.RecordRun(scanResult("run-1", gapSeries("AAPL"))))

	// the window moved forward a day: the old bullish candle is now first
	// and carries No FVG
	moved := gapSeries("AAPL")
	moved.Candles = moved.Candles[1:]
	require.NoError(t, r.RecordRun(scanResult("run-2", moved)))

	gaps, err := r.RecentGaps("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, day0.AddDate(0, 0, 3), gaps[0].Date)
	assert.Equal(t, model.BearishFVG, gaps[0].Status)
	assert.Equal(t, "run-2", gaps[0].RunID)
}

func TestRecordRunDuplicateID(t *testing.T) {
	r := openTemp(t)

	require.NoError(t, r.RecordRun(scanResult("run-1", gapSeries("AAPL"))))
	assert.Error(t, r.RecordRun(scanResult("run-1", gapSeries("MSFT"))))

	// the failed run left nothing behind
	gaps, err := r.RecentGaps("MSFT", 10)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fvg.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordRun(scanResult("run-1", gapSeries("AAPL"))))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()

	gaps, err := r.RecentGaps("AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, gaps, 2)
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordRun(scanResult("x", gapSeries("AAPL"))))
	gaps, err := rec.RecentGaps("AAPL", 5)
	assert.NoError(t, err)
	assert.Empty(t, gaps)
	assert.NoError(t, rec.Close())
}
