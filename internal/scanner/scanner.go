package scanner

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fvgscan/internal/analyzer"
	"fvgscan/internal/provider"
	"fvgscan/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Scanner fetches each ticker's daily candles in parallel and labels them
type Scanner struct {
	provider     provider.Provider
	workers      int
	timeout      time.Duration
	progressFunc ProgressCallback
}

// NewScanner creates a new scanner
func NewScanner(p provider.Provider, workers int, timeout time.Duration) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		provider: p,
		workers:  workers,
		timeout:  timeout,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

type job struct {
	index  int
	symbol string
}

type fetched struct {
	series model.Series
	err    error
}

// Scan fetches and labels every ticker over [start, end). Rows come back in
// ticker order, then time order. A ticker whose fetch fails contributes no
// rows and is listed in ScanResult.Errors.
func (s *Scanner) Scan(ctx context.Context, tickers []string, start, end time.Time) (*model.ScanResult, error) {
	startTime := time.Now()
	result := &model.ScanResult{
		RunID:   uuid.NewString(),
		Tickers: tickers,
		Start:   start,
		End:     end,
		Rows:    []model.LabeledCandle{},
	}

	if len(tickers) == 0 {
		result.ScanTime = time.Since(startTime)
		return result, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Send all jobs
	jobChan := make(chan job, len(tickers))
	for i, sym := range tickers {
		jobChan <- job{index: i, symbol: sym}
	}
	close(jobChan)

	// each worker writes only the slots of the jobs it took
	slots := make([]fetched, len(tickers))
	var scannedCount int64

	var wg sync.WaitGroup
	for i := 0; i < min(s.workers, len(tickers)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				if err := ctx.Err(); err != nil {
					slots[j.index] = fetched{series: model.Series{Symbol: j.symbol}, err: err}
				} else {
					slots[j.index] = s.fetch(ctx, j.symbol, start, end)
				}

				count := atomic.AddInt64(&scannedCount, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(tickers))
				}
			}
		}()
	}
	wg.Wait()

	series := make([]model.Series, len(slots))
	for i, f := range slots {
		series[i] = f.series
		if f.err != nil {
			result.Errors = append(result.Errors, model.TickerError{Symbol: f.series.Symbol, Err: f.err.Error()})
		}
	}
	result.Rows = analyzer.LabelAll(series)
	result.ScanTime = time.Since(startTime)

	log.Printf("[SCAN] run %s: %d tickers, %d rows, %d errors in %s",
		result.RunID, len(tickers), len(result.Rows), len(result.Errors), result.ScanTime.Round(time.Millisecond))

	if err := ctx.Err(); err != nil && len(result.Errors) == len(tickers) {
		return result, err
	}
	return result, nil
}

func (s *Scanner) fetch(ctx context.Context, symbol string, start, end time.Time) fetched {
	candles, err := s.provider.GetDailyCandles(ctx, symbol, start, end)
	if err != nil {
		log.Printf("[SCAN] %s: fetch failed: %v", symbol, err)
		return fetched{series: model.Series{Symbol: symbol}, err: err}
	}
	return fetched{series: model.Series{Symbol: symbol, Candles: candles}}
}
