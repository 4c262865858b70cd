package provider

import (
	"context"
	"slices"
	"sync"
	"time"

	"fvgscan/pkg/model"
)

type rangeKey struct {
	symbol     string
	start, end time.Time
}

// CachingProvider keeps fetched series in memory, keyed by symbol and range.
// Watch mode calls Invalidate before each run so new sessions are picked up.
type CachingProvider struct {
	Provider

	mu     sync.RWMutex
	series map[rangeKey][]model.Candle
}

// NewCachingProvider creates a caching wrapper
func NewCachingProvider(inner Provider) *CachingProvider {
	return &CachingProvider{
		Provider: inner,
		series:   make(map[rangeKey][]model.Candle),
	}
}

// GetDailyCandles serves a copy of the cached series, fetching on a miss.
// Failures are not cached.
func (p *CachingProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	k := rangeKey{symbol: symbol, start: start.UTC(), end: end.UTC()}

	p.mu.RLock()
	hit, ok := p.series[k]
	p.mu.RUnlock()
	if ok {
		return slices.Clone(hit), nil
	}

	candles, err := p.Provider.GetDailyCandles(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.series[k] = slices.Clone(candles)
	p.mu.Unlock()
	return candles, nil
}

// Invalidate drops every cached series
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	clear(p.series)
	p.mu.Unlock()
}
