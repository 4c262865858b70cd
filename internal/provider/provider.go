package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"fvgscan/pkg/model"
)

// Provider defines the interface for daily market-data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetDailyCandles fetches daily OHLCV bars in [start, end), oldest first.
	// An empty range is an empty slice, not an error.
	GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error)

	// IsAvailable checks if the provider is usable (API key present, etc.)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ErrNoProviders is returned when none of the configured providers is available
var ErrNoProviders = errors.New("no available data providers")

// ProviderError tags an upstream failure with its source. Retryable marks
// throttling, transport and 5xx failures.
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a retryable ProviderError
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// FallbackProvider asks each provider in turn and returns the first success
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider keeps the available providers, in the given order
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	return &FallbackProvider{providers: slices.DeleteFunc(slices.Clone(providers), func(p Provider) bool {
		return !p.IsAvailable()
	})}
}

func (f *FallbackProvider) Name() string { return "fallback" }

// GetDailyCandles tries each provider in order until one succeeds
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	if len(f.providers) == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for _, p := range f.providers {
		candles, err := p.GetDailyCandles(ctx, symbol, start, end)
		if err == nil {
			return candles, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("all providers failed for %s: %w", symbol, errors.Join(errs...))
}

func (f *FallbackProvider) IsAvailable() bool { return len(f.providers) > 0 }

// RateLimit is the fastest member's limit
func (f *FallbackProvider) RateLimit() int {
	rate := 0
	for _, p := range f.providers {
		rate = max(rate, p.RateLimit())
	}
	return rate
}

// Providers lists the members that passed the availability check
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}

// inRange reports whether t falls in [start, end); zero bounds are open
func inRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && !t.Before(end) {
		return false
	}
	return true
}
