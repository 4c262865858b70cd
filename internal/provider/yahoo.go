package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fvgscan/internal/market"
	"fvgscan/pkg/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider reads the unofficial chart API. It needs no key.
type YahooProvider struct {
	endpoint
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(rateLimitPerMin int) *YahooProvider {
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 30 // Conservative rate limit
	}
	e := newEndpoint("yahoo", "", yahooBaseURL, rateLimitPerMin)
	e.userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	return &YahooProvider{e}
}

// WithBaseURL points the provider at another chart endpoint
func (p *YahooProvider) WithBaseURL(u string) *YahooProvider {
	p.baseURL = u
	return p
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// yahooResponse represents the Yahoo Finance chart response.
// Bars on halted days come back as null, hence the pointers.
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyCandles fetches daily bars for [start, end)
func (p *YahooProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	u := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&includePrePost=false&events=div%%2Csplit",
		p.baseURL, url.PathEscape(symbol), start.Unix(), end.Unix())

	// unknown symbols answer 404 with a chart.error body
	var data yahooResponse
	if err := p.getJSON(ctx, symbol, u, &data, http.StatusNotFound); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		return nil, p.fail(errors.New(data.Chart.Error.Description), false)
	}
	if len(data.Chart.Result) == 0 {
		return nil, p.fail(fmt.Errorf("no result for %s", symbol), false)
	}

	result := data.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return []model.Candle{}, nil
	}
	quotes := result.Indicators.Quote[0]

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		bar := model.Candle{
			Time:  market.SessionDate(time.Unix(ts, 0)),
			Open:  *o,
			High:  *h,
			Low:   *l,
			Close: *c,
		}
		if v := at(quotes.Volume, i); v != nil {
			bar.Volume = *v
		}
		candles = append(candles, bar)
	}
	return keepRange(candles, start, end), nil
}

// at returns values[i], or nil past the end of a short column
func at[T any](values []*T, i int) *T {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
