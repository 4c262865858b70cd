package provider

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"fvgscan/pkg/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider reads TIME_SERIES_DAILY. The free tier allows very
// few calls per minute, so it sits after Finnhub in the fallback chain.
type AlphaVantageProvider struct {
	endpoint
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string, rateLimitPerMin int) *AlphaVantageProvider {
	return &AlphaVantageProvider{newEndpoint("alphavantage", apiKey, alphaVantageBaseURL, rateLimitPerMin)}
}

// WithBaseURL points the provider at another query endpoint
func (p *AlphaVantageProvider) WithBaseURL(u string) *AlphaVantageProvider {
	p.baseURL = u
	return p
}

// dailySeries is the TIME_SERIES_DAILY document. Throttling and bad symbols
// arrive as 200 responses carrying Note, Information or Error Message.
type dailySeries struct {
	Days  map[string]map[string]string `json:"Time Series (Daily)"`
	Note  string                       `json:"Note"`
	Info  string                       `json:"Information"`
	Error string                       `json:"Error Message"`
}

// GetDailyCandles fetches the full daily history and keeps [start, end)
func (p *AlphaVantageProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", "full")
	q.Set("apikey", p.key)

	var doc dailySeries
	if err := p.getJSON(ctx, symbol, p.baseURL+"?"+q.Encode(), &doc); err != nil {
		return nil, err
	}

	if doc.Note != "" || doc.Info != "" {
		return nil, p.throttled(symbol)
	}
	if doc.Error != "" {
		return nil, p.fail(errors.New(doc.Error), false)
	}

	return parseDailySeries(doc.Days, start, end), nil
}

// parseDailySeries converts the date-keyed series to candles, oldest first.
// Days with an unparsable date are skipped.
func parseDailySeries(days map[string]map[string]string, start, end time.Time) []model.Candle {
	num := func(fields map[string]string, key string) float64 {
		v, _ := strconv.ParseFloat(fields[key], 64)
		return v
	}

	candles := make([]model.Candle, 0, len(days))
	for date, fields := range days {
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			continue
		}
		vol, _ := strconv.ParseInt(fields["5. volume"], 10, 64)
		candles = append(candles, model.Candle{
			Time:   t,
			Open:   num(fields, "1. open"),
			High:   num(fields, "2. high"),
			Low:    num(fields, "3. low"),
			Close:  num(fields, "4. close"),
			Volume: vol,
		})
	}
	return keepRange(candles, start, end)
}
