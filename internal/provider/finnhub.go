package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"fvgscan/internal/market"
	"fvgscan/pkg/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubProvider reads daily candles from Finnhub's /stock/candle endpoint
type FinnhubProvider struct {
	endpoint
}

// NewFinnhubProvider creates a new Finnhub provider
func NewFinnhubProvider(apiKey string, rateLimitPerMin int) *FinnhubProvider {
	return &FinnhubProvider{newEndpoint("finnhub", apiKey, finnhubBaseURL, rateLimitPerMin)}
}

// WithBaseURL points the provider at another API root
func (p *FinnhubProvider) WithBaseURL(u string) *FinnhubProvider {
	p.baseURL = u
	return p
}

// finnhubBars is the column-oriented candle payload
type finnhubBars struct {
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []int64   `json:"v"`
}

// GetDailyCandles fetches daily OHLCV data for [start, end)
func (p *FinnhubProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprint(start.Unix()))
	q.Set("to", fmt.Sprint(end.Unix()))
	q.Set("token", p.key)

	var bars finnhubBars
	if err := p.getJSON(ctx, symbol, p.baseURL+"/stock/candle?"+q.Encode(), &bars); err != nil {
		return nil, err
	}

	switch bars.Status {
	case "no_data":
		return []model.Candle{}, nil
	case "", "ok":
	default:
		return nil, p.fail(fmt.Errorf("status %q", bars.Status), false)
	}

	// columns can disagree in length on partial days; use the shortest
	n := min(len(bars.Time), len(bars.Open), len(bars.High), len(bars.Low), len(bars.Close))
	candles := make([]model.Candle, 0, n)
	for i := 0; i < n; i++ {
		c := model.Candle{
			Time:  finnhubDay(bars.Time[i]),
			Open:  bars.Open[i],
			High:  bars.High[i],
			Low:   bars.Low[i],
			Close: bars.Close[i],
		}
		if i < len(bars.Volume) {
			c.Volume = bars.Volume[i]
		}
		candles = append(candles, c)
	}
	return keepRange(candles, start, end), nil
}

// finnhubDay dates a bar. Daily bars may be stamped at 00:00 UTC of the
// session date, which is the previous evening in New York.
func finnhubDay(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t
	}
	return market.SessionDate(t)
}
