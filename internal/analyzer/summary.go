package analyzer

import "fvgscan/pkg/model"

// Summarize counts statuses and proximity tiers per ticker, in the order the
// tickers first appear in rows.
func Summarize(rows []model.LabeledCandle) []model.TickerSummary {
	index := make(map[string]int)
	var summaries []model.TickerSummary

	for _, r := range rows {
		i, ok := index[r.Ticker]
		if !ok {
			i = len(summaries)
			index[r.Ticker] = i
			summaries = append(summaries, model.TickerSummary{Ticker: r.Ticker})
		}
		s := &summaries[i]
		s.Candles++

		switch r.Status {
		case model.BullishFVG:
			s.Bullish++
		case model.BearishFVG:
			s.Bearish++
		}
		if r.Status != model.NoFVG {
			s.LastGap = r.Status
			s.LastGapAt = r.Time
		}

		switch r.Proximity {
		case model.Near:
			s.Near++
		case model.InGap:
			s.InGap++
		default:
			s.Far++
		}
	}
	return summaries
}
