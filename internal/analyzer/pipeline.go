package analyzer

import (
	"sync"

	"fvgscan/pkg/model"
)

// Label runs the feature, gap and proximity stages over one ticker's series.
// An empty series yields no rows.
func Label(series model.Series) []model.LabeledCandle {
	derived := Derive(series.Candles)
	rows := make([]model.LabeledCandle, len(derived))
	for i, d := range derived {
		flags := DetectGap(d)
		rows[i] = model.LabeledCandle{
			Ticker:        series.Symbol,
			DerivedCandle: d,
			BullishFVG:    flags.Bullish,
			BearishFVG:    flags.Bearish,
			Status:        StatusOf(flags),
			Proximity:     ClassifyProximity(d),
		}
	}
	return rows
}

// LabelAll labels every series concurrently and concatenates the results in
// the order the series were given. Each goroutine owns one output slot.
func LabelAll(series []model.Series) []model.LabeledCandle {
	perTicker := make([][]model.LabeledCandle, len(series))

	var wg sync.WaitGroup
	for i := range series {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			perTicker[i] = Label(series[i])
		}(i)
	}
	wg.Wait()

	return concat(perTicker)
}

// concat joins per-ticker rows preserving both ticker and time order
func concat(perTicker [][]model.LabeledCandle) []model.LabeledCandle {
	total := 0
	for _, rows := range perTicker {
		total += len(rows)
	}

	out := make([]model.LabeledCandle, 0, total)
	for _, rows := range perTicker {
		out = append(out, rows...)
	}
	return out
}
