package report

import (
	"strconv"

	"fvgscan/pkg/model"
)

// DateLayout is how candle dates are written to every report
const DateLayout = "2006-01-02"

// Columns is the header of the labeled table, shared by xlsx and csv output
var Columns = []string{
	"Ticker", "Date", "Open", "High", "Low", "Close", "Volume",
	"Body Size", "Upper Wick", "Lower Wick", "Direction",
	"Prev High", "Prev Low", "Prev Direction",
	"Bullish FVG", "Bearish FVG", "Status", "Proximity",
}

// cells returns a row as typed values. Prev High and Prev Low stay blank on
// the first candle of a series.
func cells(r model.LabeledCandle) []interface{} {
	var prevHigh, prevLow interface{}
	if r.HasPrev {
		prevHigh, prevLow = r.PrevHigh, r.PrevLow
	}
	return []interface{}{
		r.Ticker, r.Time.Format(DateLayout),
		r.Open, r.High, r.Low, r.Close, r.Volume,
		r.BodySize, r.UpperWick, r.LowerWick, r.Direction,
		prevHigh, prevLow, r.PrevDirection,
		r.BullishFVG, r.BearishFVG, r.Status.String(), r.Proximity.String(),
	}
}

// record is cells rendered as text
func record(r model.LabeledCandle) []string {
	out := make([]string, 0, len(Columns))
	for _, v := range cells(r) {
		switch x := v.(type) {
		case nil:
			out = append(out, "")
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		case int64:
			out = append(out, strconv.FormatInt(x, 10))
		case bool:
			out = append(out, strconv.FormatBool(x))
		}
	}
	return out
}
