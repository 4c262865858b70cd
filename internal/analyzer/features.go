package analyzer

import (
	"math"

	"fvgscan/pkg/model"
)

// seriesStartDirection is the previous direction given to the first candle of
// a series. It is a business rule (treat the missing predecessor as a down
// candle), not a zero value; it lets an up candle open a bullish gap check.
const seriesStartDirection = false

// Derive computes body, wick and direction features for each candle plus the
// previous candle's high, low and direction.
func Derive(candles []model.Candle) []model.DerivedCandle {
	derived := make([]model.DerivedCandle, len(candles))
	for i, c := range candles {
		f := candleFeatures(c)

		if i == 0 {
			f.HasPrev = false
			f.PrevDirection = seriesStartDirection
		} else {
			prev := candles[i-1]
			f.HasPrev = true
			f.PrevHigh = prev.High
			f.PrevLow = prev.Low
			f.PrevDirection = isUp(prev)
		}

		derived[i] = model.DerivedCandle{Candle: c, Features: f}
	}
	return derived
}

// candleFeatures returns the features that depend on the candle alone
func candleFeatures(c model.Candle) model.Features {
	return model.Features{
		BodySize:  math.Abs(c.Close - c.Open),
		UpperWick: c.High - math.Max(c.Open, c.Close),
		LowerWick: math.Min(c.Open, c.Close) - c.Low,
		Direction: isUp(c),
	}
}

func isUp(c model.Candle) bool {
	return c.Close > c.Open
}
