package analyzer

import "fvgscan/pkg/model"

// ClassifyProximity compares a candle's range with the previous candle's range.
// Rules are applied in order and a later match overwrites an earlier one.
//
// NOTE: the reference range is always the immediately preceding candle, not
// the most recent unfilled gap. A gap two or more candles back is never seen.
func ClassifyProximity(d model.DerivedCandle) model.Proximity {
	proximity := model.Far
	if !d.HasPrev {
		return proximity
	}

	if d.Low < d.PrevHigh && d.High > d.PrevLow {
		proximity = model.Near
	}
	if d.High >= d.PrevHigh {
		proximity = model.InGap
	}
	return proximity
}
