package analyzer

import "fvgscan/pkg/model"

// GapFlags holds the two gap conditions evaluated for a candle
type GapFlags struct {
	Bullish bool
	Bearish bool
}

// DetectGap evaluates a candle against its immediate predecessor only.
//
// Bullish: an up candle after a down (or series-start) candle whose low is
// strictly above the previous high. Bearish is the mirror image. The direction
// terms make the two flags mutually exclusive.
func DetectGap(d model.DerivedCandle) GapFlags {
	if !d.HasPrev {
		return GapFlags{}
	}
	return GapFlags{
		Bullish: d.Direction && !d.PrevDirection && d.Low > d.PrevHigh,
		Bearish: !d.Direction && d.PrevDirection && d.High < d.PrevLow,
	}
}

// StatusOf maps gap flags to a status label
func StatusOf(flags GapFlags) model.Status {
	status := model.NoFVG
	if flags.Bullish {
		status = model.BullishFVG
	}
	if flags.Bearish {
		status = model.BearishFVG
	}
	return status
}
