package model

import (
	"fmt"
	"time"
)

// Candle represents a single daily candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time" msgpack:"t"`
	Open   float64   `json:"open" msgpack:"o"`
	High   float64   `json:"high" msgpack:"h"`
	Low    float64   `json:"low" msgpack:"l"`
	Close  float64   `json:"close" msgpack:"c"`
	Volume int64     `json:"volume" msgpack:"v"`
}

// Series is one ticker's candles in time order
type Series struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

// Features are the per-candle values derived from OHLC and the previous candle.
// PrevHigh and PrevLow are meaningful only when HasPrev is set.
type Features struct {
	BodySize      float64 `json:"body_size"`
	UpperWick     float64 `json:"upper_wick"`
	LowerWick     float64 `json:"lower_wick"`
	Direction     bool    `json:"direction"` // true = up candle
	PrevHigh      float64 `json:"prev_high"`
	PrevLow       float64 `json:"prev_low"`
	HasPrev       bool    `json:"has_prev"`
	PrevDirection bool    `json:"prev_direction"`
}

// DerivedCandle is a candle plus its derived features
type DerivedCandle struct {
	Candle
	Features
}

// Status is the fair value gap label of a candle
type Status int

const (
	NoFVG Status = iota
	BullishFVG
	BearishFVG
)

var statusNames = map[Status]string{
	NoFVG:      "No FVG",
	BullishFVG: "Bullish FVG",
	BearishFVG: "Bearish FVG",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for k, v := range statusNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Proximity is how close a candle's range sits to the previous candle's range
type Proximity int

const (
	Far Proximity = iota
	Near
	InGap
)

var proximityNames = map[Proximity]string{
	Far:   "Far",
	Near:  "Near",
	InGap: "In FVG",
}

func (p Proximity) String() string {
	if name, ok := proximityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Proximity(%d)", int(p))
}

func (p Proximity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Proximity) UnmarshalText(b []byte) error {
	for k, v := range proximityNames {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown proximity %q", string(b))
}

// LabeledCandle is one row of the output table
type LabeledCandle struct {
	Ticker string `json:"ticker"`
	DerivedCandle
	BullishFVG bool      `json:"bullish_fvg"`
	BearishFVG bool      `json:"bearish_fvg"`
	Status     Status    `json:"status"`
	Proximity  Proximity `json:"proximity"`
}

// TickerSummary counts labels for one ticker
type TickerSummary struct {
	Ticker    string    `json:"ticker"`
	Candles   int       `json:"candles"`
	Bullish   int       `json:"bullish"`
	Bearish   int       `json:"bearish"`
	Far       int       `json:"far"`
	Near      int       `json:"near"`
	InGap     int       `json:"in_gap"`
	LastGap   Status    `json:"last_gap"`
	LastGapAt time.Time `json:"last_gap_at,omitempty"`
}

// TickerError records a ticker whose candles could not be fetched
type TickerError struct {
	Symbol string `json:"symbol"`
	Err    string `json:"error"`
}

// ScanResult represents the final scan output
type ScanResult struct {
	RunID    string          `json:"run_id"`
	Tickers  []string        `json:"tickers"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Rows     []LabeledCandle `json:"rows"`
	Errors   []TickerError   `json:"errors,omitempty"`
	ScanTime time.Duration   `json:"scan_time"`
}
