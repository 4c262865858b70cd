package store

import (
	"time"

	"fvgscan/pkg/model"
)

// Gap is a stored candle that carried a fair value gap
type Gap struct {
	RunID     string
	Ticker    string
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Status    model.Status
	Proximity model.Proximity
}

// Recorder persists scan runs for later inspection
type Recorder interface {
	RecordRun(result *model.ScanResult) error
	// RecentGaps returns the newest gaps first; an empty ticker means all tickers
	RecentGaps(ticker string, limit int) ([]Gap, error)
	Close() error
}
