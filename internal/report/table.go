package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"fvgscan/pkg/model"
)

// RenderTable prints one line per ticker with its gap and proximity counts
func RenderTable(w io.Writer, summaries []model.TickerSummary) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Ticker", "Candles", "Bullish", "Bearish", "Far", "Near", "In FVG", "Last Gap"}),
	)

	for _, s := range summaries {
		last := "-"
		if s.LastGap != model.NoFVG {
			last = fmt.Sprintf("%s %s", s.LastGap, s.LastGapAt.Format(DateLayout))
		}
		if err := table.Append([]string{
			s.Ticker,
			fmt.Sprintf("%d", s.Candles),
			fmt.Sprintf("%d", s.Bullish),
			fmt.Sprintf("%d", s.Bearish),
			fmt.Sprintf("%d", s.Far),
			fmt.Sprintf("%d", s.Near),
			fmt.Sprintf("%d", s.InGap),
			last,
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

// jsonResult is the -format json document
type jsonResult struct {
	RunID     string                `json:"run_id"`
	Start     string                `json:"start"`
	End       string                `json:"end"`
	Summaries []model.TickerSummary `json:"summaries"`
	Rows      []model.LabeledCandle `json:"rows"`
	Errors    []model.TickerError   `json:"errors,omitempty"`
	ScanTime  string                `json:"scan_time"`
}

// WriteJSON writes the scan result with per-ticker summaries
func WriteJSON(w io.Writer, result *model.ScanResult, summaries []model.TickerSummary) error {
	doc := jsonResult{
		RunID:     result.RunID,
		Start:     result.Start.Format(DateLayout),
		End:       result.End.Format(DateLayout),
		Summaries: summaries,
		Rows:      result.Rows,
		Errors:    result.Errors,
		ScanTime:  result.ScanTime.Round(time.Millisecond).String(),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}
