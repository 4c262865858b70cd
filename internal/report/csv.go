package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"fvgscan/pkg/model"
)

// RawColumns is the header of the raw price dump
var RawColumns = []string{"Date", "Ticker", "Open", "High", "Low", "Close", "Volume"}

// WriteRawCSV writes the fetched prices with OHLC rounded to two decimals
func WriteRawCSV(w io.Writer, rows []model.LabeledCandle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RawColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Time.Format(DateLayout),
			r.Ticker,
			round2(r.Open),
			round2(r.High),
			round2(r.Low),
			round2(r.Close),
			fmt.Sprintf("%d", r.Volume),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLabeledCSV writes the full labeled table, unrounded
func WriteLabeledCSV(w io.Writer, rows []model.LabeledCandle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path and hands it to write
func WriteFile(path string, rows []model.LabeledCandle, write func(io.Writer, []model.LabeledCandle) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func round2(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}
