package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"fvgscan/pkg/model"
)

// CSVProvider reads daily candles from <dir>/<SYMBOL>.csv files with rows
//
//	date,open,high,low,close[,volume]
//
// where date is YYYY-MM-DD or RFC3339. A header row is allowed.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates an offline provider rooted at dir
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string { return "csv" }
func (p *CSVProvider) RateLimit() int { return 0 }

// IsAvailable reports whether the directory exists
func (p *CSVProvider) IsAvailable() bool {
	if p.dir == "" {
		return false
	}
	info, err := os.Stat(p.dir)
	return err == nil && info.IsDir()
}

// GetDailyCandles loads the symbol's file and keeps rows in [start, end)
func (p *CSVProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no file for %s", symbol), Retryable: false}
		}
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: false}
	}
	defer f.Close()

	candles, err := ReadCandlesCSV(f)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s: %w", path, err), Retryable: false}
	}

	kept := candles[:0]
	for _, c := range candles {
		if inRange(c.Time, start, end) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// ReadCandlesCSV parses candle rows, skipping a header and blank rows, and
// returns them sorted by time.
func ReadCandlesCSV(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	candles := []model.Candle{}
	sawFirst := false
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		// Allow a single header row
		if !sawFirst {
			sawFirst = true
			if isHeader(row[0]) {
				continue
			}
		}

		c, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})
	return candles, nil
}

func isHeader(first string) bool {
	switch strings.ToLower(strings.TrimSpace(first)) {
	case "date", "time", "timestamp":
		return true
	}
	return false
}

func parseCandleRow(row []string) (model.Candle, error) {
	// Need at least: date,open,high,low,close
	if len(row) < 5 {
		return model.Candle{}, fmt.Errorf("short row %q", strings.Join(row, ","))
	}

	t, err := parseDate(strings.TrimSpace(row[0]))
	if err != nil {
		return model.Candle{}, err
	}

	var prices [4]float64
	for i := range prices {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("bad price %q: %w", row[i+1], err)
		}
		prices[i] = v
	}

	var volume int64
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("bad volume %q: %w", row[5], err)
		}
		volume = int64(v)
	}

	return model.Candle{
		Time:   t,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	// keep the calendar date as written
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
