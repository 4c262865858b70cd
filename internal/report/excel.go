package report

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"fvgscan/pkg/model"
)

// Palette holds the row fill color for each proximity tier. Default is used
// for any value outside the three tiers.
type Palette struct {
	Far     string
	Near    string
	InGap   string
	Default string
}

// DefaultPalette is red for Far, yellow for Near and green for In FVG
var DefaultPalette = Palette{
	Far:     "#FF9999",
	Near:    "#FFFF99",
	InGap:   "#99FF99",
	Default: "#FFFFFF",
}

func (p Palette) color(prox model.Proximity) string {
	switch prox {
	case model.Far:
		return p.Far
	case model.Near:
		return p.Near
	case model.InGap:
		return p.InGap
	}
	return p.Default
}

// WriteExcel writes rows to a single-sheet workbook at path, one row per
// candle under a header row, each row filled by its proximity color.
func WriteExcel(path, sheet string, rows []model.LabeledCandle, palette Palette) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	styles := make(map[string]int)
	styleFor := func(color string) (int, error) {
		if id, ok := styles[color]; ok {
			return id, nil
		}
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Font: &excelize.Font{Color: "#000000"},
		})
		if err != nil {
			return 0, fmt.Errorf("style %s: %w", color, err)
		}
		styles[color] = id
		return id, nil
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}

	for i, r := range rows {
		n := i + 2
		start := fmt.Sprintf("A%d", n)
		values := cells(r)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", n, err)
		}

		style, err := styleFor(palette.color(r.Proximity))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, start, fmt.Sprintf("%s%d", lastCol, n), style); err != nil {
			return fmt.Errorf("styling row %d: %w", n, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	log.Printf("[REPORT] wrote %d rows to %s", len(rows), path)
	return nil
}
