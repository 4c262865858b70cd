package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"fvgscan/internal/report"
	"fvgscan/internal/store"
)

var (
	historyTicker string
	historyLimit  int
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent fair value gaps recorded in the SQLite store",
		RunE:  runHistory,
	}
	cmd.Flags().StringVar(&historyTicker, "ticker", "", "only this ticker (default: all)")
	cmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum gaps to list")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.SQLitePath == "" {
		return fmt.Errorf("no store configured; pass --db or set store.sqlite_path")
	}

	rec, err := store.NewSQLiteRecorder(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer rec.Close()

	gaps, err := rec.RecentGaps(historyTicker, historyLimit)
	if err != nil {
		return fmt.Errorf("reading gaps: %w", err)
	}
	if len(gaps) == 0 {
		fmt.Println("No gaps recorded.")
		return nil
	}

	return renderGaps(os.Stdout, gaps)
}

// renderGaps prints recorded gaps as a table, run IDs cut to 8 characters
func renderGaps(w io.Writer, gaps []store.Gap) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Date", "Ticker", "Status", "Proximity", "Open", "High", "Low", "Close", "Run"}),
	)
	for _, g := range gaps {
		run := g.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		if err := table.Append([]string{
			g.Date.Format(report.DateLayout),
			g.Ticker,
			g.Status.String(),
			g.Proximity.String(),
			fmt.Sprintf("%.2f", g.Open),
			fmt.Sprintf("%.2f", g.High),
			fmt.Sprintf("%.2f", g.Low),
			fmt.Sprintf("%.2f", g.Close),
			run,
		}); err != nil {
			return fmt.Errorf("gap table: %w", err)
		}
	}
	return table.Render()
}
