package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fvgscan/internal/analyzer"
	"fvgscan/internal/config"
	"fvgscan/internal/provider"
	"fvgscan/internal/report"
	"fvgscan/internal/scanner"
	"fvgscan/internal/store"
	"fvgscan/pkg/model"
)

var (
	cfgFile    string
	tickerList string
	startDate  string
	endDate    string
	workers    int
	offlineDir string
	dbPath     string
	verbose    bool

	xlsxPath       string
	sheetName      string
	rawCSVPath     string
	labeledCSVPath string
	format         string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fvgscan",
		Short: "Fair value gap scanner for daily stock candles",
		Long: `fvgscan downloads daily OHLC candles, flags three-candle fair value gaps
and rates how close each candle trades to the previous candle's range.

Proximity colors in the xlsx report:
  Far     - red, no overlap with the previous range
  Near    - yellow, overlaps the previous range
  In FVG  - green, high reaches the previous high

Examples:
  fvgscan --tickers AAPL,TSLA --start 2023-01-01 --end 2023-12-31
  fvgscan --offline-dir ./data --format json
  fvgscan watch --cron "0 18 * * 1-5"
  fvgscan history --ticker AAPL`,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Shared flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "config.yaml", "config file path")
	pf.StringVar(&tickerList, "tickers", "", "comma-separated tickers (default from config)")
	pf.StringVar(&startDate, "start", "", "first date, inclusive (YYYY-MM-DD)")
	pf.StringVar(&endDate, "end", "", "last date, exclusive (YYYY-MM-DD)")
	pf.IntVar(&workers, "workers", 0, "number of parallel fetch workers")
	pf.StringVar(&offlineDir, "offline-dir", "", "read <dir>/<TICKER>.csv instead of calling APIs")
	pf.StringVar(&dbPath, "db", "", "SQLite file to record runs in")
	pf.BoolVar(&verbose, "verbose", false, "show detailed output")

	// Output flags
	rootCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "color-coded workbook path (\"\" keeps config, \"-\" disables)")
	rootCmd.Flags().StringVar(&sheetName, "sheet", "", "worksheet name")
	rootCmd.Flags().StringVar(&rawCSVPath, "csv", "", "raw price CSV path (\"-\" disables)")
	rootCmd.Flags().StringVar(&labeledCSVPath, "labeled-csv", "", "labeled table CSV path")
	rootCmd.Flags().StringVar(&format, "format", "table", "stdout format: table, json, none")

	rootCmd.AddCommand(newWatchCmd(), newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !verbose {
		log.SetOutput(io.Discard)
	}

	switch format {
	case "table", "json", "none":
	default:
		return fmt.Errorf("unknown format %q (table, json, none)", format)
	}

	start, end, err := scanRange(cfg, time.Now())
	if err != nil {
		return err
	}

	chain, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	defer chain.close()

	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, cancel := signalContext()
	defer cancel()

	tickers := cfg.NormalizedTickers()
	if format != "json" {
		fmt.Printf("Scanning %d tickers from %s to %s...\n\n",
			len(tickers), start.Format(config.DateLayout), end.Format(config.DateLayout))
	}

	s := scanner.NewScanner(chain, cfg.Scanner.Workers, cfg.Scanner.Timeout)

	var bar *progressbar.ProgressBar
	if format != "json" {
		bar = newProgressBar(len(tickers))
		s.SetProgressCallback(func(scanned, total int) {
			bar.Set(scanned)
		})
	}

	result, err := s.Scan(ctx, tickers, start, end)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
		fmt.Println()
	}

	if err := writeReports(cfg, result); err != nil {
		return err
	}
	if err := rec.RecordRun(result); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	summaries := analyzer.Summarize(result.Rows)
	switch format {
	case "json":
		return report.WriteJSON(os.Stdout, result, summaries)
	case "table":
		return outputTable(cfg, result, summaries)
	}
	return nil
}

// loadConfig reads the config file and applies flags the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadDotEnv()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("tickers") {
		cfg.Data.Tickers = strings.Split(tickerList, ",")
	}
	if flags.Changed("start") {
		cfg.Data.Start = startDate
	}
	if flags.Changed("end") {
		cfg.Data.End = endDate
	}
	if flags.Changed("workers") {
		cfg.Scanner.Workers = workers
	}
	if flags.Changed("offline-dir") {
		cfg.Data.OfflineDir = offlineDir
	}
	if flags.Changed("db") {
		cfg.Store.SQLitePath = dbPath
	}
	if flags.Lookup("xlsx") != nil {
		cfg.Output.Excel = outputPath(flags.Changed("xlsx"), xlsxPath, cfg.Output.Excel)
		cfg.Output.RawCSV = outputPath(flags.Changed("csv"), rawCSVPath, cfg.Output.RawCSV)
		cfg.Output.LabeledCSV = outputPath(flags.Changed("labeled-csv"), labeledCSVPath, cfg.Output.LabeledCSV)
		if flags.Changed("sheet") {
			cfg.Output.Sheet = sheetName
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// outputPath resolves an output flag; "-" turns the output off
func outputPath(changed bool, flagValue, configured string) string {
	if !changed {
		return configured
	}
	if flagValue == "-" {
		return ""
	}
	return flagValue
}

// scanRange uses the configured dates, or the rolling lookback window when
// both are empty.
func scanRange(cfg *config.Config, now time.Time) (time.Time, time.Time, error) {
	if cfg.Data.Start == "" && cfg.Data.End == "" {
		start, end := cfg.RollingRange(now)
		return start, end, nil
	}
	return cfg.Range()
}

func createProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider

	// Offline mode never touches the network
	if cfg.Data.OfflineDir != "" {
		return append(providers, provider.NewCSVProvider(cfg.Data.OfflineDir))
	}

	// Finnhub (primary - higher rate limit)
	if cfg.API.Finnhub.Key != "" {
		providers = append(providers, provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit))
	}

	// Alpha Vantage (secondary)
	if cfg.API.AlphaVantage.Key != "" {
		providers = append(providers, provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit))
	}

	// Yahoo Finance (fallback - always available)
	providers = append(providers, provider.NewYahooProvider(cfg.API.Yahoo.RateLimit))

	return providers
}

// providerChain is the provider stack a scan reads from
type providerChain struct {
	provider.Provider
	memory *provider.CachingProvider
	close  func()
}

// buildProvider chains the providers with fallback, an in-memory cache and,
// when configured, Redis in front of it all.
func buildProvider(cfg *config.Config) (*providerChain, error) {
	fallbackProvider := provider.NewFallbackProvider(createProviders(cfg)...)
	if !fallbackProvider.IsAvailable() {
		return nil, fmt.Errorf("no available data providers")
	}

	if verbose {
		fmt.Printf("Using providers: ")
		for i, p := range fallbackProvider.Providers() {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(p.Name())
		}
		fmt.Println()
	}

	memory := provider.NewCachingProvider(fallbackProvider)
	chain := &providerChain{Provider: memory, memory: memory, close: func() {}}

	if cfg.Cache.RedisAddr != "" && cfg.Data.OfflineDir == "" {
		rc, err := provider.NewRedisCache(memory, provider.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			// Redis is an optimisation; run without it
			log.Printf("[CACHE] %v, continuing without redis", err)
		} else {
			chain.Provider = rc
			chain.close = func() { rc.Close() }
		}
	}
	return chain, nil
}

func openRecorder(cfg *config.Config) (store.Recorder, error) {
	if cfg.Store.SQLitePath == "" {
		return store.NewNoopRecorder(), nil
	}
	rec, err := store.NewSQLiteRecorder(cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return rec, nil
}

func writeReports(cfg *config.Config, result *model.ScanResult) error {
	out := cfg.Output
	if out.Excel != "" {
		palette := report.Palette{
			Far:     out.Colors.Far,
			Near:    out.Colors.Near,
			InGap:   out.Colors.InGap,
			Default: out.Colors.Default,
		}
		if err := report.WriteExcel(out.Excel, out.Sheet, result.Rows, palette); err != nil {
			return fmt.Errorf("writing xlsx: %w", err)
		}
	}
	if out.RawCSV != "" {
		if err := report.WriteFile(out.RawCSV, result.Rows, report.WriteRawCSV); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	if out.LabeledCSV != "" {
		if err := report.WriteFile(out.LabeledCSV, result.Rows, report.WriteLabeledCSV); err != nil {
			return fmt.Errorf("writing labeled csv: %w", err)
		}
	}
	return nil
}

func outputTable(cfg *config.Config, result *model.ScanResult, summaries []model.TickerSummary) error {
	if len(result.Rows) == 0 {
		fmt.Println("No candles returned for the requested range.")
	} else if err := report.RenderTable(os.Stdout, summaries); err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		fmt.Println("\n--- Fetch Errors ---")
		for _, e := range result.Errors {
			fmt.Printf("  %s: %s\n", e.Symbol, e.Err)
		}
	}

	var written []string
	for _, path := range []string{cfg.Output.Excel, cfg.Output.RawCSV, cfg.Output.LabeledCSV} {
		if path != "" {
			written = append(written, path)
		}
	}
	if len(written) > 0 {
		fmt.Printf("\nWrote %s\n", strings.Join(written, ", "))
	}

	fmt.Printf("Labeled %d candles across %d tickers in %s (run %s)\n",
		len(result.Rows), len(result.Tickers), result.ScanTime.Round(time.Millisecond), result.RunID)
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Fetching"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
