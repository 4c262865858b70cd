package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fvgscan/internal/config"
	"fvgscan/internal/market"
	"fvgscan/internal/metrics"
	"fvgscan/internal/scanner"
	"fvgscan/internal/scheduler"
	"fvgscan/internal/store"
)

var (
	cronSpec    string
	metricsAddr string
	runOnStart  bool
	everyDay    bool
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan on a cron schedule and serve Prometheus metrics",
		Long: `watch keeps running, repeats the scan on the configured cron schedule and
serves /metrics and /healthz. Each run covers the last lookback_days days up
to the current session; start/end dates from the config file are ignored.
Pass --start and/or --end to rescan a fixed range instead.`,
		RunE: runWatch,
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "", "five-field cron schedule (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (\"-\" disables)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "scan once immediately")
	cmd.Flags().BoolVar(&everyDay, "every-day", false, "also scan on weekends and US market holidays")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := rollingUnlessDated(cfg, cmd.Flags().Changed("start") || cmd.Flags().Changed("end")); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cmd.Flags().Changed("cron") {
		cfg.Watch.Cron = cronSpec
	}
	cfg.Watch.MetricsAddr = outputPath(cmd.Flags().Changed("metrics-addr"), metricsAddr, cfg.Watch.MetricsAddr)
	if cfg.Watch.Cron == "" {
		return fmt.Errorf("watch needs a cron schedule")
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

	m := metrics.New(prometheus.NewRegistry())
	if cfg.Watch.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.Watch.MetricsAddr, m)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(ctx)
		}()
	}

	ctx, cancel := signalContext()
	defer cancel()

	w := &watcher{
		cfg:     cfg,
		chain:   chain,
		scanner: scanner.NewScanner(chain, cfg.Scanner.Workers, cfg.Scanner.Timeout),
		rec:     rec,
		metrics: m,
	}

	sched := scheduler.NewScheduler(ctx, w.scan)
	if !everyDay {
		sched.SkipWhen(func(now time.Time) bool { return !market.IsTradingDay(now) })
	}
	if err := sched.Register(cfg.Watch.Cron); err != nil {
		return err
	}

	if runOnStart {
		if err := sched.RunNow(); err != nil {
			log.Printf("[WATCH] initial scan failed: %v", err)
		}
	}

	sched.Start()
	log.Printf("[WATCH] next scan at %s", sched.Next().Format(time.RFC3339))

	<-ctx.Done()
	sched.Stop()
	return nil
}

// rollingUnlessDated clears the configured dates unless the command line set
// one, so scheduled runs follow the lookback window
func rollingUnlessDated(cfg *config.Config, dated bool) error {
	if !dated {
		cfg.Data.Start, cfg.Data.End = "", ""
	}
	return cfg.Validate()
}

// watcher holds what one scheduled scan needs
type watcher struct {
	cfg     *config.Config
	chain   *providerChain
	scanner *scanner.Scanner
	rec     store.Recorder
	metrics *metrics.Metrics
}

func (w *watcher) scan(ctx context.Context) error {
	start, end, err := scanRange(w.cfg, time.Now())
	if err != nil {
		return err
	}

	// Redis never holds a range reaching today's session, so clearing the
	// memory cache is enough for this run to refetch the live bar
	w.chain.memory.Invalidate()

	result, err := w.scanner.Scan(ctx, w.cfg.NormalizedTickers(), start, end)
	if err != nil {
		return err
	}
	w.metrics.Observe(result)

	if err := writeReports(w.cfg, result); err != nil {
		return err
	}
	if err := w.rec.RecordRun(result); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}
