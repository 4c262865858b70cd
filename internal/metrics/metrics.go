package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fvgscan/pkg/model"
)

// Metrics holds the Prometheus collectors updated after every scan.
// Watch runs relabel overlapping windows, so candle, gap and proximity
// figures are gauges describing the latest scan, not running totals.
type Metrics struct {
	CandlesLabeled *prometheus.GaugeVec   // labels: ticker
	Gaps           *prometheus.GaugeVec   // labels: ticker, status
	Proximity      *prometheus.GaugeVec   // labels: proximity
	FetchErrors    *prometheus.CounterVec // labels: ticker
	ScanDuration   prometheus.Histogram
	LastScan       prometheus.Gauge

	gatherer prometheus.Gatherer
	health   *Health
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		CandlesLabeled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fvgscan_candles_labeled",
			Help: "Candles labeled by the latest scan, by ticker",
		}, []string{"ticker"}),
		Gaps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fvgscan_gaps",
			Help: "Fair value gaps in the latest scan window, by ticker and direction",
		}, []string{"ticker", "status"}),
		Proximity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fvgscan_proximity_candles",
			Help: "Candles per proximity tier in the latest scan window",
		}, []string{"proximity"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fvgscan_fetch_errors_total",
			Help: "Tickers whose candles could not be fetched",
		}, []string{"ticker"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fvgscan_scan_duration_seconds",
			Help:    "Wall time of a full fetch and label run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fvgscan_last_scan_timestamp_seconds",
			Help: "Unix time the last scan finished",
		}),
		gatherer: reg,
		health:   &Health{StartedAt: time.Now()},
	}

	reg.MustRegister(
		m.CandlesLabeled,
		m.Gaps,
		m.Proximity,
		m.FetchErrors,
		m.ScanDuration,
		m.LastScan,
	)
	return m
}

// Observe replaces the per-window gauges with this scan's figures and
// counts its fetch errors
func (m *Metrics) Observe(result *model.ScanResult) {
	m.CandlesLabeled.Reset()
	m.Gaps.Reset()
	m.Proximity.Reset()
	for _, r := range result.Rows {
		m.CandlesLabeled.WithLabelValues(r.Ticker).Inc()
		m.Proximity.WithLabelValues(r.Proximity.String()).Inc()
		if r.Status != model.NoFVG {
			m.Gaps.WithLabelValues(r.Ticker, r.Status.String()).Inc()
		}
	}
	for _, e := range result.Errors {
		m.FetchErrors.WithLabelValues(e.Symbol).Inc()
	}

	now := time.Now()
	m.ScanDuration.Observe(result.ScanTime.Seconds())
	m.LastScan.Set(float64(now.Unix()))
	m.health.record(result, now)
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Health reports the outcome of the latest scan on /healthz.
type Health struct {
	mu sync.RWMutex

	StartedAt  time.Time
	LastRunID  string
	LastScanAt time.Time
	LastRows   int
	LastErrors int
	Tickers    int
}

func (h *Health) record(result *model.ScanResult, at time.Time) {
	h.mu.Lock()
	h.LastRunID = result.RunID
	h.LastScanAt = at
	h.LastRows = len(result.Rows)
	h.LastErrors = len(result.Errors)
	h.Tickers = len(result.Tickers)
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint. The status is "waiting" until the
// first scan finishes and "degraded" when every ticker of the last scan failed.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	httpCode := http.StatusOK
	switch {
	case h.LastScanAt.IsZero():
		status = "waiting"
	case h.Tickers > 0 && h.LastErrors == h.Tickers:
		status = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastScan := ""
	if !h.LastScanAt.IsZero() {
		lastScan = h.LastScanAt.Format(time.RFC3339)
	}

	body := struct {
		Status     string `json:"status"`
		Uptime     string `json:"uptime"`
		LastRunID  string `json:"last_run_id,omitempty"`
		LastScanAt string `json:"last_scan_at,omitempty"`
		LastRows   int    `json:"last_rows"`
		LastErrors int    `json:"last_errors"`
	}{
		Status:     status,
		Uptime:     time.Since(h.StartedAt).Round(time.Second).String(),
		LastRunID:  h.LastRunID,
		LastScanAt: lastScan,
		LastRows:   h.LastRows,
		LastErrors: h.LastErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", m.health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[WATCH] metrics server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[WATCH] metrics server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
