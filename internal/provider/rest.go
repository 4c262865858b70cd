package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"fvgscan/internal/ratelimit"
	"fvgscan/pkg/model"
)

// endpoint is the rate-limited JSON-over-HTTP plumbing the REST providers
// share. Embedding it supplies Name, RateLimit and a key-based IsAvailable.
type endpoint struct {
	name      string
	key       string
	baseURL   string
	perMinute int
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
}

func newEndpoint(name, key, baseURL string, perMinute int) endpoint {
	return endpoint{
		name:      name,
		key:       key,
		baseURL:   baseURL,
		perMinute: perMinute,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter(name, perMinute),
	}
}

func (e *endpoint) Name() string      { return e.name }
func (e *endpoint) RateLimit() int    { return e.perMinute }
func (e *endpoint) IsAvailable() bool { return e.key != "" }

func (e *endpoint) fail(err error, retryable bool) *ProviderError {
	return &ProviderError{Provider: e.name, Err: err, Retryable: retryable}
}

// throttled records an upstream rate limit, including ones reported inside
// a 200 body
func (e *endpoint) throttled(symbol string) *ProviderError {
	e.limiter.SignalRateLimited()
	log.Printf("[%s] rate limited on %s, backing off %s", strings.ToUpper(e.name), symbol, e.limiter.Backoff())
	return e.fail(fmt.Errorf("rate limited"), true)
}

// getJSON waits for the limiter, GETs u and decodes the body into v.
// 429 and 5xx come back retryable; other non-200 statuses are final unless
// listed in bodyStatuses, whose bodies still carry a JSON error document.
func (e *endpoint) getJSON(ctx context.Context, symbol, u string, v any, bodyStatuses ...int) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return e.fail(err, true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return e.throttled(symbol)
	case resp.StatusCode != http.StatusOK && !slices.Contains(bodyStatuses, resp.StatusCode):
		return e.fail(fmt.Errorf("status %d", resp.StatusCode), resp.StatusCode >= 500)
	}
	e.limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return e.fail(fmt.Errorf("decoding %s response: %w", symbol, err), false)
	}
	return nil
}

// keepRange drops candles outside [start, end) and orders the rest by date
func keepRange(candles []model.Candle, start, end time.Time) []model.Candle {
	kept := slices.DeleteFunc(candles, func(c model.Candle) bool {
		return !inRange(c.Time, start, end)
	})
	slices.SortFunc(kept, func(a, b model.Candle) int {
		return a.Time.Compare(b.Time)
	})
	return kept
}
