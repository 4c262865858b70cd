package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 2 * time.Minute
)

// Limiter paces requests to one market-data API. On top of the token bucket
// it holds a backoff penalty that grows while the API keeps answering 429.
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	backoff time.Duration
}

// NewLimiter creates a new rate limiter
// perMinute specifies the number of requests allowed per minute
func NewLimiter(name string, perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	rps := float64(perMinute) / 60.0
	// burst of 1/10th of the per-minute limit, between 1 and 5
	burst := min(max(perMinute/10, 1), 5)

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait sleeps out any backoff penalty, then blocks until a token is available
// or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.Backoff(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited should be called when a 429 response is received.
// The penalty starts at initialBackoff and doubles up to maxBackoff.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backoff == 0 {
		l.backoff = initialBackoff
		return
	}
	l.backoff = min(l.backoff*2, maxBackoff)
}

// ResetBackoff clears the penalty after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = 0
}

// Backoff returns the current penalty applied before each Wait
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}
