// Package ratelimit implements the single shared token-bucket admission
// controller for all outbound HTTP fetches, built on
// golang.org/x/time/rate as the underlying refill primitive.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned once all retry waits are exhausted.
var ErrRateLimited = errors.New("ratelimit: exhausted retries")

const (
	defaultRetryWait = 20 * time.Second
	maxRetries       = 3
)

// Limiter is a single token bucket shared across all fetches.
type Limiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	capacity  int
	retryWait time.Duration

	waiting atomic.Int64

	admitted prometheus.Counter
	rejected prometheus.Counter
}

// New builds a limiter with the given capacity (tokens) and refill rate
// (tokens/second), matching the `refill_rate`/`token_capacity` config
// options.
func New(capacity int, refillRate float64) *Limiter {
	return newWithRetryWait(capacity, refillRate, defaultRetryWait)
}

func newWithRetryWait(capacity int, refillRate float64, retryWait time.Duration) *Limiter {
	return &Limiter{
		limiter:   rate.NewLimiter(rate.Limit(refillRate), capacity),
		capacity:  capacity,
		retryWait: retryWait,
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_oracle_ratelimit_admitted_total",
			Help: "Number of fetch tokens admitted by the shared rate limiter.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_oracle_ratelimit_rejected_total",
			Help: "Number of fetches rejected after exhausting retry waits.",
		}),
	}
}

// Collectors exposes the limiter's Prometheus counters for registration
// by the caller; nothing here self-registers globally.
func (l *Limiter) Collectors() []prometheus.Collector {
	return []prometheus.Collector{l.admitted, l.rejected}
}

// TryAcquire deducts n tokens, refilling first. If insufficient tokens
// are available it sleeps retryWait and retries up to maxRetries times
// before returning ErrRateLimited.
func (l *Limiter) TryAcquire(ctx context.Context, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if l.limiter.AllowN(time.Now(), n) {
			l.admitted.Inc()
			return nil
		}
		if attempt == maxRetries {
			break
		}
		l.waiting.Inc()
		glog.V(3).Infof("ratelimit: tokens unavailable, sleeping %s (attempt %d/%d)", l.retryWait, attempt+1, maxRetries)
		t := time.NewTimer(l.retryWait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			l.waiting.Dec()
			return ctx.Err()
		}
		l.waiting.Dec()
	}
	l.rejected.Inc()
	return ErrRateLimited
}

// Capacity returns the configured bucket capacity.
func (l *Limiter) Capacity() int { return l.capacity }
