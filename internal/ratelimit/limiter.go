// Package ratelimit paces requests per host and spaces out page actions.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests by the host of their URL.
type RateLimiter interface {
	// Wait blocks until a request for urlStr may proceed or ctx is done.
	Wait(ctx context.Context, urlStr string) error
	// Allow reports whether a request for urlStr may proceed right now.
	Allow(urlStr string) bool
	// Reserve reserves a token for urlStr.
	Reserve(urlStr string) *rate.Reservation
}

// DomainLimiter keeps one token bucket per host. URLs without a host, such as
// data: URLs, are never throttled.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host.
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 4.0
	}
	if burst <= 0 {
		burst = 8
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	host := hostOf(urlStr)
	if host == "" {
		return nil
	}
	return dl.getLimiter(host).Wait(ctx)
}

func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := hostOf(urlStr)
	if host == "" {
		return true
	}
	return dl.getLimiter(host).Allow()
}

func (dl *DomainLimiter) Reserve(urlStr string) *rate.Reservation {
	host := hostOf(urlStr)
	if host == "" {
		return rate.NewLimiter(rate.Inf, 0).Reserve()
	}
	return dl.getLimiter(host).Reserve()
}

func (dl *DomainLimiter) getLimiter(host string) *rate.Limiter {
	dl.mu.RLock()
	limiter, exists := dl.limiters[host]
	dl.mu.RUnlock()
	if exists {
		return limiter
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if limiter, exists := dl.limiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(dl.perHost, dl.burst)
	dl.limiters[host] = limiter
	return limiter
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Jitter is a randomized pause between browser actions. The zero value
// never sleeps.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Duration draws a pause in [Min, Max].
func (j Jitter) Duration() time.Duration {
	if j.Max <= 0 {
		return 0
	}
	if j.Max <= j.Min {
		return j.Max
	}
	return j.Min + rand.N(j.Max-j.Min+1)
}

// Sleep pauses for a drawn duration or until ctx is done.
func (j Jitter) Sleep(ctx context.Context) error {
	d := j.Duration()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
