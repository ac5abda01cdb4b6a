// Package proxy rotates outbound proxies across store runs.
package proxy

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCooldown is how long a failed proxy sits out of the rotation.
const DefaultCooldown = 5 * time.Minute

// Pool hands out proxies round-robin, skipping those that failed within the
// cooldown. A pool without proxies always returns "" (direct connection).
type Pool struct {
	mu       sync.Mutex
	proxies  []string
	next     int
	failed   map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// New creates a Pool. A non-positive cooldown uses DefaultCooldown.
func New(proxies []string, cooldown time.Duration) *Pool {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Pool{
		proxies:  append([]string(nil), proxies...),
		failed:   make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Len reports the number of configured proxies.
func (p *Pool) Len() int {
	return len(p.proxies)
}

// Next returns the next healthy proxy. When every proxy is cooling down, the
// one that failed longest ago is reused.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	now := p.now()
	oldest := ""
	var oldestAt time.Time
	for range p.proxies {
		proxy := p.proxies[p.next]
		p.next = (p.next + 1) % len(p.proxies)

		at, ok := p.failed[proxy]
		if !ok {
			return proxy
		}
		if now.Sub(at) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy
		}
		if oldest == "" || at.Before(oldestAt) {
			oldest, oldestAt = proxy, at
		}
	}

	log.Warn().Str("proxy", oldest).Msg("All proxies cooling down, reusing the oldest failure")
	return oldest
}

// MarkFailed takes proxy out of the rotation for the cooldown.
func (p *Pool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
	log.Debug().Str("proxy", proxy).Dur("cooldown", p.cooldown).Msg("Proxy marked failed")
}

// MarkHealthy returns proxy to the rotation.
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
