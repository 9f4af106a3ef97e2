// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

const (
	visitorStaleAfter  = 10 * time.Minute
	visitorSweepEvery  = 5 * time.Minute
	defaultMaxVisitors = 10000
)

// RateLimitConfig configures per-IP token bucket limiting. Every search and
// Wikidata lookup may fan out into graph traversals or upstream calls.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per IP. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	// MaxVisitors caps the number of tracked IPs; the least recently seen
	// are evicted on sweep. Zero means 10000.
	MaxVisitors int
}

// Validate checks the config and applies defaults.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return sgerr.Errorf(sgerr.CodeServerConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return sgerr.Errorf(sgerr.CodeServerConfigInvalid,
			"rate limit burst must be positive when rate is set (got burst=%d, rate=%g)",
			c.Burst, c.RequestsPerSecond)
	}
	if c.MaxVisitors < 0 {
		return sgerr.Errorf(sgerr.CodeServerConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = defaultMaxVisitors
	}
	return nil
}

type visitor struct {
	tokens     float64
	lastSeen   time.Time
	lastRefill time.Time
}

type rateLimiter struct {
	cfg    RateLimitConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor

	done     chan struct{}
	stopOnce sync.Once
}

func newRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *rateLimiter {
	l := &rateLimiter{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	if cfg.RequestsPerSecond > 0 {
		go l.sweepLoop()
	}
	return l
}

func (l *rateLimiter) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// allow takes one token from ip's bucket.
func (l *rateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{tokens: float64(l.cfg.Burst), lastRefill: now}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	v.tokens = min(v.tokens+now.Sub(v.lastRefill).Seconds()*l.cfg.RequestsPerSecond, float64(l.cfg.Burst))
	v.lastRefill = now

	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

func (l *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(visitorSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

// sweep drops stale visitors and enforces MaxVisitors.
func (l *rateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	type entry struct {
		ip       string
		lastSeen time.Time
	}
	entries := make([]entry, 0, len(l.visitors))
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorStaleAfter {
			delete(l.visitors, ip)
			continue
		}
		entries = append(entries, entry{ip: ip, lastSeen: v.lastSeen})
	}

	if l.cfg.MaxVisitors > 0 && len(entries) > l.cfg.MaxVisitors {
		slices.SortFunc(entries, func(a, b entry) int { return a.lastSeen.Compare(b.lastSeen) })
		evict := len(entries) - l.cfg.MaxVisitors
		for _, e := range entries[:evict] {
			delete(l.visitors, e.ip)
		}
		l.logger.Warn("rate limiter visitor cap enforced", "evicted", evict, "max_visitors", l.cfg.MaxVisitors)
	}
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	if l.cfg.RequestsPerSecond <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Key by host so several connections from one client share a bucket.
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !l.allow(ip) {
			l.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte(`{"error":"rate limit exceeded"}`)); err != nil {
				l.logger.Warn("failed to write rate limit response", "error", err)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
