// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/metrics"
)

// DefaultLimiterClients bounds how many per-client buckets are remembered.
const DefaultLimiterClients = 10_000

// RateLimiter applies a per-client token bucket to write endpoints. Clients
// are keyed by a salted hash of their IP; the least recently seen buckets
// are evicted once the cache is full.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	salt     string
	limiters *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter allows perMinute requests per client, with bursts of the
// same size. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int, salt string, clients int) (*RateLimiter, error) {
	if clients <= 0 {
		clients = DefaultLimiterClients
	}
	cache, err := lru.New[string, *rate.Limiter](clients)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %w", err)
	}
	l := &RateLimiter{salt: salt, limiters: cache, limit: rate.Inf, burst: 1}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l, nil
}

// Allow reports whether the client at ip may make another request now.
func (l *RateLimiter) Allow(ip string) bool {
	if l.limit == rate.Inf {
		return true
	}
	key := auth.HashIP(ip, l.salt)

	l.mu.Lock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, lim)
	}
	l.mu.Unlock()

	return lim.Allow()
}

// Limit rejects requests over the client's budget with 429.
func (l *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(GetClientIP(r)) {
			metrics.RateLimited.WithLabelValues(r.Pattern).Inc()
			slog.Warn("rate limited", "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			ErrorResponse(w, http.StatusTooManyRequests, "Too many requests, slow down")
			return
		}
		next(w, r)
	}
}
