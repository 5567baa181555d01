// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/constants"
	"github.com/parley-chat/parley/internal/platform/respond"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Login and account creation
// are the routes it mainly protects from password guessing.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	proxies TrustedProxies
	now     func() time.Time
}

// NewRateLimiter allows rps requests per second per client IP with the given
// burst. The client IP is the TCP peer unless it is one of proxies.
func NewRateLimiter(rps float64, burst int, proxies TrustedProxies) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		proxies: proxies,
		now:     time.Now,
	}
}

// Reserve takes a token for ip. When none is available it returns false and
// how long the client should wait, without consuming anything.
func (limiter *RateLimiter) Reserve(ip string) (bool, time.Duration) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()
	b, found := limiter.buckets[ip]
	if !found {
		b = &bucket{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.buckets[ip] = b
	}
	b.lastSeen = now

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

// Sweep forgets clients idle for longer than ttl.
func (limiter *RateLimiter) Sweep(ttl time.Duration) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	cutoff := limiter.now().Add(-ttl)
	for ip, b := range limiter.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(limiter.buckets, ip)
		}
	}
}

// Run sweeps idle clients until ctx is cancelled.
func (limiter *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.Sweep(constants.RateLimitClientTTL)
		case <-ctx.Done():
			return
		}
	}
}

// Middleware answers 429 with a Retry-After header once a client's bucket is empty.
func (limiter *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ok, wait := limiter.Reserve(limiter.proxies.ClientIP(request))
		if ok {
			next.ServeHTTP(writer, request)
			return
		}

		seconds := max(1, int(math.Ceil(wait.Seconds())))
		writer.Header().Set("Retry-After", strconv.Itoa(seconds))
		respond.Error(writer, request, apperr.RateLimited(seconds))
	})
}
