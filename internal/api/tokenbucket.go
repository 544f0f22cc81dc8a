/**
 * @description
 * In-memory per-client token bucket limiting for mutating routes. This is
 * the first line of defense against a misbehaving client hammering one
 * instance; the Redis limiter on registration enforces the shared budget
 * across replicas.
 */
package api

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// tokenBucket tracks one client's remaining request budget.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter is a thread-safe in-memory token bucket keyed by
// client IP. Buckets refill continuously at ratePerMinute and cap at burst.
type TokenBucketLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*tokenBucket
	ratePerMinute float64
	burst         float64
	lastSweep     time.Time
	now           func() time.Time
}

// NewTokenBucketLimiter creates a limiter allowing ratePerMinute sustained
// requests per client with a burst of twice that.
func NewTokenBucketLimiter(ratePerMinute int) *TokenBucketLimiter {
	if ratePerMinute < 1 {
		ratePerMinute = 1
	}
	return &TokenBucketLimiter{
		buckets:       make(map[string]*tokenBucket),
		ratePerMinute: float64(ratePerMinute),
		burst:         float64(ratePerMinute * 2),
		now:           time.Now,
	}
}

// Allow consumes one token for the key, refilling first based on elapsed
// time. Idle buckets are swept opportunistically to bound memory.
func (l *TokenBucketLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > 5*time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.lastRefill) > 10*time.Minute {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}

	refill := now.Sub(b.lastRefill).Minutes() * l.ratePerMinute
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// ThrottleMutations returns a middleware that applies the token bucket to
// every non-GET request, keyed by client IP.
func ThrottleMutations(limiter *TokenBucketLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(clientIP(r)) {
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndexByte(ip, ':'); idx > 0 {
		return ip[:idx]
	}
	return ip
}
