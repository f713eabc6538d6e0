package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/observability"
)

// RateLimiter implements per-key rate limiting with a token bucket
type RateLimiter struct {
	quota   Quota
	buckets map[string]*bucket
	mu      sync.RWMutex
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates an in-memory rate limiter for the given quota
func NewRateLimiter(quota Quota) *RateLimiter {
	return &RateLimiter{
		quota:   quota,
		buckets: make(map[string]*bucket),
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     float64(rl.quota.Requests),
			lastUpdate: time.Now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)
	b.lastUpdate = now

	// refill proportionally to elapsed time
	b.tokens += elapsed.Seconds() * float64(rl.quota.Requests) / rl.quota.Window.Seconds()
	if b.tokens > float64(rl.quota.Requests) {
		b.tokens = float64(rl.quota.Requests)
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.quota.Requests
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.tokens)
}

// Cleanup removes buckets that have been idle long enough to be full again
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.quota.Window*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// StartCleanup starts a background goroutine to cleanup idle buckets
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.quota.Window)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// RateLimitMiddleware provides HTTP rate limiting keyed by user when
// authenticated, by client IP otherwise
type RateLimitMiddleware struct {
	defaultLimiter *RateLimiter
	metrics        *observability.Metrics
}

// RateLimitOption configures the rate limit middleware
type RateLimitOption func(*RateLimitMiddleware)

// WithRateLimitMetrics records rejected requests
func WithRateLimitMetrics(m *observability.Metrics) RateLimitOption {
	return func(rm *RateLimitMiddleware) { rm.metrics = m }
}

// NewRateLimitMiddleware creates a rate limit middleware with the given
// default quota
func NewRateLimitMiddleware(quota Quota, opts ...RateLimitOption) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		defaultLimiter: NewRateLimiter(quota),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps an HTTP handler with the default quota
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return m.limit(m.defaultLimiter, next)
}

// StartCleanup evicts idle buckets of the default limiter until ctx is done
func (m *RateLimitMiddleware) StartCleanup(ctx context.Context) {
	m.defaultLimiter.StartCleanup(ctx)
}

// Limit returns middleware enforcing a route-specific quota
func (m *RateLimitMiddleware) Limit(quota Quota) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(quota)
	return func(next http.Handler) http.Handler {
		return m.limit(limiter, next)
	}
}

func (m *RateLimitMiddleware) limit(limiter *RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKey(r)

		if !limiter.Allow(key) {
			if m.metrics != nil {
				m.metrics.RateLimitRejectedTotal.WithLabelValues(r.URL.Path).Inc()
			}
			writeRateLimited(w, limiter.quota)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.quota.Requests))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(key)))
		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, quota Quota) {
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", quota.Window.Seconds()))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", quota.Requests))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteTooManyRequests(w, "rate limit exceeded: "+quota.String())
}

// rateLimitKey picks the bucket key: authenticated requests share a bucket
// per user, anonymous ones per client IP
func rateLimitKey(r *http.Request) string {
	if user := CurrentUser(r); user != nil {
		return fmt.Sprintf("user:%d", user.ID)
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
