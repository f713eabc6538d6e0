package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/observability"
)

// DistributedRateLimiter implements rate limiting backed by Redis so the
// quota holds across multiple instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	quota  Quota
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, quota Quota, prefix string) *DistributedRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		quota:  quota,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed using a Redis counter window
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.quota.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.quota.Requests), nil
}

// Remaining returns the number of remaining requests in the window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.quota.Requests, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.quota.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TTL returns the time until the rate limit window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the rate limit for a key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// DistributedRateLimitMiddleware provides HTTP rate limiting shared across
// instances through Redis. It fails open on Redis errors so a cache outage
// does not take the API down with it.
type DistributedRateLimitMiddleware struct {
	defaultLimiter *DistributedRateLimiter
	redis          *redis.Client
	logger         *observability.Logger
	metrics        *observability.Metrics
	failOpen       bool
}

// DistributedRateLimitOption configures the middleware
type DistributedRateLimitOption func(*DistributedRateLimitMiddleware)

// WithDistributedRateLimitMetrics records rejected requests
func WithDistributedRateLimitMetrics(m *observability.Metrics) DistributedRateLimitOption {
	return func(rm *DistributedRateLimitMiddleware) { rm.metrics = m }
}

// WithFailClosed rejects requests with 503 when Redis is unreachable
func WithFailClosed() DistributedRateLimitOption {
	return func(rm *DistributedRateLimitMiddleware) { rm.failOpen = false }
}

// NewDistributedRateLimitMiddleware creates a Redis-backed rate limit
// middleware with the given default quota
func NewDistributedRateLimitMiddleware(redisClient *redis.Client, quota Quota, logger *observability.Logger, opts ...DistributedRateLimitOption) *DistributedRateLimitMiddleware {
	m := &DistributedRateLimitMiddleware{
		defaultLimiter: NewDistributedRateLimiter(redisClient, quota, "ratelimit:default"),
		redis:          redisClient,
		logger:         logger,
		failOpen:       true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps an HTTP handler with the default quota
func (m *DistributedRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return m.limit(m.defaultLimiter, next)
}

// Limit returns middleware enforcing a route-specific quota
func (m *DistributedRateLimitMiddleware) Limit(quota Quota, prefix string) func(http.Handler) http.Handler {
	limiter := NewDistributedRateLimiter(m.redis, quota, "ratelimit:"+prefix)
	return func(next http.Handler) http.Handler {
		return m.limit(limiter, next)
	}
}

func (m *DistributedRateLimitMiddleware) limit(limiter *DistributedRateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := rateLimitKey(r)

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			m.logger.WithError(err).Warn("rate limiter redis error")
			if m.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
			return
		}

		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitRejectedTotal.WithLabelValues(r.URL.Path).Inc()
			}
			m.writeRateLimited(ctx, w, limiter, key)
			return
		}

		if remaining, err := limiter.Remaining(ctx, key); err == nil {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.quota.Requests))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *DistributedRateLimitMiddleware) writeRateLimited(ctx context.Context, w http.ResponseWriter, limiter *DistributedRateLimiter, key string) {
	retryAfter := limiter.quota.Window.Seconds()
	if ttl, err := limiter.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl.Seconds()
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.quota.Requests))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteTooManyRequests(w, "rate limit exceeded: "+limiter.quota.String())
}

// HealthCheck verifies Redis connectivity for rate limiting
func (m *DistributedRateLimitMiddleware) HealthCheck(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}
