// middleware/rate_limiter.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iamramakanthreddyk/mylab-platform-sub000/config"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/db"
	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/util"
)

// Policy names a sliding-window limit.
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Named policies, overridable through configuration.
func GeneralAPIPolicy() Policy {
	return policyFromConfig("general", 100, 15*time.Minute)
}

func DownloadPolicy() Policy {
	return policyFromConfig("download", 100, time.Hour)
}

func QueryPolicy() Policy {
	return policyFromConfig("query", 10, time.Minute)
}

func policyFromConfig(name string, defaultMax int, defaultWindow time.Duration) Policy {
	max := config.GetInt("ratelimit." + name + ".maxRequests")
	if max <= 0 {
		max = defaultMax
	}
	window := config.GetDuration("ratelimit." + name + ".window")
	if window <= 0 {
		window = defaultWindow
	}
	return Policy{Name: name, MaxRequests: max, Window: window}
}

// RateLimiter decides whether one more request fits a per-key sliding
// window. Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// MemoryRateLimiter keeps windows in process memory. Strictly per-instance:
// a horizontally scaled deployment needs the Redis-backed limiter for
// correct global limits.
type MemoryRateLimiter struct {
	policy Policy

	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryRateLimiter(policy Policy) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		policy:  policy,
		windows: make(map[string][]time.Time),
	}
}

func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	cutoff := now.Add(-l.policy.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.windows[key]
	idx := 0
	for idx < len(window) && window[idx].Before(cutoff) {
		idx++
	}
	window = window[idx:]

	if len(window) >= l.policy.MaxRequests {
		l.windows[key] = window
		retryAfter := window[0].Add(l.policy.Window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter, nil
	}

	l.windows[key] = append(window, now)
	return true, 0, nil
}

// RedisRateLimiter shares one window across instances through the ZSET
// primitive in the db package.
type RedisRateLimiter struct {
	policy Policy
}

func NewRedisRateLimiter(policy Policy) *RedisRateLimiter {
	return &RedisRateLimiter{policy: policy}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return db.RateLimit(ctx, fmt.Sprintf("%s:%s", l.policy.Name, key), l.policy.MaxRequests, l.policy.Window)
}

// RateLimit enforces a policy per actor (falling back to client IP before
// authentication). Limiter failures reject the request: a broken limiter
// must not silently disable protection.
func RateLimit(limiter RateLimiter, policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, err := util.GetUserIDFromContext(c); err == nil && userID != "" {
			key = userID
		}
		key = fmt.Sprintf("%s:%s", key, policy.Name)

		allowed, retryAfter, err := limiter.Allow(c, key)
		if err != nil {
			logger.Error("Rate limiting failed", zap.Error(err), zap.String("key", key))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting failed"})
			c.Abort()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))
		c.Header("X-RateLimit-Window", policy.Window.String())

		if !allowed {
			retrySeconds := int(retryAfter.Seconds())
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(retrySeconds))
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("policy", policy.Name),
				zap.Int("limit", policy.MaxRequests))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"retryAfter": retrySeconds,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
