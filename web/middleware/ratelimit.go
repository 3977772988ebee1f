package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/caching"
	"github.com/ytschitwan/portal/logger"
)

const rateWindow = time.Minute

// Counter increments the request count of key in the current window and
// returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int
	KeyFunc           func(c *gin.Context) string
	Counter           Counter
}

// DefaultRateLimitConfig limits by client IP with per-process counters.
// ClientIP only honours forwarding headers sent by the engine's trusted proxies.
func DefaultRateLimitConfig(perMinute int) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: perMinute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		Counter: NewMemoryCounter(),
	}
}

// MemoryCounter keeps fixed windows in process memory.
type MemoryCounter struct {
	counters *caching.WindowCounter
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counters: caching.NewWindowCounter(2 * rateWindow)}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	return m.counters.Incr(key, window), nil
}

// RateLimitMiddleware counts requests per key and route in fixed one-minute
// windows. A limit <= 0 disables it. A failing counter lets the request through.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if config.Counter == nil {
		config.Counter = NewMemoryCounter()
	}

	return func(c *gin.Context) {
		client := config.KeyFunc(c)
		key := "ratelimit:" + client + ":" + c.FullPath()

		count, err := config.Counter.Incr(c.Request.Context(), key, rateWindow)
		if err != nil {
			logger.Warning("rate limit counter unavailable:", err)
			c.Next()
			return
		}

		limit := int64(config.RequestsPerMinute)
		remaining := max(limit-count, 0)
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			logger.Warningf("Rate limit exceeded for %s on %s (count: %d)", client, c.FullPath(), count)
			c.Header("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			abortJSON(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		c.Next()
	}
}
