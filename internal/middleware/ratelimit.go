package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"linkly/internal/apperr"
	"linkly/internal/config"
)

// tokenBucket refills one token per interval up to capacity. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals)
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles per client IP and route. It is a no-op when disabled or
// without Redis, and it fails open when Redis errors.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil || cfg.Capacity <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	ttl := int64(math.Ceil((time.Duration(cfg.Capacity) * cfg.RefillInterval).Seconds()))
	if ttl < 1 {
		ttl = 1
	}

	return func(c *gin.Context) {
		key := rateKey(cfg.Prefix, c)
		ctx := c.Request.Context()

		vals, err := tokenBucket.Run(ctx, rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillInterval.Milliseconds(),
			ttl,
		).Int64Slice()
		if err != nil || len(vals) != 3 {
			slog.WarnContext(ctx, "rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

		if vals[0] != 1 {
			secs := int64(math.Ceil(float64(vals[2]) / 1000))
			c.Header("Retry-After", strconv.FormatInt(secs, 10))
			Abort(c, apperr.TooManyRequests("Too many requests, please try again later"))
			return
		}
		c.Next()
	}
}

func rateKey(prefix string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.Join([]string{prefix, "ip", ip, "route", fmt.Sprintf("%s %s", c.Request.Method, route)}, ":")
}
