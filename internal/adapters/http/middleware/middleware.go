package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig sizes the per-client token bucket.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// RateLimiter is an in-process token bucket keyed by client.
// It serves single-node deployments and stands in when Redis is unavailable.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	capacity int
	refill   int
	interval time.Duration
	now      func() time.Time
}

type visitor struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// NewRateLimiter creates a limiter holding capacity tokens, adding refill every interval.
// PRE: capacity, refill and interval are positive
func NewRateLimiter(capacity, refill int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		capacity: capacity,
		refill:   refill,
		interval: interval,
		now:      time.Now,
	}
}

// Allow takes a token for key.
// PRE: key is non-empty
// POST: Returns true and the tokens left, or false and the wait until the next refill
func (rl *RateLimiter) Allow(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{tokens: rl.capacity, lastRefill: now}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if intervals := int(now.Sub(v.lastRefill) / rl.interval); intervals > 0 {
		v.tokens = min(rl.capacity, v.tokens+intervals*rl.refill)
		v.lastRefill = v.lastRefill.Add(time.Duration(intervals) * rl.interval)
	}
	if v.tokens <= 0 {
		return false, 0, rl.interval - now.Sub(v.lastRefill)
	}
	v.tokens--
	return true, v.tokens, 0
}

// Sweep drops visitors idle for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// tokenBucketScript refills and takes one token atomically in Redis.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill_tokens)
  last_refill = last_refill + intervals * interval_ms
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

// RateLimit returns middleware enforcing cfg per client. When rdb is set the
// bucket lives in Redis; Redis errors fall back to the in-process limiter.
func RateLimit(cfg RateLimitConfig, rdb *redis.Client, fallback *RateLimiter) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg.Prefix, c)
			allowed, remaining, retry, err := takeRedisToken(c, cfg, rdb, key)
			if err != nil {
				if rdb != nil {
					slog.Warn("rate_limit_redis_failed", "error", err.Error())
				}
				allowed, remaining, retry = fallback.Allow(key)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				secs := int(math.Ceil(retry.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				slog.Warn("rate_limit_exceeded", "key", key)
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":   "TOO_MANY_REQUESTS",
					"message": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}

var errNoRedis = fmt.Errorf("redis not configured")

func takeRedisToken(c echo.Context, cfg RateLimitConfig, rdb *redis.Client, key string) (bool, int, time.Duration, error) {
	if rdb == nil {
		return false, 0, 0, errNoRedis
	}
	vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
		time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second)).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(vals) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected rate limit result: %v", vals)
	}
	return vals[0] == 1, int(vals[1]), time.Duration(vals[2]) * time.Millisecond, nil
}

// rateKey buckets authenticated callers by actor and anonymous ones by IP.
func rateKey(prefix string, c echo.Context) string {
	if a, ok := ActorFromContext(c); ok {
		return prefix + ":actor:" + a.ID
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return prefix + ":ip:" + ip
}

// SecurityHeaders adds OWASP recommended headers for a JSON API.
func SecurityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		return next(c)
	}
}
