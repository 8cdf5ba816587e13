package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"prosphere/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

var errNoRateLimitStore = errors.New("rate limit store is not configured")

// rateLimitExempt lists APP_ENV values that skip rate limiting entirely.
var rateLimitExempt = map[string]bool{"test": true, "development": true, "stress": true}

func rateLimitDisabled() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	return rateLimitExempt[env]
}

func rateLimitKey(resource, id string) string {
	return "rl:" + resource + ":" + id
}

// window is the state of one fixed window after a hit.
type window struct {
	count int64
	reset time.Duration
}

// hit counts one request against resource/id. The first hit of a window sets its expiry.
func hit(ctx context.Context, rdb *redis.Client, resource, id string, size time.Duration) (window, error) {
	if rdb == nil {
		return window{}, errNoRateLimitStore
	}
	key := rateLimitKey(resource, id)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("rate_limit").Inc()
		return window{}, err
	}
	w := window{count: cnt, reset: size}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, size).Err(); err != nil {
			observability.RedisErrors.WithLabelValues("rate_limit").Inc()
		}
		return w, nil
	}
	if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		w.reset = ttl
	}
	return w, nil
}

// CheckRateLimit reports whether id may make another request to resource.
// Rate limiting is disabled when APP_ENV is "test", "development" or "stress".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, size time.Duration) (bool, error) {
	if rateLimitDisabled() {
		return true, nil
	}
	w, err := hit(ctx, rdb, resource, id, size)
	if err != nil {
		return false, err
	}
	return w.count <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// Callers are keyed by user id when authenticated and by IP otherwise.
// Redis failures let the request through.
func RateLimit(rdb *redis.Client, limit int, size time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, size, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy. Responses
// carry X-RateLimit-Limit and X-RateLimit-Remaining, and Retry-After once the
// limit is hit.
func RateLimitWithPolicy(rdb *redis.Client, limit int, size time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rateLimitDisabled() {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if uid := UserID(c); uid != "" {
			id = "user:" + uid
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		w, err := hit(c.UserContext(), rdb, resource, id, size)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		}

		remaining := int64(limit) - w.count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if w.count > int64(limit) {
			observability.RateLimitRejections.WithLabelValues(resource).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(w.reset.Round(time.Second).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
