package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"opcdiary/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// CodeRateLimited is the error code of a throttled request.
const CodeRateLimited = "RATE_LIMITED"

var errNoRedis = errors.New("redis client is nil")

// Quota is the outcome of one rate limit check.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// limitsDisabled reports whether the configured environment skips rate
// limiting. Local runs and load tests are never throttled.
func limitsDisabled() bool {
	env := os.Getenv("APP_ENV")
	if cfg != nil && cfg.Env != "" {
		env = cfg.Env
	}
	switch env {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit of subject against resource and reports
// whether it is still within limit for the current window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, subject string, limit int, window time.Duration) (Quota, error) {
	if limitsDisabled() {
		return Quota{Allowed: true, Remaining: limit}, nil
	}
	if rdb == nil {
		return Quota{}, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", resource, subject)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return Quota{}, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return Quota{}, err
		}
	}
	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return Quota{
		Allowed:   cnt <= int64(limit),
		Remaining: max(limit-int(cnt), 0),
		ResetIn:   ttl,
	}, nil
}

// RateLimitSubject picks the key a request is counted under: the session
// when the auth middleware ran, so two tabs of one company are throttled
// apart, otherwise the remote address.
func RateLimitSubject(c *fiber.Ctx) string {
	if sid, ok := c.Locals(LocalSessionID).(string); ok && sid != "" {
		return "session:" + sid
	}
	if identity, ok := c.Locals(LocalIdentity).(string); ok && identity != "" {
		return "identity:" + identity
	}
	return "ip:" + c.IP()
}

// RateLimit allows limit requests per window and fails open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy allows limit requests per window. The resource
// defaults to the route path.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Route().Path
		if len(name) > 0 {
			resource = name[0]
		}
		subject := RateLimitSubject(c)

		q, err := CheckRateLimit(c.UserContext(), rdb, resource, subject, limit, window)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit check failed",
				"resource", resource, "subject", subject, "fail_closed", policy == FailClosed, "error", err)
			if policy == FailClosed {
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					&models.AppError{Code: CodeRateLimited, Message: "rate limit unavailable"})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.ResetIn.Round(time.Second)/time.Second)))
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: CodeRateLimited, Message: "rate limit exceeded"})
		}
		return c.Next()
	}
}
