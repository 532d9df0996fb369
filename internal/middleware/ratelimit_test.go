package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimit(t *testing.T) {
	t.Run("bypassed outside production", func(t *testing.T) {
		for _, env := range []string{"test", "development", "stress"} {
			t.Setenv("APP_ENV", env)
			q, err := CheckRateLimit(context.Background(), nil, "test", "1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, q.Allowed, env)
		}
	})

	t.Run("nil redis is an error in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		q, err := CheckRateLimit(context.Background(), nil, "test", "1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, q.Allowed)
	})

	t.Run("counts per resource and id", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			q, err := CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, q.Allowed)
			assert.Equal(t, 1-i, q.Remaining)
		}
		q, err := CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, q.Allowed)
		assert.Equal(t, 0, q.Remaining)
		assert.Equal(t, time.Minute, q.ResetIn)

		q, err = CheckRateLimit(ctx, rdb, "login", "ip:2", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, q.Allowed)

		mr.FastForward(time.Minute + time.Second)
		q, err = CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, q.Allowed, "window expired")
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(t *testing.T, app *fiber.App, path string) int {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("bypass in test mode", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/test"))
	})

	t.Run("fail open with nil redis in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/test"))
	})

	t.Run("fail closed with nil redis in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/sensitive", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, app, "/sensitive"))
	})

	t.Run("keys by session, then identity", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()

		app := fiber.New()
		app.Get("/limited", func(c *fiber.Ctx) error {
			c.Locals(LocalIdentity, "Acme")
			c.Locals(LocalSessionID, c.Query("sid"))
			return c.Next()
		}, RateLimit(rdb, 1, time.Minute, "limited"), ok)

		assert.Equal(t, http.StatusOK, get(t, app, "/limited?sid=tab1"))
		assert.Equal(t, http.StatusTooManyRequests, get(t, app, "/limited?sid=tab1"))
		assert.Equal(t, http.StatusOK, get(t, app, "/limited?sid=tab2"), "each session has its own budget")
		assert.True(t, mr.Exists("rl:limited:session:tab1"))

		assert.Equal(t, http.StatusOK, get(t, app, "/limited"))
		assert.True(t, mr.Exists("rl:limited:identity:Acme"))
	})

	t.Run("throttled response carries retry headers", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()

		app := fiber.New()
		app.Get("/posts/:id", RateLimit(rdb, 1, time.Minute), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/1", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/posts/2", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "keyed by route pattern, not raw path")
		assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))

		var body struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, CodeRateLimited, body.Code)
	})
}
