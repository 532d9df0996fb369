package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"opcdiary/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatedRequestLogsCarrySession(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-1")
		return c.Next()
	}, ContextMiddleware())
	app.Get("/me", AuthRequired, func(c *fiber.Ctx) error {
		logger.InfoContext(c.UserContext(), "handled")
		return c.SendStatus(fiber.StatusOK)
	})

	token, err := IssueToken(testSecret, "Acme", "tab-1", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "handled", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "Acme", line["identity"])
	assert.Equal(t, "tab-1", line["session_id"])
}

func TestUnauthenticatedRequestLogsOmitSession(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})

	app := fiber.New()
	app.Use(ContextMiddleware())
	app.Get("/health", func(c *fiber.Ctx) error {
		logger.InfoContext(c.UserContext(), "handled")
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "identity")
	assert.NotContains(t, line, "session_id")
}
