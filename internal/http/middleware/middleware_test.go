package middleware

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/service"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))
	})

	t.Run("should replace oversized request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))

		resp, _ := app.Test(req)

		assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(zap.New(core)))

	app.Get("/test", func(c *fiber.Ctx) error {
		logger.FromContext(c.UserContext()).Info("inside_handler")
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "upstream")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	resp, _ := app.Test(req)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	inner := logs.FilterMessage("inside_handler").All()
	require.Len(t, inner, 1)
	assert.Equal(t, "rid-1", inner[0].ContextMap()["request_id"])

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "rid-1", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/test", fields["path"])
	assert.Equal(t, int64(fiber.StatusAccepted), fields["status"])
	assert.Contains(t, fields, "latency_ms")

	app.Test(httptest.NewRequest("GET", "/boom", nil))
	failed := logs.FilterMessage("http_request").FilterField(zap.Int("status", fiber.StatusBadGateway)).All()
	require.Len(t, failed, 1)
	assert.Equal(t, zap.ErrorLevel, failed[0].Level)
}

func signToken(t *testing.T, secret []byte, claims jwt.RegisteredClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	secret := []byte("test-secret")
	app := fiber.New()
	app.Use(Auth(secret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		a := ActorFrom(c)
		return c.JSON(fiber.Map{"user": a.UserID, "link": a.LinkToken, "password": a.LinkPassword})
	})

	valid := signToken(t, secret, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, jwt.SigningMethodHS256)
	expired := signToken(t, secret, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}, jwt.SigningMethodHS256)
	wrongKey := signToken(t, []byte("other"), jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, jwt.SigningMethodHS256)
	noSubject := signToken(t, secret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, jwt.SigningMethodHS256)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantBody   string
	}{
		{name: "valid bearer", headers: map[string]string{"Authorization": "Bearer " + valid}, wantStatus: 200, wantBody: `"user":"alice"`},
		{name: "anonymous", wantStatus: 200, wantBody: `"user":""`},
		{name: "link headers", headers: map[string]string{LinkTokenHeader: "tok", LinkPasswordHeader: "pw"}, wantStatus: 200, wantBody: `"link":"tok"`},
		{name: "expired", headers: map[string]string{"Authorization": "Bearer " + expired}, wantStatus: 401},
		{name: "wrong key", headers: map[string]string{"Authorization": "Bearer " + wrongKey}, wantStatus: 401},
		{name: "no subject", headers: map[string]string{"Authorization": "Bearer " + noSubject}, wantStatus: 401},
		{name: "not bearer", headers: map[string]string{"Authorization": "Basic abc"}, wantStatus: 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				buf := new(bytes.Buffer)
				buf.ReadFrom(resp.Body)
				assert.Contains(t, buf.String(), tt.wantBody)
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per ip")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "refilled after one second")

	now = now.Add(time.Hour)
	l.prune(now)
	l.mu.Lock()
	assert.Empty(t, l.visitors)
	l.mu.Unlock()
}

func TestIPRateLimiterHandler(t *testing.T) {
	app := fiber.New()
	app.Use(NewIPRateLimiter(0.001, 1).Handler())
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, _ := app.Test(httptest.NewRequest("GET", "/public", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest("GET", "/public", nil))
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestClientInfo(t *testing.T) {
	var got model.ClientInfo
	app := fiber.New()
	app.Use(ClientInfo())
	app.Get("/", func(c *fiber.Ctx) error {
		got = service.ClientInfoFrom(c.UserContext())
		return nil
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148")
	req.Header.Set(CountryHeader, "id")
	_, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "mobile", got.DeviceType)
	assert.Equal(t, "ID", got.CountryCode)
	assert.NotEmpty(t, got.IPAddress)
}

func TestDeviceType(t *testing.T) {
	assert.Equal(t, "", deviceType(""))
	assert.Equal(t, "tablet", deviceType("Mozilla/5.0 (iPad; CPU OS 17_0)"))
	assert.Equal(t, "bot", deviceType("curl/8.5.0"))
	assert.Equal(t, "desktop", deviceType("Mozilla/5.0 (X11; Linux x86_64) Firefox/125.0"))
}
