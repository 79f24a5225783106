package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLimiter struct {
	allowed bool
}

func (f failingLimiter) Allow(context.Context, ratelimit.Policy, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: f.allowed}, fmt.Errorf("%w: boom", ratelimit.ErrStoreUnavailable)
}

func limitedApp(limiter ratelimit.Limiter, policy ratelimit.Policy) *fiber.App {
	app := fiber.New()
	app.Post("/send", RateLimit(limiter, policy, KeyByIP), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	policy := ratelimit.Policy{Name: "chat", Max: 2, Window: time.Minute}
	app := limitedApp(ratelimit.NewMemoryLimiter(), policy)

	send := func(ip string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/send", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	for i := 0; i < 2; i++ {
		resp := send("203.0.113.5")
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp := send("203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, send("198.51.100.9").StatusCode, "other addresses have their own window")
}

func TestRateLimit_StoreFailure(t *testing.T) {
	policy := ratelimit.Policy{Name: "subscribe", Max: 1, Window: time.Minute}

	resp, err := limitedApp(failingLimiter{allowed: true}, policy).Test(httptest.NewRequest(http.MethodPost, "/send", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = limitedApp(failingLimiter{allowed: false}, policy).Test(httptest.NewRequest(http.MethodPost, "/send", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	app := limitedApp(nil, ratelimit.Policy{Name: "chat", Max: 1, Window: time.Minute})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/send", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}
}

func TestClientIP(t *testing.T) {
	app := fiber.New()
	app.Get("/ip", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}
