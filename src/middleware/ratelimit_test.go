package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("expected the 4th request in the same window to be denied")
	}
}

func TestRateLimiterTracksClientsIndependently(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("1.1.1.1") {
		t.Error("expected first client's first request to be allowed")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("expected a different client's first request to be allowed regardless of the first client's count")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("expected first client's second request in the same window to be denied")
	}
}

func TestRateLimiterMiddlewareReturns429WhenExceeded(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		return req
	}

	first, err := app.Test(newRequest())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", first.StatusCode)
	}

	second, err := app.Test(newRequest())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected second request from the same client to be rate limited, got %d", second.StatusCode)
	}
}
