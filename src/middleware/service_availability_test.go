package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func buildApp(sa *ServiceAvailability) *fiber.App {
	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/v1/orders/x", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestServiceAvailabilityHealthAlwaysPassesUnderMaintenance(t *testing.T) {
	sa := NewServiceAvailability(0)
	sa.SetMaintenanceMode(true)
	app := buildApp(sa)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected /health to stay available under maintenance mode, got %d", resp.StatusCode)
	}
}

func TestServiceAvailabilityRejectsOtherRoutesUnderMaintenance(t *testing.T) {
	sa := NewServiceAvailability(0)
	sa.SetMaintenanceMode(true)
	app := buildApp(sa)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders/x", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 under maintenance mode, got %d", resp.StatusCode)
	}
}

func TestServiceAvailabilityRejectsWhenOverCapacity(t *testing.T) {
	sa := NewServiceAvailability(1)
	sa.inFlightRequests.Store(1)
	app := buildApp(sa)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders/x", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when in-flight requests already at capacity, got %d", resp.StatusCode)
	}
}
