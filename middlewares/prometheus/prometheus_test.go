package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareExposesRequestMetrics(t *testing.T) {
	app := fiber.New()
	p := New("upscaler-test")
	p.RegisterAt(app, "/metrics")
	app.Use(p.Middleware)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/ping",service="upscaler-test",status_code="200"} 1`)
	assert.Equal(t, "upscaler-test", p.GetConstLabels()["service"])
}
