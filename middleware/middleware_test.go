package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(t *testing.T, app *fiber.App, method, path string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestGatewayAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("gw-token"), UserContextMiddleware())
	app.Get("/s/me", func(c *fiber.Ctx) error { return c.SendString(c.Locals("user_id").(string)) })

	spoofed := map[string]string{"X-User-ID": "organizer-1"}
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/s/me", spoofed))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/s/me",
		map[string]string{"X-User-ID": "organizer-1", "Authorization": "Bearer wrong"}))
	assert.Equal(t, fiber.StatusOK, status(t, app, "GET", "/s/me",
		map[string]string{"X-User-ID": "organizer-1", "Authorization": "Bearer gw-token"}))
	assert.Equal(t, fiber.StatusOK, status(t, app, "GET", "/s/me",
		map[string]string{"X-User-ID": "organizer-1", "Authorization": "gw-token"}))
}

func TestGatewayAuthMiddleware_EmptyTokenRefusesAll(t *testing.T) {
	app := fiber.New()
	app.Get("/s/me", GatewayAuthMiddleware(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/s/me", map[string]string{"Authorization": "Bearer "}))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/s/me", map[string]string{"Authorization": "Bearer anything"}))
}

func TestCronSecretMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/cron", CronSecretMiddleware("s3cret"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/cron", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/cron", map[string]string{"Authorization": "Bearer nope"}))
	assert.Equal(t, fiber.StatusNoContent, status(t, app, "GET", "/cron", map[string]string{"Authorization": "Bearer s3cret"}))
}

func TestCronSecretMiddleware_OpenWhenUnset(t *testing.T) {
	app := fiber.New()
	app.Get("/cron", CronSecretMiddleware(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	assert.Equal(t, fiber.StatusNoContent, status(t, app, "GET", "/cron", nil))
}

func TestUserContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(UserContextMiddleware())
	app.Get("/s/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/s/me", nil))
	assert.Equal(t, fiber.StatusOK, status(t, app, "GET", "/s/me", map[string]string{"X-User-ID": "user-1"}))
	assert.Equal(t, fiber.StatusNoContent, status(t, app, "GET", "/public", nil))
}
