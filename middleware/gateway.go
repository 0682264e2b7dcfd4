package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// bearerToken returns the token from "Bearer <token>", or the raw header
// value when the gateway sends it without the prefix.
func bearerToken(authHeader string) string {
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func tokenMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// GatewayAuthMiddleware validates the Bearer token from the Gateway. Headers
// such as X-User-ID are only trusted behind it. An empty token rejects every
// request.
func GatewayAuthMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Println("❌ [GATEWAY_AUTH] Gateway token is not set, all gateway routes will be refused")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		if !tokenMatches(bearerToken(authHeader), expectedToken) {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}

// CronSecretMiddleware guards scheduler-triggered endpoints with a shared
// bearer secret. An empty secret leaves the route open.
func CronSecretMiddleware(secret string) fiber.Handler {
	if secret == "" {
		log.Println("⚠️  [CRON_AUTH] CRON_SECRET not set, cron endpoints are unauthenticated")
	}

	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [CRON_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if !tokenMatches(bearerToken(authHeader), secret) {
			log.Printf("❌ [CRON_AUTH] Invalid secret for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		return c.Next()
	}
}
