package handlers

import (
	"tournament-registration/middleware"
	"tournament-registration/services"

	"github.com/gofiber/fiber/v2"
)

// SetupWebhookRoutes registers provider callbacks. They authenticate by
// signature, not through the gateway.
func SetupWebhookRoutes(app *fiber.App, webhookService *services.WebhookService) {
	app.Post("/webhooks/stripe", webhookService.HandleStripeWebhook)
}

// SetupCronRoutes registers the endpoint an external scheduler hits to run a sweep.
func SetupCronRoutes(app *fiber.App, sweeperService *services.SweeperService, cronSecret string) {
	cron := app.Group("/cron", middleware.CronSecretMiddleware(cronSecret))
	cron.Get("/expire-payments", sweeperService.ExpirePayments)
	cron.Post("/expire-payments", sweeperService.ExpirePayments)
}

// SetupRegistrationRoutes registers the gateway-authenticated /s routes.
func SetupRegistrationRoutes(app *fiber.App, registrationService *services.RegistrationService, checkoutService *services.CheckoutService, gatewayToken string) {
	// 🔐 Gateway first, then the user context it forwards
	secured := app.Group("/s", middleware.GatewayAuthMiddleware(gatewayToken), middleware.UserContextMiddleware())

	// Registrant
	secured.Post("/tournaments/:id/registrations", registrationService.CreateRegistration)
	secured.Get("/registrations/:id/payment", registrationService.GetPaymentSummary)
	secured.Post("/payments/checkout", checkoutService.CreateCheckoutSession)

	// Organizer
	secured.Get("/tournaments/:id/registrations", registrationService.ListRegistrations)
	secured.Patch("/registrations/:id/decision", registrationService.DecideRegistration)
}
