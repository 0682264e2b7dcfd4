package services

import (
	"errors"

	"tournament-registration/lifecycle"
	"tournament-registration/payments"

	"github.com/gofiber/fiber/v2"
)

// errorKind maps an error to its HTTP status and the kind reported to clients.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return fiber.StatusNotFound, "NotFound"
	case errors.Is(err, lifecycle.ErrForbidden), errors.Is(err, lifecycle.ErrNotPayable):
		return fiber.StatusForbidden, "Forbidden"
	case errors.Is(err, lifecycle.ErrDeadlineExpired):
		return fiber.StatusGone, "DeadlineExpired"
	case errors.Is(err, lifecycle.ErrAlreadyPaid):
		return fiber.StatusConflict, "AlreadyPaid"
	case errors.Is(err, ErrAlreadyDecided):
		return fiber.StatusConflict, "AlreadyDecided"
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest, "InvalidInput"
	case errors.Is(err, payments.ErrInvalidSignature):
		return fiber.StatusBadRequest, "InvalidSignature"
	case errors.Is(err, payments.ErrMalformedEvent):
		return fiber.StatusBadRequest, "MalformedEvent"
	case errors.Is(err, payments.ErrProviderUnavailable):
		return fiber.StatusBadGateway, "ProviderUnavailable"
	case errors.Is(err, lifecycle.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, "StoreUnavailable"
	}
	return fiber.StatusInternalServerError, "Internal"
}

func respondError(c *fiber.Ctx, err error) error {
	status, kind := errorKind(err)
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind})
}

// callerID is the gateway-authenticated user set by middleware.UserContextMiddleware.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
