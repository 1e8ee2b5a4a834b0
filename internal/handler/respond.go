package handler

import (
	"errors"
	"log"

	"go-order-commit/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// Helper untuk ambil user info dari JWT context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system"
	}
	return userID.(string)
}

func getUserName(c *fiber.Ctx) string {
	userName := c.Locals("user_name")
	if userName == nil {
		return "Unknown"
	}
	return userName.(string)
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Conflicts are data the caller renders; integrity and storage failures
// stay opaque.
func respondError(c *fiber.Ctx, err error) error {
	if conflict, ok := apperr.AsConflict(err); ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"ok":        false,
			"conflicts": conflict.Conflicts,
		})
	}
	if errors.Is(err, apperr.ErrBusy) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "stock is busy, please retry",
			"retryable": true,
		})
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found or inactive"})
	}
	if ie, ok := apperr.AsIntegrity(err); ok {
		// Logged with detail for investigation, surfaced without it
		log.Println("INTEGRITY VIOLATION:", ie.Detail)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}
