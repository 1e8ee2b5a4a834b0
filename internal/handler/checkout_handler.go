package handler

import (
	"go-order-commit/internal/model"
	"go-order-commit/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	engine    service.CommitEngine
	validator service.ConflictValidator
}

func NewCheckoutHandler(engine service.CommitEngine, cv service.ConflictValidator) *CheckoutHandler {
	return &CheckoutHandler{engine: engine, validator: cv}
}

// Commit handles POST /checkout. A conflict is an ordinary 409 response
// with the full shortfall list, not an error page.
func (h *CheckoutHandler) Commit(c *fiber.Ctx) error {
	var intent model.OrderIntent
	if err := c.BodyParser(&intent); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.engine.Commit(c.UserContext(), &intent, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Order committed", "data": order})
}

// Preflight handles POST /checkout/validate: the advisory availability
// check for cart-level feedback. Results may be stale by commit time.
func (h *CheckoutHandler) Preflight(c *fiber.Ctx) error {
	var intent model.OrderIntent
	if err := c.BodyParser(&intent); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if len(intent.Lines) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "order must contain at least one line"})
	}

	result, err := h.validator.Validate(intent.Lines)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *CheckoutHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.engine.GetOrder(id)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Order not found"})
	}
	return c.JSON(order)
}
