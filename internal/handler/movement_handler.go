package handler

import (
	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"
	"go-order-commit/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MovementHandler struct {
	ledger service.StockLedger
}

func NewMovementHandler(ledger service.StockLedger) *MovementHandler {
	return &MovementHandler{ledger: ledger}
}

type batchRequest struct {
	BatchID uuid.UUID               `json:"batch_id"`
	Entries []service.MovementInput `json:"entries"`
}

// ApplyBatch handles POST /movements/batch for bulk restock and inventory
// corrections. The batch is all-or-nothing: one bad entry rolls back all.
func (h *MovementHandler) ApplyBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	movements, err := h.ledger.ApplyMovementBatch(c.UserContext(), req.Entries, req.BatchID, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Batch applied", "data": movements})
}

// Apply handles POST /movements for a single manual movement.
func (h *MovementHandler) Apply(c *fiber.Ctx) error {
	var input service.MovementInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	movement, err := h.ledger.ApplyMovement(c.UserContext(), input, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Movement applied", "data": movement})
}

// GetMovements handles GET /movements with optional filters:
// stock_record_id, movement_type, reference_order_id, batch_id.
// Read-only; this is the audit/reconciliation surface.
func (h *MovementHandler) GetMovements(c *fiber.Ctx) error {
	var filter repository.MovementFilter

	if v := c.Query("stock_record_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid stock_record_id"})
		}
		filter.StockRecordID = &id
	}
	if v := c.Query("movement_type"); v != "" {
		filter.MovementType = model.MovementType(v)
	}
	if v := c.Query("reference_order_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid reference_order_id"})
		}
		filter.ReferenceOrderID = &id
	}
	if v := c.Query("batch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid batch_id"})
		}
		filter.BatchID = &id
	}

	movements, err := h.ledger.GetMovements(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(movements)
}
