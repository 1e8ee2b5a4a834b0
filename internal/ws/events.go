package ws

import "github.com/google/uuid"

// Event payloads broadcast to connected clients after successful writes.
// Nothing is ever broadcast for an aborted attempt.

const (
	EventOrderCommitted   = "order_committed"
	EventStockAdjusted    = "stock_adjusted"
	EventProductOnboarded = "product_onboarded"
)

type StockSnapshot struct {
	ProductID      uuid.UUID `json:"product_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	CurrentStock   int       `json:"current_stock"`
	AvailableStock int       `json:"available_stock"`
}

type OrderCommittedEvent struct {
	Type        string          `json:"type"`
	OrderID     uuid.UUID       `json:"order_id"`
	PerformedBy string          `json:"performed_by"`
	Message     string          `json:"message"`
	Stock       []StockSnapshot `json:"stock"`
}

type StockAdjustedEvent struct {
	Type        string          `json:"type"`
	BatchID     uuid.UUID       `json:"batch_id"`
	PerformedBy string          `json:"performed_by"`
	Message     string          `json:"message"`
	Stock       []StockSnapshot `json:"stock"`
}

type ProductOnboardedEvent struct {
	Type        string        `json:"type"`
	PerformedBy string        `json:"performed_by"`
	Message     string        `json:"message"`
	Stock       StockSnapshot `json:"stock"`
}
