package model

import "github.com/google/uuid"

type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "PICKUP"
	FulfillmentDelivery FulfillmentType = "DELIVERY"
)

type OrderStatus string

const (
	OrderCommitted OrderStatus = "COMMITTED"
)

// Order is created only by a successful commit, together with its lines.
// Both are immutable afterwards.
type Order struct {
	BaseModel
	CustomerName    string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	FulfillmentType FulfillmentType `gorm:"type:varchar(20);not null" json:"fulfillment_type"`
	PaymentMethod   string          `gorm:"type:varchar(20)" json:"payment_method"` // CASH, TRANSFER
	Status          OrderStatus     `gorm:"type:varchar(20);not null" json:"status"`
	TotalAmount     int64           `gorm:"not null" json:"total_amount"` // Snapshot sum of line totals

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

type OrderLine struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity  int   `gorm:"not null" json:"quantity"`
	UnitPrice int64 `gorm:"not null" json:"unit_price"` // Snapshot price at commit time
	LineTotal int64 `gorm:"not null" json:"line_total"`
}

// OrderIntent is the caller-supplied checkout request. It is transient:
// nothing is persisted until the commit engine succeeds.
type OrderIntent struct {
	CustomerName    string           `json:"customer_name" validate:"required"`
	FulfillmentType FulfillmentType  `json:"fulfillment_type" validate:"required,oneof=PICKUP DELIVERY"`
	PaymentMethod   string           `json:"payment_method"`
	Lines           []OrderLineIntent `json:"lines" validate:"required,min=1,dive"`
}

type OrderLineIntent struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	UnitPrice int64     `json:"unit_price" validate:"gte=0"`
}
