package model

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord holds the authoritative quantity state for one product.
// AvailableStock is always derived (current - reserved), never stored.
// The pair must satisfy 0 <= ReservedStock <= CurrentStock at all times;
// breaking that is an integrity error, not a recoverable condition.
type StockRecord struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"product_id" validate:"uuid_required"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`

	CurrentStock  int `gorm:"not null;default:0" json:"current_stock"`
	ReservedStock int `gorm:"not null;default:0" json:"reserved_stock"`

	MinimumThreshold int `gorm:"default:0" json:"minimum_threshold"`
	MaximumThreshold int `gorm:"default:0" json:"maximum_threshold"`

	IsActive    bool      `gorm:"default:true" json:"is_active"`
	LastUpdated time.Time `json:"last_updated"`
}

// AvailableStock is the derived sellable quantity
func (s *StockRecord) AvailableStock() int {
	return s.CurrentStock - s.ReservedStock
}

// StockRecordResponse for API responses, with the derived field included
type StockRecordResponse struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	CurrentStock     int       `json:"current_stock"`
	ReservedStock    int       `json:"reserved_stock"`
	AvailableStock   int       `json:"available_stock"`
	MinimumThreshold int       `json:"minimum_threshold"`
	MaximumThreshold int       `json:"maximum_threshold"`
	IsActive         bool      `json:"is_active"`
	LastUpdated      time.Time `json:"last_updated"`
}

// ToResponse converts StockRecord to StockRecordResponse
func (s *StockRecord) ToResponse() StockRecordResponse {
	return StockRecordResponse{
		ID:               s.ID,
		ProductID:        s.ProductID,
		CurrentStock:     s.CurrentStock,
		ReservedStock:    s.ReservedStock,
		AvailableStock:   s.AvailableStock(),
		MinimumThreshold: s.MinimumThreshold,
		MaximumThreshold: s.MaximumThreshold,
		IsActive:         s.IsActive,
		LastUpdated:      s.LastUpdated,
	}
}
