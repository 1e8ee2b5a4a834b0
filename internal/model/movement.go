package model

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementRestock     MovementType = "restock"
	MovementSale        MovementType = "sale"
	MovementAdjustment  MovementType = "adjustment"
	MovementReservation MovementType = "reservation"
	MovementRelease     MovementType = "release"
)

// AffectsReserved reports whether this movement type moves the reserved
// counter instead of the current one.
func (t MovementType) AffectsReserved() bool {
	return t == MovementReservation || t == MovementRelease
}

// Movement is one immutable entry in the stock audit log. Rows are only
// ever inserted; corrections happen as new compensating movements.
// PreviousStock/NewStock snapshot the counter the movement touched
// (current stock for restock/sale/adjustment, reserved stock for
// reservation/release), so replaying a record's movements in order
// reconstructs its state exactly.
type Movement struct {
	BaseModel
	StockRecordID uuid.UUID    `gorm:"type:uuid;not null;index" json:"stock_record_id" validate:"uuid_required"`
	StockRecord   *StockRecord `gorm:"foreignKey:StockRecordID" json:"stock_record,omitempty" validate:"-"`

	MovementType   MovementType `gorm:"type:varchar(20);not null" json:"movement_type" validate:"required,oneof=restock sale adjustment reservation release"`
	QuantityChange int          `gorm:"not null" json:"quantity_change" validate:"required"` // Signed, never zero
	PreviousStock  int          `gorm:"not null" json:"previous_stock"`
	NewStock       int          `gorm:"not null" json:"new_stock"`

	Reason      string    `gorm:"type:text" json:"reason"`
	PerformedBy string    `gorm:"type:varchar(255)" json:"performed_by"`
	PerformedAt time.Time `gorm:"not null;index" json:"performed_at"`

	ReferenceOrderID *uuid.UUID `gorm:"type:uuid;index" json:"reference_order_id,omitempty"`
	BatchID          *uuid.UUID `gorm:"type:uuid;index" json:"batch_id,omitempty"`
}
