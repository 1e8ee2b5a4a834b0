package model

type Product struct {
	BaseModel
	SKU       string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name      string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Unit      string `gorm:"type:varchar(20)" json:"unit"`
	UnitPrice int64  `gorm:"default:0" json:"unit_price" validate:"gte=0"`

	// Relasi
	StockRecord *StockRecord `gorm:"foreignKey:ProductID" json:"stock_record,omitempty"`
}
