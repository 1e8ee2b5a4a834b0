package repository

import (
	"time"

	"go-order-commit/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockRepository interface {
	Create(tx *gorm.DB, record *model.StockRecord) error
	FindByProductID(tx *gorm.DB, productID uuid.UUID) (*model.StockRecord, error)
	FindByProductIDs(productIDs []uuid.UUID) ([]model.StockRecord, error)
	UpdateQuantities(tx *gorm.DB, id uuid.UUID, currentStock, reservedStock int, updatedBy string) error
	Deactivate(id uuid.UUID, updatedBy string) error
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

func (r *stockRepo) Create(tx *gorm.DB, record *model.StockRecord) error {
	if tx == nil {
		tx = r.db
	}
	record.LastUpdated = time.Now()
	return tx.Create(record).Error
}

// FindByProductID menerima *gorm.DB (tx) agar read bisa ikut transaksi;
// pass nil untuk read di luar transaksi (advisory validator).
func (r *stockRepo) FindByProductID(tx *gorm.DB, productID uuid.UUID) (*model.StockRecord, error) {
	if tx == nil {
		tx = r.db
	}
	var record model.StockRecord
	err := tx.First(&record, "product_id = ?", productID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *stockRepo) FindByProductIDs(productIDs []uuid.UUID) ([]model.StockRecord, error) {
	var records []model.StockRecord
	err := r.db.Preload("Product").Where("product_id IN ?", productIDs).Find(&records).Error
	return records, err
}

// UpdateQuantities writes both counters in one statement. Callers must
// hold the product lease; this is never called outside a ledger movement.
func (r *stockRepo) UpdateQuantities(tx *gorm.DB, id uuid.UUID, currentStock, reservedStock int, updatedBy string) error {
	return tx.Model(&model.StockRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stock":  currentStock,
			"reserved_stock": reservedStock,
			"last_updated":   time.Now(),
			"updated_by":     updatedBy,
		}).Error
}

// Deactivate soft-disables a record instead of deleting it, so historical
// movements keep a valid reference.
func (r *stockRepo) Deactivate(id uuid.UUID, updatedBy string) error {
	return r.db.Model(&model.StockRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": updatedBy,
		}).Error
}
