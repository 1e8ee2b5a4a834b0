package repository

import (
	"go-order-commit/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter narrows the audit query. Zero-value fields are ignored.
type MovementFilter struct {
	StockRecordID    *uuid.UUID
	MovementType     model.MovementType
	ReferenceOrderID *uuid.UUID
	BatchID          *uuid.UUID
}

type MovementRepository interface {
	Create(tx *gorm.DB, movement *model.Movement) error
	FindByStockRecordID(stockRecordID uuid.UUID) ([]model.Movement, error)
	FindFiltered(filter MovementFilter) ([]model.Movement, error)
	CountByReferenceOrderID(orderID uuid.UUID) (int64, error)
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

// Create is the only write path. Movements have no update or delete;
// corrections are new compensating rows.
func (r *movementRepo) Create(tx *gorm.DB, movement *model.Movement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(movement).Error
}

// FindByStockRecordID returns a record's history in application order,
// the order replay/reconciliation tooling folds over.
func (r *movementRepo) FindByStockRecordID(stockRecordID uuid.UUID) ([]model.Movement, error) {
	var movements []model.Movement
	err := r.db.Where("stock_record_id = ?", stockRecordID).
		Order("performed_at ASC, created_at ASC").
		Find(&movements).Error
	return movements, err
}

func (r *movementRepo) FindFiltered(filter MovementFilter) ([]model.Movement, error) {
	q := r.db.Model(&model.Movement{})
	if filter.StockRecordID != nil {
		q = q.Where("stock_record_id = ?", *filter.StockRecordID)
	}
	if filter.MovementType != "" {
		q = q.Where("movement_type = ?", filter.MovementType)
	}
	if filter.ReferenceOrderID != nil {
		q = q.Where("reference_order_id = ?", *filter.ReferenceOrderID)
	}
	if filter.BatchID != nil {
		q = q.Where("batch_id = ?", *filter.BatchID)
	}

	var movements []model.Movement
	err := q.Order("performed_at DESC").Find(&movements).Error
	return movements, err
}

func (r *movementRepo) CountByReferenceOrderID(orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Movement{}).
		Where("reference_order_id = ?", orderID).
		Count(&count).Error
	return count, err
}
