package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-order-commit/internal/lock"
	"go-order-commit/internal/metrics"
	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"
	"go-order-commit/internal/ws"
	"go-order-commit/pkg/apperr"
	"go-order-commit/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementInput describes one requested ledger entry. The ledger computes
// the previous/new snapshots itself; callers only say what should change.
type MovementInput struct {
	ProductID        uuid.UUID          `json:"product_id" validate:"uuid_required"`
	MovementType     model.MovementType `json:"movement_type" validate:"required,oneof=restock sale adjustment reservation release"`
	QuantityChange   int                `json:"quantity_change" validate:"required"`
	Reason           string             `json:"reason"`
	ReferenceOrderID *uuid.UUID         `json:"reference_order_id,omitempty"`
}

// CreateProductRequest onboards a product together with its stock record.
type CreateProductRequest struct {
	SKU              string `json:"sku" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Unit             string `json:"unit"`
	UnitPrice        int64  `json:"unit_price" validate:"gte=0"`
	InitialStock     int    `json:"initial_stock" validate:"gte=0"`
	MinimumThreshold int    `json:"minimum_threshold" validate:"gte=0"`
	MaximumThreshold int    `json:"maximum_threshold" validate:"gte=0"`
}

// StockLedger owns all stock quantity state. Every change goes through a
// movement; nothing else may touch the counters.
type StockLedger interface {
	CreateProduct(req *CreateProductRequest, userID string) (*model.Product, error)
	GetAllProducts() ([]model.Product, error)
	GetAvailable(productID uuid.UUID) (int, error)

	// ApplyMovementTx runs inside a caller-owned gorm transaction; the
	// caller must already hold the product lease.
	ApplyMovementTx(tx *gorm.DB, input MovementInput, performedBy string, batchID *uuid.UUID) (*model.Movement, error)

	ApplyMovement(ctx context.Context, input MovementInput, performedBy string) (*model.Movement, error)
	ApplyMovementBatch(ctx context.Context, entries []MovementInput, batchID uuid.UUID, performedBy string) ([]model.Movement, error)

	GetMovements(filter repository.MovementFilter) ([]model.Movement, error)
	DeactivateProduct(productID uuid.UUID, userID string) error
}

type stockLedger struct {
	productRepo  repository.ProductRepository
	stockRepo    repository.StockRepository
	movementRepo repository.MovementRepository
	db           *gorm.DB
	locks        *lock.Manager
	wsHub        *ws.Hub
}

func NewStockLedger(
	pRepo repository.ProductRepository,
	sRepo repository.StockRepository,
	mRepo repository.MovementRepository,
	db *gorm.DB,
	locks *lock.Manager,
	hub *ws.Hub,
) StockLedger {
	return &stockLedger{
		productRepo:  pRepo,
		stockRepo:    sRepo,
		movementRepo: mRepo,
		db:           db,
		locks:        locks,
		wsHub:        hub,
	}
}

func (s *stockLedger) CreateProduct(req *CreateProductRequest, userID string) (*model.Product, error) {
	// 1. Validasi struct dasar
	if err := validator.FirstError(validator.ValidateStruct(req)); err != nil {
		return nil, err
	}
	if req.MaximumThreshold > 0 && req.MaximumThreshold < req.MinimumThreshold {
		return nil, errors.New("maximum_threshold must not be below minimum_threshold")
	}

	// 2. Cek duplikasi SKU
	existing, _ := s.productRepo.FindBySKU(req.SKU)
	if existing != nil && existing.ID != uuid.Nil {
		return nil, errors.New("SKU already exists")
	}

	product := &model.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Unit:      req.Unit,
		UnitPrice: req.UnitPrice,
	}
	product.CreatedBy = userID
	product.UpdatedBy = userID

	// 3. Product + StockRecord + opening movement dalam satu transaksi
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.productRepo.Create(tx, product); err != nil {
			return err
		}

		record := &model.StockRecord{
			ProductID:        product.ID,
			CurrentStock:     0,
			ReservedStock:    0,
			MinimumThreshold: req.MinimumThreshold,
			MaximumThreshold: req.MaximumThreshold,
			IsActive:         true,
		}
		record.CreatedBy = userID
		record.UpdatedBy = userID
		if err := s.stockRepo.Create(tx, record); err != nil {
			return err
		}

		if req.InitialStock > 0 {
			_, err := s.ApplyMovementTx(tx, MovementInput{
				ProductID:      product.ID,
				MovementType:   model.MovementRestock,
				QuantityChange: req.InitialStock,
				Reason:         "initial stock on product onboarding",
			}, userID, nil)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	record, _ := s.stockRepo.FindByProductID(nil, product.ID)
	if record != nil {
		s.wsHub.Publish(ws.ProductOnboardedEvent{
			Type:        ws.EventProductOnboarded,
			PerformedBy: userID,
			Message:     fmt.Sprintf("Product '%s' onboarded with %d unit(s)", product.Name, record.CurrentStock),
			Stock:       snapshotOf(product, record),
		})
	}

	return product, nil
}

func (s *stockLedger) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

// GetAvailable answers the point-in-time sellable quantity. Inactive or
// missing records are NotFound, mirroring how the commit path refuses them.
func (s *stockLedger) GetAvailable(productID uuid.UUID) (int, error) {
	record, err := s.stockRepo.FindByProductID(nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrNotFound
		}
		return 0, err
	}
	if !record.IsActive {
		return 0, apperr.ErrNotFound
	}
	return record.AvailableStock(), nil
}

// ApplyMovementTx is the single mutation path for stock counters. It
// recomputes state under the caller's transaction and lease, verifies the
// invariants, and persists the StockRecord update together with the new
// Movement row. Any invariant breach is an IntegrityError and nothing is
// written.
func (s *stockLedger) ApplyMovementTx(tx *gorm.DB, input MovementInput, performedBy string, batchID *uuid.UUID) (*model.Movement, error) {
	if err := validator.FirstError(validator.ValidateStruct(&input)); err != nil {
		return nil, err
	}
	if err := checkMovementSign(input.MovementType, input.QuantityChange); err != nil {
		return nil, err
	}

	record, err := s.stockRepo.FindByProductID(tx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if !record.IsActive {
		return nil, apperr.ErrNotFound
	}

	// Hitung state baru untuk counter yang disentuh movement ini
	newCurrent := record.CurrentStock
	newReserved := record.ReservedStock
	var previous, next int
	if input.MovementType.AffectsReserved() {
		previous = record.ReservedStock
		next = previous + input.QuantityChange
		newReserved = next
	} else {
		previous = record.CurrentStock
		next = previous + input.QuantityChange
		newCurrent = next
	}

	if newCurrent < 0 {
		metrics.IntegrityViolations.Inc()
		return nil, apperr.Integrityf("product %s: current stock would become %d", input.ProductID, newCurrent)
	}
	if newReserved < 0 || newReserved > newCurrent {
		metrics.IntegrityViolations.Inc()
		return nil, apperr.Integrityf("product %s: reserved stock would become %d with current %d", input.ProductID, newReserved, newCurrent)
	}
	// Defensive re-check of the ledger equation before persisting
	if next != previous+input.QuantityChange {
		metrics.IntegrityViolations.Inc()
		return nil, apperr.Integrityf("movement arithmetic mismatch: %d != %d + %d", next, previous, input.QuantityChange)
	}

	if err := s.stockRepo.UpdateQuantities(tx, record.ID, newCurrent, newReserved, performedBy); err != nil {
		return nil, err
	}

	movement := &model.Movement{
		StockRecordID:    record.ID,
		MovementType:     input.MovementType,
		QuantityChange:   input.QuantityChange,
		PreviousStock:    previous,
		NewStock:         next,
		Reason:           input.Reason,
		PerformedBy:      performedBy,
		PerformedAt:      time.Now(),
		ReferenceOrderID: input.ReferenceOrderID,
		BatchID:          batchID,
	}
	movement.CreatedBy = performedBy
	movement.UpdatedBy = performedBy
	if err := s.movementRepo.Create(tx, movement); err != nil {
		return nil, err
	}

	metrics.MovementsApplied.WithLabelValues(string(input.MovementType)).Inc()
	return movement, nil
}

// ApplyMovement applies one movement under its own product lease and
// transaction. Used by manual restock/adjustment tooling.
func (s *stockLedger) ApplyMovement(ctx context.Context, input MovementInput, performedBy string) (*model.Movement, error) {
	if err := s.locks.Acquire(ctx, input.ProductID); err != nil {
		return nil, err
	}
	defer s.locks.Release(input.ProductID)

	var movement *model.Movement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		movement, txErr = s.ApplyMovementTx(tx, input, performedBy, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ApplyMovementBatch applies N movements as one unit: per-product leases in
// sorted order, one transaction, all-or-nothing. A single failing entry
// rolls back every movement in the batch.
func (s *stockLedger) ApplyMovementBatch(ctx context.Context, entries []MovementInput, batchID uuid.UUID, performedBy string) ([]model.Movement, error) {
	if len(entries) == 0 {
		return nil, errors.New("batch must contain at least one entry")
	}
	if batchID == uuid.Nil {
		batchID = uuid.New()
	}

	keys := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.ProductID)
	}
	held, err := s.locks.AcquireAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer s.locks.ReleaseAll(held)

	var movements []model.Movement
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			m, txErr := s.ApplyMovementTx(tx, entry, performedBy, &batchID)
			if txErr != nil {
				return txErr
			}
			movements = append(movements, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishBatchEvent(batchID, performedBy, entries)
	return movements, nil
}

func (s *stockLedger) GetMovements(filter repository.MovementFilter) ([]model.Movement, error) {
	return s.movementRepo.FindFiltered(filter)
}

// DeactivateProduct soft-disables the stock record. The record stays in
// place because historical movements reference it.
func (s *stockLedger) DeactivateProduct(productID uuid.UUID, userID string) error {
	record, err := s.stockRepo.FindByProductID(nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.stockRepo.Deactivate(record.ID, userID)
}

func (s *stockLedger) publishBatchEvent(batchID uuid.UUID, performedBy string, entries []MovementInput) {
	if s.wsHub == nil {
		return
	}
	snapshots := make([]ws.StockSnapshot, 0, len(entries))
	seen := make(map[uuid.UUID]struct{})
	for _, e := range entries {
		if _, ok := seen[e.ProductID]; ok {
			continue
		}
		seen[e.ProductID] = struct{}{}
		product, err := s.productRepo.FindByID(e.ProductID)
		if err != nil || product.StockRecord == nil {
			continue
		}
		snapshots = append(snapshots, snapshotOf(product, product.StockRecord))
	}
	s.wsHub.Publish(ws.StockAdjustedEvent{
		Type:        ws.EventStockAdjusted,
		BatchID:     batchID,
		PerformedBy: performedBy,
		Message:     fmt.Sprintf("%s applied a stock batch of %d movement(s)", performedBy, len(entries)),
		Stock:       snapshots,
	})
}

// checkMovementSign enforces the direction each movement type may move its
// counter in. Quantity is signed; the type decides which signs make sense.
func checkMovementSign(t model.MovementType, quantityChange int) error {
	if quantityChange == 0 {
		return errors.New("quantity_change must not be zero")
	}
	switch t {
	case model.MovementRestock, model.MovementReservation:
		if quantityChange < 0 {
			return fmt.Errorf("quantity_change must be positive for %s", t)
		}
	case model.MovementSale, model.MovementRelease:
		if quantityChange > 0 {
			return fmt.Errorf("quantity_change must be negative for %s", t)
		}
	}
	return nil
}

func snapshotOf(product *model.Product, record *model.StockRecord) ws.StockSnapshot {
	return ws.StockSnapshot{
		ProductID:      product.ID,
		SKU:            product.SKU,
		Name:           product.Name,
		CurrentStock:   record.CurrentStock,
		AvailableStock: record.AvailableStock(),
	}
}
