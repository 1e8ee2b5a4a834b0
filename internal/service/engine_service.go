package service

import (
	"context"
	"errors"
	"fmt"

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

// CommitEngine turns a feasible OrderIntent into a persisted Order plus
// matching stock decrements and sale movements. Failure of any kind leaves
// zero observable change: no order, no lines, no movements, no stock
// mutation.
type CommitEngine interface {
	Commit(ctx context.Context, intent *model.OrderIntent, performedBy string) (*model.Order, error)
	GetOrder(id uuid.UUID) (*model.Order, error)
}

type commitEngine struct {
	db           *gorm.DB
	locks        *lock.Manager
	validator    ConflictValidator
	ledger       StockLedger
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	wsHub        *ws.Hub
}

func NewCommitEngine(
	db *gorm.DB,
	locks *lock.Manager,
	cv ConflictValidator,
	ledger StockLedger,
	oRepo repository.OrderRepository,
	pRepo repository.ProductRepository,
	hub *ws.Hub,
) CommitEngine {
	return &commitEngine{
		db:          db,
		locks:       locks,
		validator:   cv,
		ledger:      ledger,
		orderRepo:   oRepo,
		productRepo: pRepo,
		wsHub:       hub,
	}
}

// Commit runs the attempt through its states: lock in deterministic order,
// re-validate under lock, write the whole set atomically, release in
// reverse order. Conflicts come back as a *apperr.ConflictError carrying
// the complete shortfall list; lock exhaustion comes back as ErrBusy.
func (e *commitEngine) Commit(ctx context.Context, intent *model.OrderIntent, performedBy string) (*model.Order, error) {
	// 1. Validasi input
	if intent == nil || len(intent.Lines) == 0 {
		return nil, errors.New("order must contain at least one line")
	}
	if err := validator.FirstError(validator.ValidateStruct(intent)); err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(intent.Lines))
	for _, line := range intent.Lines {
		if _, dup := seen[line.ProductID]; dup {
			return nil, fmt.Errorf("duplicate product %s in order lines", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}

	// 2. Locking: ambil lease per-product dalam urutan terurut (deadlock-free)
	keys := make([]uuid.UUID, 0, len(intent.Lines))
	for _, line := range intent.Lines {
		keys = append(keys, line.ProductID)
	}
	held, err := e.locks.AcquireAll(ctx, keys)
	if err != nil {
		if errors.Is(err, apperr.ErrBusy) {
			metrics.OrderBusy.Inc()
		}
		return nil, err
	}
	defer e.locks.ReleaseAll(held)

	// 3. Re-validasi di bawah lock. The advisory pre-flight may have seen
	// stale numbers; this one cannot, because we hold every product lease.
	result, err := e.validator.Validate(intent.Lines)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		metrics.OrderConflicts.Inc()
		return nil, &apperr.ConflictError{Conflicts: result.Conflicts}
	}

	// 4. Cancellation checkpoint: setelah titik ini attempt jalan sampai
	// selesai, commit atau rollback, supaya ledger tidak ambigu.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// 5. Atomic write set: Order + OrderLines + movement sale per line
	order := &model.Order{
		CustomerName:    intent.CustomerName,
		FulfillmentType: intent.FulfillmentType,
		PaymentMethod:   intent.PaymentMethod,
		Status:          model.OrderCommitted,
	}
	order.CreatedBy = performedBy
	order.UpdatedBy = performedBy

	err = e.db.Transaction(func(tx *gorm.DB) error {
		var total int64
		for _, line := range intent.Lines {
			lineTotal := int64(line.Quantity) * line.UnitPrice
			total += lineTotal
			order.Lines = append(order.Lines, model.OrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				LineTotal: lineTotal,
				BaseModel: model.BaseModel{CreatedBy: performedBy, UpdatedBy: performedBy},
			})
		}
		order.TotalAmount = total

		if err := e.orderRepo.Create(tx, order); err != nil {
			return err
		}

		orderID := order.ID
		for _, line := range intent.Lines {
			// Step 3 sudah menjamin stok cukup; cek integritas di
			// ApplyMovementTx tetap jalan sebagai pertahanan terakhir.
			_, txErr := e.ledger.ApplyMovementTx(tx, MovementInput{
				ProductID:        line.ProductID,
				MovementType:     model.MovementSale,
				QuantityChange:   -line.Quantity,
				Reason:           "order commit",
				ReferenceOrderID: &orderID,
			}, performedBy, nil)
			if txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCommitted.Inc()
	e.publishCommitEvent(order, performedBy, intent.Lines)
	return order, nil
}

func (e *commitEngine) GetOrder(id uuid.UUID) (*model.Order, error) {
	return e.orderRepo.FindByID(id)
}

func (e *commitEngine) publishCommitEvent(order *model.Order, performedBy string, lines []model.OrderLineIntent) {
	if e.wsHub == nil {
		return
	}
	snapshots := make([]ws.StockSnapshot, 0, len(lines))
	for _, line := range lines {
		product, err := e.productRepo.FindByID(line.ProductID)
		if err != nil || product.StockRecord == nil {
			continue
		}
		snapshots = append(snapshots, snapshotOf(product, product.StockRecord))
	}
	e.wsHub.Publish(ws.OrderCommittedEvent{
		Type:        ws.EventOrderCommitted,
		OrderID:     order.ID,
		PerformedBy: performedBy,
		Message:     fmt.Sprintf("%s committed order %s with %d line(s)", performedBy, order.ID, len(lines)),
		Stock:       snapshots,
	})
}
