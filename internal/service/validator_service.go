package service

import (
	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"
	"go-order-commit/pkg/apperr"

	"github.com/google/uuid"
)

// ValidationResult is the full feasibility picture for an order intent.
// Conflicts lists every infeasible line, not just the first one, so a
// caller sees the complete shortfall in one round trip.
type ValidationResult struct {
	OK        bool             `json:"ok"`
	Conflicts []apperr.Conflict `json:"conflicts,omitempty"`
}

// ConflictValidator is the advisory, side-effect-free feasibility check.
// It reads without locks, so results can be stale; the commit engine
// re-runs the same check while holding the product leases.
type ConflictValidator interface {
	Validate(lines []model.OrderLineIntent) (*ValidationResult, error)
}

type conflictValidator struct {
	stockRepo repository.StockRepository
}

func NewConflictValidator(sRepo repository.StockRepository) ConflictValidator {
	return &conflictValidator{stockRepo: sRepo}
}

func (v *conflictValidator) Validate(lines []model.OrderLineIntent) (*ValidationResult, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	records, err := v.stockRepo.FindByProductIDs(ids)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID]*model.StockRecord, len(records))
	for i := range records {
		byProduct[records[i].ProductID] = &records[i]
	}

	result := &ValidationResult{OK: true}
	for _, line := range lines {
		record, ok := byProduct[line.ProductID]

		// Unknown or inactive products sell nothing: report available = 0
		// instead of failing the whole check, so the caller still gets the
		// rest of the shortfall picture.
		available := 0
		name := ""
		if ok {
			name = productName(record)
			if record.IsActive {
				available = record.AvailableStock()
			}
		}

		if line.Quantity > available {
			result.OK = false
			result.Conflicts = append(result.Conflicts, apperr.Conflict{
				ProductID:   line.ProductID,
				ProductName: name,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}
	return result, nil
}

func productName(record *model.StockRecord) string {
	if record.Product != nil {
		return record.Product.Name
	}
	return ""
}
