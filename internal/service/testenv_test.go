package service

import (
	"path/filepath"
	"testing"
	"time"

	"go-order-commit/internal/lock"
	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service stack against a throwaway sqlite database.
// A single connection keeps sqlite writes serialized; logical serialization
// per product still comes from the lock manager, exactly as in production.
type testEnv struct {
	db           *gorm.DB
	locks        *lock.Manager
	ledger       StockLedger
	validator    ConflictValidator
	engine       CommitEngine
	stockRepo    repository.StockRepository
	movementRepo repository.MovementRepository
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLock(t, lock.Config{
		WaitTimeout: 2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: 5 * time.Millisecond,
	})
}

func newTestEnvWithLock(t *testing.T, cfg lock.Config) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Product{}, &model.StockRecord{}, &model.Movement{},
		&model.Order{}, &model.OrderLine{}, &model.User{},
	))

	locks := lock.NewManager(cfg)
	productRepo := repository.NewProductRepo(db)
	stockRepo := repository.NewStockRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	orderRepo := repository.NewOrderRepo(db)

	ledger := NewStockLedger(productRepo, stockRepo, movementRepo, db, locks, nil)
	cv := NewConflictValidator(stockRepo)
	engine := NewCommitEngine(db, locks, cv, ledger, orderRepo, productRepo, nil)

	return &testEnv{
		db:           db,
		locks:        locks,
		ledger:       ledger,
		validator:    cv,
		engine:       engine,
		stockRepo:    stockRepo,
		movementRepo: movementRepo,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
	}
}

func (env *testEnv) createProduct(t *testing.T, sku, name string, price int64, initialStock int) *model.Product {
	t.Helper()
	product, err := env.ledger.CreateProduct(&CreateProductRequest{
		SKU:          sku,
		Name:         name,
		Unit:         "pcs",
		UnitPrice:    price,
		InitialStock: initialStock,
	}, "tester")
	require.NoError(t, err)
	return product
}

func (env *testEnv) stockOf(t *testing.T, productID uuid.UUID) *model.StockRecord {
	t.Helper()
	record, err := env.stockRepo.FindByProductID(nil, productID)
	require.NoError(t, err)
	return record
}

func (env *testEnv) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, env.db.Model(model).Count(&count).Error)
	return count
}

func intentFor(product *model.Product, quantity int) *model.OrderIntent {
	return &model.OrderIntent{
		CustomerName:    "Walk-in Customer",
		FulfillmentType: model.FulfillmentPickup,
		PaymentMethod:   "CASH",
		Lines: []model.OrderLineIntent{
			{ProductID: product.ID, Quantity: quantity, UnitPrice: product.UnitPrice},
		},
	}
}
