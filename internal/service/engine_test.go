package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-order-commit/internal/lock"
	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"
	"go-order-commit/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitSuccess(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-X", "Kopi Arabica", 25000, 10)

	order, err := env.engine.Commit(context.Background(), intentFor(product, 4), "cashier-1")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, model.OrderCommitted, order.Status)
	assert.Equal(t, int64(4*25000), order.TotalAmount)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 4, order.Lines[0].Quantity)

	record := env.stockOf(t, product.ID)
	assert.Equal(t, 6, record.CurrentStock)

	// Exactly one sale movement, carrying the order reference
	orderID := order.ID
	movements, err := env.movementRepo.FindFiltered(repository.MovementFilter{ReferenceOrderID: &orderID})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	sale := movements[0]
	assert.Equal(t, model.MovementSale, sale.MovementType)
	assert.Equal(t, -4, sale.QuantityChange)
	assert.Equal(t, 10, sale.PreviousStock)
	assert.Equal(t, 6, sale.NewStock)

	// The order reads back with its lines
	persisted, err := env.engine.GetOrder(order.ID)
	require.NoError(t, err)
	require.Len(t, persisted.Lines, 1)
}

func TestCommitConflictLeavesZeroRows(t *testing.T) {
	env := newTestEnv(t)
	short := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 3)
	fine := env.createProduct(t, "SKU-B", "Teh Melati", 15000, 10)

	intent := &model.OrderIntent{
		CustomerName:    "Walk-in Customer",
		FulfillmentType: model.FulfillmentPickup,
		Lines: []model.OrderLineIntent{
			{ProductID: short.ID, Quantity: 5, UnitPrice: 25000},
			{ProductID: fine.ID, Quantity: 2, UnitPrice: 15000},
		},
	}

	_, err := env.engine.Commit(context.Background(), intent, "cashier-1")
	conflict, ok := apperr.AsConflict(err)
	require.True(t, ok, "expected conflict error, got %v", err)

	// Only the short line is reported, with the full shortfall picture
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, short.ID, conflict.Conflicts[0].ProductID)
	assert.Equal(t, 5, conflict.Conflicts[0].Requested)
	assert.Equal(t, 3, conflict.Conflicts[0].Available)

	// Abort means zero observable change: no order, no lines, no sale
	// movements, untouched stock for every line including the feasible one
	assert.EqualValues(t, 0, env.countRows(t, &model.Order{}))
	assert.EqualValues(t, 0, env.countRows(t, &model.OrderLine{}))
	sales, err := env.movementRepo.FindFiltered(repository.MovementFilter{MovementType: model.MovementSale})
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, 3, env.stockOf(t, short.ID).CurrentStock)
	assert.Equal(t, 10, env.stockOf(t, fine.ID).CurrentStock)
}

func TestCommitRejectsBadIntent(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 10)

	_, err := env.engine.Commit(context.Background(), &model.OrderIntent{
		CustomerName:    "X",
		FulfillmentType: model.FulfillmentPickup,
	}, "cashier-1")
	assert.Error(t, err)

	_, err = env.engine.Commit(context.Background(), &model.OrderIntent{
		CustomerName:    "X",
		FulfillmentType: model.FulfillmentPickup,
		Lines: []model.OrderLineIntent{
			{ProductID: product.ID, Quantity: 0, UnitPrice: 25000},
		},
	}, "cashier-1")
	assert.Error(t, err)

	_, err = env.engine.Commit(context.Background(), &model.OrderIntent{
		CustomerName:    "X",
		FulfillmentType: model.FulfillmentPickup,
		Lines: []model.OrderLineIntent{
			{ProductID: product.ID, Quantity: 1, UnitPrice: 25000},
			{ProductID: product.ID, Quantity: 2, UnitPrice: 25000},
		},
	}, "cashier-1")
	assert.Error(t, err)

	assert.EqualValues(t, 0, env.countRows(t, &model.Order{}))
}

func TestCommitConcurrentNeverOversells(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-X", "Kopi Arabica", 25000, 10)

	const attempts = 5
	results := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.engine.Commit(context.Background(), intentFor(product, 4), "cashier-1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		_, isConflict := apperr.AsConflict(err)
		require.True(t, isConflict, "unexpected error: %v", err)
	}

	// 10 units can satisfy exactly two 4-unit orders
	assert.Equal(t, 2, successes)
	assert.Equal(t, 2, int(env.countRows(t, &model.Order{})))
	assert.Equal(t, 10-4*successes, env.stockOf(t, product.ID).CurrentStock)

	// Sum of sale magnitudes never exceeds the opening stock
	sales, err := env.movementRepo.FindFiltered(repository.MovementFilter{MovementType: model.MovementSale})
	require.NoError(t, err)
	sold := 0
	for _, m := range sales {
		sold += -m.QuantityChange
	}
	assert.LessOrEqual(t, sold, 10)
}

func TestCommitOppositeLineOrdersBothComplete(t *testing.T) {
	env := newTestEnv(t)
	a := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 10)
	b := env.createProduct(t, "SKU-B", "Teh Melati", 15000, 10)

	intentAB := &model.OrderIntent{
		CustomerName:    "Customer 1",
		FulfillmentType: model.FulfillmentPickup,
		Lines: []model.OrderLineIntent{
			{ProductID: a.ID, Quantity: 2, UnitPrice: 25000},
			{ProductID: b.ID, Quantity: 2, UnitPrice: 15000},
		},
	}
	intentBA := &model.OrderIntent{
		CustomerName:    "Customer 2",
		FulfillmentType: model.FulfillmentDelivery,
		Lines: []model.OrderLineIntent{
			{ProductID: b.ID, Quantity: 3, UnitPrice: 15000},
			{ProductID: a.ID, Quantity: 3, UnitPrice: 25000},
		},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var errAB, errBA error
	go func() {
		defer wg.Done()
		_, errAB = env.engine.Commit(context.Background(), intentAB, "cashier-1")
	}()
	go func() {
		defer wg.Done()
		_, errBA = env.engine.Commit(context.Background(), intentBA, "cashier-2")
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("commits with opposite line orders hung")
	}

	// Stock is plentiful, so neither attempt may fail
	require.NoError(t, errAB)
	require.NoError(t, errBA)
	assert.Equal(t, 5, env.stockOf(t, a.ID).CurrentStock)
	assert.Equal(t, 5, env.stockOf(t, b.ID).CurrentStock)
}

// Checkout race: 10 in stock, one order for 4 and one for 8 issued
// together. They must never both succeed.
func TestCommitContendedPairNeverBothSucceed(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-X", "Kopi Arabica", 25000, 10)

	var wg sync.WaitGroup
	wg.Add(2)
	var errSmall, errBig error
	go func() {
		defer wg.Done()
		_, errSmall = env.engine.Commit(context.Background(), intentFor(product, 4), "cashier-1")
	}()
	go func() {
		defer wg.Done()
		_, errBig = env.engine.Commit(context.Background(), intentFor(product, 8), "cashier-2")
	}()
	wg.Wait()

	require.False(t, errSmall == nil && errBig == nil, "both commits succeeded on 10 units of stock")

	record := env.stockOf(t, product.ID)
	switch {
	case errSmall == nil && errBig != nil:
		conflict, ok := apperr.AsConflict(errBig)
		require.True(t, ok, "unexpected error: %v", errBig)
		assert.Equal(t, 8, conflict.Conflicts[0].Requested)
		assert.Equal(t, 6, conflict.Conflicts[0].Available)
		assert.Equal(t, 6, record.CurrentStock)
	case errBig == nil && errSmall != nil:
		conflict, ok := apperr.AsConflict(errSmall)
		require.True(t, ok, "unexpected error: %v", errSmall)
		assert.Equal(t, 4, conflict.Conflicts[0].Requested)
		assert.Equal(t, 2, conflict.Conflicts[0].Available)
		assert.Equal(t, 2, record.CurrentStock)
	default:
		t.Fatalf("expected exactly one success, got errSmall=%v errBig=%v", errSmall, errBig)
	}
}

func TestCommitBusyWhenLockHeld(t *testing.T) {
	env := newTestEnvWithLock(t, lock.Config{
		WaitTimeout: 10 * time.Millisecond,
		MaxAttempts: 2,
		BackoffBase: 5 * time.Millisecond,
	})
	product := env.createProduct(t, "SKU-X", "Kopi Arabica", 25000, 10)

	// Simulate another attempt camping on the product lease
	require.NoError(t, env.locks.Acquire(context.Background(), product.ID))
	defer env.locks.Release(product.ID)

	_, err := env.engine.Commit(context.Background(), intentFor(product, 1), "cashier-1")
	assert.ErrorIs(t, err, apperr.ErrBusy)

	assert.EqualValues(t, 0, env.countRows(t, &model.Order{}))
	assert.Equal(t, 10, env.stockOf(t, product.ID).CurrentStock)
}

func TestCommitCancelledBeforeWriteLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-X", "Kopi Arabica", 25000, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.engine.Commit(ctx, intentFor(product, 4), "cashier-1")
	assert.ErrorIs(t, err, context.Canceled)

	assert.EqualValues(t, 0, env.countRows(t, &model.Order{}))
	assert.Equal(t, 10, env.stockOf(t, product.ID).CurrentStock)
}

func TestCommitUnknownProductConflicts(t *testing.T) {
	env := newTestEnv(t)

	intent := &model.OrderIntent{
		CustomerName:    "X",
		FulfillmentType: model.FulfillmentPickup,
		Lines: []model.OrderLineIntent{
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: 100},
		},
	}

	_, err := env.engine.Commit(context.Background(), intent, "cashier-1")
	conflict, ok := apperr.AsConflict(err)
	require.True(t, ok, "expected conflict, got %v", err)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, 0, conflict.Conflicts[0].Available)
}
