package service

import (
	"testing"

	"go-order-commit/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReportsOnlyShortLines(t *testing.T) {
	env := newTestEnv(t)
	short := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 3)
	fine := env.createProduct(t, "SKU-B", "Teh Melati", 15000, 10)

	result, err := env.validator.Validate([]model.OrderLineIntent{
		{ProductID: short.ID, Quantity: 5, UnitPrice: 25000},
		{ProductID: fine.ID, Quantity: 2, UnitPrice: 15000},
	})
	require.NoError(t, err)

	assert.False(t, result.OK)
	require.Len(t, result.Conflicts, 1)
	conflict := result.Conflicts[0]
	assert.Equal(t, short.ID, conflict.ProductID)
	assert.Equal(t, "Kopi Arabica", conflict.ProductName)
	assert.Equal(t, 5, conflict.Requested)
	assert.Equal(t, 3, conflict.Available)
}

func TestValidateChecksEveryLine(t *testing.T) {
	env := newTestEnv(t)
	a := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 1)
	b := env.createProduct(t, "SKU-B", "Teh Melati", 15000, 2)

	result, err := env.validator.Validate([]model.OrderLineIntent{
		{ProductID: a.ID, Quantity: 5},
		{ProductID: b.ID, Quantity: 5},
	})
	require.NoError(t, err)

	// No short-circuit: both shortfalls reported in one pass
	assert.False(t, result.OK)
	assert.Len(t, result.Conflicts, 2)
}

func TestValidateTreatsInactiveAsZeroAvailable(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 10)
	require.NoError(t, env.ledger.DeactivateProduct(product.ID, "tester"))

	result, err := env.validator.Validate([]model.OrderLineIntent{
		{ProductID: product.ID, Quantity: 1},
	})
	require.NoError(t, err)

	assert.False(t, result.OK)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, 0, result.Conflicts[0].Available)
}

func TestValidateTreatsUnknownProductAsZeroAvailable(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.validator.Validate([]model.OrderLineIntent{
		{ProductID: uuid.New(), Quantity: 1},
	})
	require.NoError(t, err)

	assert.False(t, result.OK)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, 0, result.Conflicts[0].Available)
	assert.Equal(t, 1, result.Conflicts[0].Requested)
}

func TestValidateAllSatisfiable(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "SKU-A", "Kopi Arabica", 25000, 10)

	result, err := env.validator.Validate([]model.OrderLineIntent{
		{ProductID: product.ID, Quantity: 10},
	})
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Empty(t, result.Conflicts)
}
