package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderservice/internal/domain"
	"orderservice/internal/storage"
	"orderservice/internal/storage/memory"
)

func seed(t *testing.T, store *memory.Store, id string, stock int) {
	t.Helper()
	require.NoError(t, store.CreateProduct(context.Background(), &domain.Product{
		ID:        id,
		Name:      "Widget",
		Price:     decimal.RequireFromString("2.50"),
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
	}))
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", 10)

	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(tx storage.Tx) error {
		require.NoError(t, tx.DecrementStock(context.Background(), "p1", 4))
		require.NoError(t, tx.InsertOrder(context.Background(), &domain.Order{ID: "o1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	_, err = store.GetOrder(context.Background(), "o1")
	assert.True(t, domain.IsNotFound(err))
}

func TestTxReadsSeeOwnWrites(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", 10)

	err := store.RunInTx(context.Background(), func(tx storage.Tx) error {
		require.NoError(t, tx.DecrementStock(context.Background(), "p1", 4))
		products, err := tx.ProductsForUpdate(context.Background(), []string{"p1"})
		require.NoError(t, err)
		assert.Equal(t, 6, products["p1"].Stock)
		return nil
	})
	require.NoError(t, err)
}

func TestDecrementStockGuardsNegative(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", 3)

	err := store.RunInTx(context.Background(), func(tx storage.Tx) error {
		return tx.DecrementStock(context.Background(), "p1", 4)
	})
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)

	p, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestNotFoundVariants(t *testing.T) {
	store := memory.NewStore()

	_, err := store.GetProduct(context.Background(), "ghost")
	assert.True(t, domain.IsNotFound(err))
	assert.True(t, domain.IsNotFound(store.UpdateOrderStatus(context.Background(), "ghost", domain.StatusPending)))
	assert.True(t, domain.IsNotFound(store.DeleteProduct(context.Background(), "ghost")))
}
