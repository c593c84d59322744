package orders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/notifications"
	"orderservice/internal/orders"
	"orderservice/internal/storage/memory"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.OrderStatus
	}{
		{"CANCELLED by customer", domain.StatusCancelled},
		{"item was Returned", domain.StatusCancelled},
		{"Delivered today", domain.StatusDelivered},
		{"delivered", domain.StatusDelivered},
		{"  Pending review ", domain.StatusPending},
		{"shipped", domain.OrderStatus("shipped")},
		{"  on hold  ", domain.OrderStatus("on hold")},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, orders.NormalizeStatus(tc.raw), "input %q", tc.raw)
	}
}

func placeTestOrder(t *testing.T, store *memory.Store) string {
	t.Helper()
	seedProduct(t, store, "p-status", "Lamp", "10.00", 50)
	order, err := newCoordinator(store).PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p-status", Quantity: 1}},
	})
	require.NoError(t, err)
	return order.ID
}

func statusChangeCount(t *testing.T, store *memory.Store) int {
	t.Helper()
	list, err := store.ListNotifications(context.Background(), 100)
	require.NoError(t, err)
	count := 0
	for _, n := range list {
		if n.Type == domain.NotificationStatusChange {
			count++
		}
	}
	return count
}

func TestUpdateStatusNormalizesAndNotifies(t *testing.T) {
	store := memory.NewStore()
	orderID := placeTestOrder(t, store)
	handler := orders.NewStatusHandler(store, notifications.NewNotifier(store, zap.NewNop()), zap.NewNop())

	order, err := handler.UpdateStatus(context.Background(), orderID, "CANCELLED by customer")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	assert.Equal(t, 1, statusChangeCount(t, store))

	// Re-applying the same status still writes and re-emits: emission
	// follows every persisted transition, identical or not.
	order, err = handler.UpdateStatus(context.Background(), orderID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	assert.Equal(t, 2, statusChangeCount(t, store))
}

func TestUpdateStatusDelivered(t *testing.T) {
	store := memory.NewStore()
	orderID := placeTestOrder(t, store)
	handler := orders.NewStatusHandler(store, notifications.NewNotifier(store, zap.NewNop()), zap.NewNop())

	order, err := handler.UpdateStatus(context.Background(), orderID, "package Delivered at door")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, order.Status)
	assert.Equal(t, 1, statusChangeCount(t, store))
}

func TestUpdateStatusVerbatimEmitsNothing(t *testing.T) {
	store := memory.NewStore()
	orderID := placeTestOrder(t, store)
	handler := orders.NewStatusHandler(store, notifications.NewNotifier(store, zap.NewNop()), zap.NewNop())

	order, err := handler.UpdateStatus(context.Background(), orderID, "  shipped ")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatus("shipped"), order.Status)
	assert.Equal(t, 0, statusChangeCount(t, store))
}

func TestUpdateStatusErrors(t *testing.T) {
	store := memory.NewStore()
	orderID := placeTestOrder(t, store)
	handler := orders.NewStatusHandler(store, notifications.NewNotifier(store, zap.NewNop()), zap.NewNop())

	_, err := handler.UpdateStatus(context.Background(), "no-such-order", "delivered")
	assert.True(t, domain.IsNotFound(err), "got %v", err)

	_, err = handler.UpdateStatus(context.Background(), orderID, "   ")
	assert.True(t, domain.IsValidation(err), "got %v", err)
}
