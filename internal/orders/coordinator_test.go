package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/notifications"
	"orderservice/internal/orders"
	"orderservice/internal/storage"
	"orderservice/internal/storage/memory"
)

func newCoordinator(store storage.Store) *orders.Coordinator {
	logger := zap.NewNop()
	tracer := otel.Tracer("test")
	notifier := notifications.NewNotifier(store, logger)
	return orders.NewCoordinator(store, orders.NewStockLedger(logger, tracer), notifier, nil, logger, tracer)
}

func lowStockCount(t *testing.T, store storage.Store) int {
	t.Helper()
	list, err := store.ListNotifications(context.Background(), 100)
	require.NoError(t, err)
	count := 0
	for _, n := range list {
		if n.Type == domain.NotificationLowStock {
			count++
		}
	}
	return count
}

func TestPlaceOrderCommitsTotalAndStock(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "19.99", 40)
	seedProduct(t, store, "p2", "Desk", "120.00", 25)

	order, err := newCoordinator(store).PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items: []orders.LineRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("159.98")), "got %s", order.Total)

	stored, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(order.Total))

	items, err := store.OrderLineItems(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Sum of committed line totals equals the persisted order total.
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.LineTotal)
	}
	assert.True(t, sum.Equal(stored.Total))

	p1, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 38, p1.Stock)
}

func TestPlaceOrderValidation(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "19.99", 40)
	coordinator := newCoordinator(store)

	tests := []struct {
		name string
		req  orders.PlaceOrderRequest
	}{
		{"missing customer", orders.PlaceOrderRequest{
			PaymentMode: "card",
			Items:       []orders.LineRequest{{ProductID: "p1", Quantity: 1}},
		}},
		{"missing payment mode", orders.PlaceOrderRequest{
			CustomerName: "Ada",
			Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 1}},
		}},
		{"no items", orders.PlaceOrderRequest{
			CustomerName: "Ada",
			PaymentMode:  "card",
		}},
		{"zero quantity", orders.PlaceOrderRequest{
			CustomerName: "Ada",
			PaymentMode:  "card",
			Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 0}},
		}},
		{"blank product id", orders.PlaceOrderRequest{
			CustomerName: "Ada",
			PaymentMode:  "card",
			Items:        []orders.LineRequest{{ProductID: "  ", Quantity: 1}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := coordinator.PlaceOrder(context.Background(), tc.req)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	// Validation failures never touch storage.
	p1, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 40, p1.Stock)
	orderList, err := store.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orderList)
}

func TestPlaceOrderUnknownProductLeavesNoTrace(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "19.99", 40)

	_, err := newCoordinator(store).PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items: []orders.LineRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "ghost", Quantity: 1},
		},
	})
	var notFound *domain.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)

	p1, getErr := store.GetProduct(context.Background(), "p1")
	require.NoError(t, getErr)
	assert.Equal(t, 40, p1.Stock)
	orderList, listErr := store.ListOrders(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, orderList)
}

func TestPlaceOrderRoundTrip(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "10.00", 30)
	coordinator := newCoordinator(store)

	_, err := coordinator.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 15}},
	})
	require.NoError(t, err)

	p1, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 15, p1.Stock)

	_, err = coordinator.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 16}},
	})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 15, insufficient.Available)
	assert.Equal(t, 16, insufficient.Requested)

	p1, err = store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 15, p1.Stock)
}

func TestPlaceOrderConcurrentLastUnit(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "10.00", 1)
	coordinator := newCoordinator(store)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := coordinator.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
				CustomerName: "Ada",
				PaymentMode:  "card",
				Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 1}},
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var insufficient *domain.InsufficientStockError
	switch {
	case results[0] == nil:
		require.ErrorAs(t, results[1], &insufficient)
	case results[1] == nil:
		require.ErrorAs(t, results[0], &insufficient)
	default:
		t.Fatalf("expected exactly one success, got %v and %v", results[0], results[1])
	}

	p1, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p1.Stock)
}

func TestPlaceOrderEmitsLowStockPerQualifyingProduct(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "Lamp", "10.00", 25)
	seedProduct(t, store, "p2", "Desk", "99.00", 100)
	coordinator := newCoordinator(store)

	// p1 drops to 15 (< 20): one alert. p2 stays at 90: none.
	_, err := coordinator.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items: []orders.LineRequest{
			{ProductID: "p1", Quantity: 10},
			{ProductID: "p2", Quantity: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, lowStockCount(t, store))

	// Order commits are alerted per order: another qualifying decrement of
	// p1 emits again even though it was already below the threshold.
	_, err = coordinator.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, lowStockCount(t, store))
}

// notificationFailingStore fails every notification insert while behaving
// normally otherwise.
type notificationFailingStore struct {
	*memory.Store
}

func (s *notificationFailingStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	return errors.New("notification store down")
}

func TestPlaceOrderSurvivesNotifierFailure(t *testing.T) {
	store := &notificationFailingStore{Store: memory.NewStore()}
	seedProduct(t, store.Store, "p1", "Lamp", "10.00", 5)

	order, err := newCoordinator(store).PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Ada",
		PaymentMode:  "card",
		Items:        []orders.LineRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	stored, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}
