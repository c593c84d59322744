package notifications_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/notifications"
	"orderservice/internal/storage/memory"
)

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, event string, payload any) error {
	return errors.New("channel down")
}

func TestLowStockRecordsAndBroadcasts(t *testing.T) {
	store := memory.NewStore()
	broadcaster := notifications.NewBroadcaster()
	events, cancel := broadcaster.Subscribe(4)
	defer cancel()

	notifier := notifications.NewNotifier(store, zap.NewNop(), broadcaster)
	notifier.LowStock(context.Background(), "p1", "Lamp", 3)

	list, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationLowStock, list[0].Type)
	assert.Equal(t, "p1", list[0].RefID)
	assert.Contains(t, list[0].Message, "Lamp")
	assert.False(t, list[0].Read)

	event := <-events
	assert.Equal(t, notifications.EventLowStock, event.Name)
	published, ok := event.Payload.(*domain.Notification)
	require.True(t, ok)
	assert.Equal(t, list[0].ID, published.ID)
}

func TestStatusChangeMessages(t *testing.T) {
	store := memory.NewStore()
	notifier := notifications.NewNotifier(store, zap.NewNop())

	notifier.StatusChange(context.Background(), "o1", domain.StatusDelivered)
	notifier.StatusChange(context.Background(), "o1", domain.StatusCancelled)
	// Pending and verbatim statuses emit nothing.
	notifier.StatusChange(context.Background(), "o1", domain.StatusPending)
	notifier.StatusChange(context.Background(), "o1", domain.OrderStatus("shipped"))

	list, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest first.
	assert.Contains(t, list[0].Message, "cancelled/returned")
	assert.Contains(t, list[1].Message, "delivered")
}

func TestPublisherFailureIsSwallowed(t *testing.T) {
	store := memory.NewStore()
	notifier := notifications.NewNotifier(store, zap.NewNop(), failingPublisher{})

	notifier.LowStock(context.Background(), "p1", "Lamp", 3)

	// The record still exists; the publish failure stayed internal.
	list, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListBoundedNewestFirst(t *testing.T) {
	store := memory.NewStore()
	notifier := notifications.NewNotifier(store, zap.NewNop())

	for i := 0; i < 5; i++ {
		notifier.LowStock(context.Background(), "p1", "Lamp", 5-i)
	}

	list, err := notifier.List(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Contains(t, list[0].Message, "1 left")

	// Non-positive limit falls back to the default bound.
	list, err = notifier.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestMarkReadAndDelete(t *testing.T) {
	store := memory.NewStore()
	notifier := notifications.NewNotifier(store, zap.NewNop())
	notifier.LowStock(context.Background(), "p1", "Lamp", 3)

	list, err := notifier.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, notifier.MarkRead(context.Background(), list[0].ID))
	list, err = notifier.List(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, list[0].Read)

	require.NoError(t, notifier.Delete(context.Background(), list[0].ID))
	list, err = notifier.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, domain.IsNotFound(notifier.MarkRead(context.Background(), "ghost")))
	assert.True(t, domain.IsNotFound(notifier.Delete(context.Background(), "ghost")))
}
