package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/platform/observability"
	"orderservice/internal/storage"
)

// Event names carried on the publish channel.
const (
	EventLowStock     = "notification.low_stock"
	EventStatusChange = "notification.status_change"
)

// Publisher is a fire-and-forget broadcast to zero or more subscribers.
// There is no delivery guarantee; failures are the publisher's problem,
// never the caller's.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// Notifier records a notification and pushes it to every publisher.
// Emission is best-effort: storage or publish failures are logged and
// swallowed so they can never fail the operation that triggered them.
type Notifier struct {
	store      storage.Store
	publishers []Publisher
	logger     observability.Logger
}

func NewNotifier(store storage.Store, logger observability.Logger, publishers ...Publisher) *Notifier {
	return &Notifier{
		store:      store,
		publishers: publishers,
		logger:     logger,
	}
}

// LowStock emits a LowStock notification for a product with the given
// remaining quantity.
func (n *Notifier) LowStock(ctx context.Context, productID, name string, remaining int) {
	msg := fmt.Sprintf("Product %q is low on stock: %d left", name, remaining)
	n.emit(ctx, EventLowStock, domain.NotificationLowStock, productID, msg)
}

// StatusChange emits a StatusChange notification for an order that entered
// a terminal-ish status. Statuses outside the known set emit nothing.
func (n *Notifier) StatusChange(ctx context.Context, orderID string, status domain.OrderStatus) {
	var msg string
	switch status {
	case domain.StatusDelivered:
		msg = fmt.Sprintf("Order %s has been delivered", orderID)
	case domain.StatusCancelled:
		msg = fmt.Sprintf("Order %s has been cancelled/returned", orderID)
	default:
		return
	}
	n.emit(ctx, EventStatusChange, domain.NotificationStatusChange, orderID, msg)
}

func (n *Notifier) emit(ctx context.Context, event string, typ domain.NotificationType, refID, message string) {
	notification := &domain.Notification{
		ID:        uuid.New().String(),
		Type:      typ,
		RefID:     refID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		n.logger.Warn("Failed to record notification",
			zap.Error(err),
			zap.String("type", string(typ)),
			zap.String("ref_id", refID),
		)
		return
	}

	for _, p := range n.publishers {
		if err := p.Publish(ctx, event, notification); err != nil {
			n.logger.Warn("Failed to publish notification",
				zap.Error(err),
				zap.String("event", event),
				zap.String("notification_id", notification.ID),
			)
		}
	}
}

// List returns the most recent notifications, newest first, bounded by limit.
func (n *Notifier) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return n.store.ListNotifications(ctx, limit)
}

// MarkRead flips the read flag on one notification.
func (n *Notifier) MarkRead(ctx context.Context, id string) error {
	return n.store.MarkNotificationRead(ctx, id)
}

// Delete removes one notification.
func (n *Notifier) Delete(ctx context.Context, id string) error {
	return n.store.DeleteNotification(ctx, id)
}
