package orders

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/notifications"
	"orderservice/internal/platform/observability"
	"orderservice/internal/storage"
)

// NormalizeStatus maps a raw requested status onto the canonical set by
// case-insensitive substring match. Anything that matches none of the known
// states is stored verbatim, trimmed. Transitions are free-form; there is
// no forward-only state machine.
func NormalizeStatus(raw string) domain.OrderStatus {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "cancelled"), strings.Contains(lower, "returned"):
		return domain.StatusCancelled
	case strings.Contains(lower, "delivered"):
		return domain.StatusDelivered
	case strings.Contains(lower, "pending"):
		return domain.StatusPending
	}
	return domain.OrderStatus(trimmed)
}

// StatusHandler applies order status changes and emits the matching
// StatusChange notifications.
type StatusHandler struct {
	store    storage.Store
	notifier *notifications.Notifier
	logger   observability.Logger
}

func NewStatusHandler(store storage.Store, notifier *notifications.Notifier, logger observability.Logger) *StatusHandler {
	return &StatusHandler{store: store, notifier: notifier, logger: logger}
}

// UpdateStatus normalizes and persists the requested status, then re-reads
// the order and notifies on the new state. Re-applying the same status
// writes again and re-emits its notification; the storage write is
// idempotent, the notification deliberately is not suppressed.
func (h *StatusHandler) UpdateStatus(ctx context.Context, orderID, requested string) (*domain.Order, error) {
	if strings.TrimSpace(requested) == "" {
		return nil, domain.NewValidationError("status", "is required")
	}

	normalized := NormalizeStatus(requested)
	if err := h.store.UpdateOrderStatus(ctx, orderID, normalized); err != nil {
		return nil, err
	}

	order, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(order.Status)),
	)

	// Notification follows the status as persisted, not as requested.
	h.notifier.StatusChange(ctx, order.ID, order.Status)

	return order, nil
}
