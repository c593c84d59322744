package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/notifications"
	"orderservice/internal/platform/observability"
	"orderservice/internal/storage"
)

// PlaceOrderRequest is the transport-agnostic order placement input.
// Line prices are never caller-supplied: every line is re-priced from the
// catalog inside the transaction.
type PlaceOrderRequest struct {
	CustomerName string
	PaymentMode  string
	Items        []LineRequest
}

// CacheInvalidator drops cached product entries whose stock changed.
// A nil invalidator is allowed.
type CacheInvalidator interface {
	Remove(ctx context.Context, productID string)
}

// Coordinator runs the order placement transaction: validate, price against
// the catalog, commit order + line items + stock decrements atomically, then
// fire low-stock alerts best-effort.
type Coordinator struct {
	store    storage.Store
	ledger   *StockLedger
	notifier *notifications.Notifier
	cache    CacheInvalidator
	logger   observability.Logger
	tracer   observability.Tracer
}

func NewCoordinator(
	store storage.Store,
	ledger *StockLedger,
	notifier *notifications.Notifier,
	cache CacheInvalidator,
	logger observability.Logger,
	tracer observability.Tracer,
) *Coordinator {
	return &Coordinator{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
		tracer:   tracer,
	}
}

// PlaceOrder commits one order. Any ledger failure aborts the whole unit of
// work: no order, no line items, no stock mutation survive. Repeated calls
// are not deduplicated; an idempotency key belongs to the caller.
func (c *Coordinator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "place_order")
	defer span.End()

	if err := validatePlaceOrder(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	var (
		order domain.Order
		lines []CommittedLine
	)
	err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
		committed, err := c.ledger.ReserveAndDecrement(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range committed {
			total = total.Add(line.LineTotal)
		}

		order = domain.Order{
			ID:           uuid.New().String(),
			CustomerName: strings.TrimSpace(req.CustomerName),
			Total:        total,
			PaymentMode:  strings.TrimSpace(req.PaymentMode),
			Status:       domain.StatusPending,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}

		items := make([]domain.OrderLineItem, 0, len(committed))
		for _, line := range committed {
			items = append(items, domain.OrderLineItem{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Name:      line.Name,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: line.LineTotal,
			})
		}
		if err := tx.InsertLineItems(ctx, items); err != nil {
			return err
		}

		lines = committed
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "order placement failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.total", order.Total.String()),
		attribute.Int("order.lines", len(lines)),
	)
	span.SetStatus(codes.Ok, "order placed")
	c.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.String()),
		zap.Int("lines", len(lines)),
	)

	// Post-commit, best-effort: one LowStock alert per product the commit
	// left below the threshold, and cache invalidation for every product
	// whose stock changed. Neither can fail the order.
	c.afterCommit(ctx, lines)

	return &order, nil
}

func (c *Coordinator) afterCommit(ctx context.Context, lines []CommittedLine) {
	finalRemaining := make(map[string]int, len(lines))
	names := make(map[string]string, len(lines))
	for _, line := range lines {
		// Lines repeat a product id; the last one carries the lowest
		// remaining count, which is the committed value.
		if cur, ok := finalRemaining[line.ProductID]; !ok || line.Remaining < cur {
			finalRemaining[line.ProductID] = line.Remaining
		}
		names[line.ProductID] = line.Name
	}

	for id, remaining := range finalRemaining {
		if c.cache != nil {
			c.cache.Remove(ctx, id)
		}
		if remaining < domain.LowStockThreshold {
			c.notifier.LowStock(ctx, id, names[id], remaining)
		}
	}
}

func validatePlaceOrder(req PlaceOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return domain.NewValidationError("customerName", "is required")
	}
	if strings.TrimSpace(req.PaymentMode) == "" {
		return domain.NewValidationError("paymentMode", "is required")
	}
	if len(req.Items) == 0 {
		return domain.NewValidationError("items", "must not be empty")
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return domain.NewValidationError("items.productId", "is required")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError("items.quantity", "must be a positive integer")
		}
	}
	return nil
}

// GetOrder reads one order with its line item snapshots.
func (c *Coordinator) GetOrder(ctx context.Context, id string) (*domain.Order, []domain.OrderLineItem, error) {
	order, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := c.store.OrderLineItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// ListOrders returns all orders, newest first.
func (c *Coordinator) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return c.store.ListOrders(ctx)
}
