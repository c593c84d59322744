package orders

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/platform/observability"
	"orderservice/internal/storage"
)

// LineRequest is one product/quantity pair of an order request.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CommittedLine is the priced snapshot of one line after a successful
// reserve-and-decrement. Remaining is the product's stock after every line
// of the batch has been applied.
type CommittedLine struct {
	ProductID  string
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	LineTotal  decimal.Decimal
	PriorStock int
	Remaining  int
}

// StockLedger owns the per-product stock quantity. Decrements happen only
// here, inside the caller's unit of work, so the batch is all-or-nothing
// with respect to concurrent orders touching the same products.
type StockLedger struct {
	logger observability.Logger
	tracer observability.Tracer
}

func NewStockLedger(logger observability.Logger, tracer observability.Tracer) *StockLedger {
	return &StockLedger{logger: logger, tracer: tracer}
}

// ReserveAndDecrement validates every line against current stock and, only
// if all lines pass, decrements each product by its requested quantity.
// The consistent read locks the product rows for the rest of the unit of
// work. Alerting on the resulting stock levels is the caller's concern.
func (l *StockLedger) ReserveAndDecrement(ctx context.Context, tx storage.Tx, lines []LineRequest) ([]CommittedLine, error) {
	ctx, span := l.tracer.Start(ctx, "stock_reserve")
	defer span.End()
	span.SetAttributes(attribute.Int("stock.lines", len(lines)))

	if len(lines) == 0 {
		return nil, domain.NewValidationError("items", "must not be empty")
	}

	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, domain.NewValidationError("quantity", "must be a positive integer")
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	products, err := tx.ProductsForUpdate(ctx, ids)
	if err != nil {
		span.SetStatus(codes.Error, "stock read failed")
		return nil, err
	}

	// Validate the whole batch before touching anything. A product may
	// appear on several lines; availability is checked cumulatively.
	remaining := make(map[string]int, len(products))
	for id, p := range products {
		remaining[id] = p.Stock
	}
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			span.SetStatus(codes.Error, "product not found")
			return nil, &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
		if line.Quantity > remaining[p.ID] {
			span.SetStatus(codes.Error, "insufficient stock")
			return nil, &domain.InsufficientStockError{
				ProductID: p.ID,
				Available: remaining[p.ID],
				Requested: line.Quantity,
			}
		}
		remaining[p.ID] -= line.Quantity
	}

	committed := make([]CommittedLine, 0, len(lines))
	for _, line := range lines {
		if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			span.SetStatus(codes.Error, "stock decrement failed")
			return nil, err
		}
		p := products[line.ProductID]
		qty := decimal.NewFromInt(int64(line.Quantity))
		committed = append(committed, CommittedLine{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitPrice:  p.Price,
			Quantity:   line.Quantity,
			LineTotal:  p.Price.Mul(qty),
			PriorStock: p.Stock,
			Remaining:  remaining[p.ID],
		})
	}

	l.logger.Info("Stock reserved",
		zap.Int("lines", len(committed)),
		zap.Int("products", len(ids)),
	)
	span.SetStatus(codes.Ok, "stock reserved")
	return committed, nil
}
