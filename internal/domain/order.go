package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the canonical order state. The set is open: status
// strings that do not normalize to a known state are stored verbatim.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled/Returned"
)

// Order is created once per successful placement. Total is derived from
// the committed line items and never recomputed afterwards.
type Order struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	PaymentMode  string          `json:"payment_mode"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderLineItem is a denormalized snapshot of a product at purchase time.
// ProductID is a soft reference: deleting the product later must not break
// historical orders, so name, price and line total are copied here.
type OrderLineItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}
