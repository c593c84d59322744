package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock quantity below which a product is
// considered low on stock and a LowStock notification is due.
const LowStockThreshold = 20

// Product represents a catalog entry. Stock is mutated only by catalog
// updates and by order commits; it never goes negative.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LowOnStock reports whether the product's current stock is below the
// low-stock threshold.
func (p Product) LowOnStock() bool {
	return p.Stock < LowStockThreshold
}
