package storage

import (
	"context"

	"orderservice/internal/domain"
)

// Store is the persistent store consumed by the services. Implementations
// must support atomic multi-row units of work via RunInTx; all other
// methods are single operations with their own consistency.
type Store interface {
	// RunInTx runs fn inside one unit of work. If fn returns an error the
	// unit of work rolls back and no side effect is observable.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	OrderLineItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error

	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error

	Close() error
}

// Tx is the handle passed to a unit of work. Reads through Tx observe the
// transaction's own writes; ProductsForUpdate additionally locks the rows
// against concurrent decrements until the unit of work ends.
type Tx interface {
	// ProductsForUpdate loads every referenced product in one consistent
	// read, holding the rows exclusively for the rest of the unit of work.
	// Missing ids are simply absent from the result.
	ProductsForUpdate(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// DecrementStock reduces a product's stock by qty. The stock quantity
	// never goes negative; callers validate availability first, the store
	// enforces it as a last line of defense.
	DecrementStock(ctx context.Context, productID string, qty int) error

	InsertOrder(ctx context.Context, o *domain.Order) error
	InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error
}
