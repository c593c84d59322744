package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orderservice/internal/domain"
	"orderservice/internal/storage"
)

// Store is an in-memory storage.Store. It backs tests and local runs; the
// production store is the postgres implementation. A single mutex serializes
// units of work, which trivially satisfies the per-product decrement
// atomicity guarantee. Nothing inside a unit of work performs IO, so the
// lock is never held across a suspension point.
type Store struct {
	mu            sync.Mutex
	products      map[string]domain.Product
	orders        map[string]domain.Order
	items         map[string][]domain.OrderLineItem
	notifications []domain.Notification
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		items:    make(map[string][]domain.OrderLineItem),
	}
}

func (s *Store) Close() error { return nil }

// RunInTx stages all writes and applies them only when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:      s,
		stockDelta: make(map[string]int),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "product", ID: id}
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return &domain.NotFoundError{Kind: "product", ID: p.ID}
	}
	s.products[p.ID] = *p
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return &domain.NotFoundError{Kind: "product", ID: id}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "order", ID: id}
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *Store) OrderLineItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OrderLineItem(nil), s.items[orderID]...), nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return &domain.NotFoundError{Kind: "order", ID: id}
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Most recent first; the slice is append-only so reverse order works.
	notifications := make([]domain.Notification, 0, len(s.notifications))
	for i := len(s.notifications) - 1; i >= 0 && len(notifications) < limit; i-- {
		notifications = append(notifications, s.notifications[i])
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return &domain.NotFoundError{Kind: "notification", ID: id}
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return &domain.NotFoundError{Kind: "notification", ID: id}
}

// memTx stages writes against the store and applies them on success. The
// store's mutex is already held for the whole unit of work.
type memTx struct {
	store      *Store
	stockDelta map[string]int
	orders     []domain.Order
	items      []domain.OrderLineItem
}

func (t *memTx) ProductsForUpdate(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	products := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.store.products[id]; ok {
			p.Stock -= t.stockDelta[id]
			products[id] = p
		}
	}
	return products, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return &domain.NotFoundError{Kind: "product", ID: productID}
	}
	if p.Stock-t.stockDelta[productID]-qty < 0 {
		return domain.WrapStorageError(
			fmt.Errorf("stock decrement rejected for product %s", productID), "UPDATE", "products")
	}
	t.stockDelta[productID] += qty
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	t.orders = append(t.orders, *o)
	return nil
}

func (t *memTx) InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error {
	t.items = append(t.items, items...)
	return nil
}

func (t *memTx) apply() {
	for id, delta := range t.stockDelta {
		p := t.store.products[id]
		p.Stock -= delta
		t.store.products[id] = p
	}
	for _, o := range t.orders {
		t.store.orders[o.ID] = o
	}
	for _, li := range t.items {
		t.store.items[li.OrderID] = append(t.store.items[li.OrderID], li)
	}
}
