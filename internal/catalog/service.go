package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/notifications"
	"orderservice/internal/platform/observability"
	"orderservice/internal/storage"
)

// CreateProductRequest carries all fields for a new catalog entry. Image
// is an optional raw payload handed to the blob store.
type CreateProductRequest struct {
	Name        string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Description string
	Image       []byte
	ImageName   string
}

// UpdateProductRequest is a partial update; nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Description *string
	Image       []byte
	ImageName   string
}

// Service owns product CRUD and the low-stock alerting on catalog
// mutations.
type Service struct {
	store    storage.Store
	cache    *Cache
	images   ImageStore
	notifier *notifications.Notifier
	logger   observability.Logger
}

func NewService(
	store storage.Store,
	cache *Cache,
	images ImageStore,
	notifier *notifications.Notifier,
	logger observability.Logger,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		images:   images,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateProduct persists a new product and, when it is born below the
// low-stock threshold, emits a LowStock notification right away.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if req.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "must not be negative")
	}
	if req.Stock < 0 {
		return nil, domain.NewValidationError("stock", "must not be negative")
	}

	product := domain.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	}

	if len(req.Image) > 0 {
		url, err := s.images.Put(ctx, req.ImageName, req.Image)
		if err != nil {
			return nil, err
		}
		product.Image = url
	}

	if err := s.store.CreateProduct(ctx, &product); err != nil {
		return nil, err
	}
	s.cache.Put(ctx, product)

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int("stock", product.Stock),
	)

	if product.LowOnStock() {
		s.notifier.LowStock(ctx, product.ID, product.Name, product.Stock)
	}
	return &product, nil
}

// UpdateProduct applies a partial update. A LowStock notification is
// emitted only when the update crosses into low stock (prior stock at or
// above the threshold, new stock below it); edits to an already-low
// product stay silent.
func (s *Service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*domain.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	priorStock := product.Stock

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, domain.NewValidationError("name", "must not be empty")
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, domain.NewValidationError("price", "must not be negative")
		}
		product.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, domain.NewValidationError("stock", "must not be negative")
		}
		product.Stock = *req.Stock
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}

	if len(req.Image) > 0 {
		url, err := s.images.Put(ctx, req.ImageName, req.Image)
		if err != nil {
			return nil, err
		}
		if product.Image != "" {
			if err := s.images.Delete(ctx, product.Image); err != nil {
				s.logger.Warn("Failed to delete replaced product image",
					zap.String("product_id", id), zap.Error(err))
			}
		}
		product.Image = url
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	s.cache.Put(ctx, *product)

	if priorStock >= domain.LowStockThreshold && product.Stock < domain.LowStockThreshold {
		s.notifier.LowStock(ctx, product.ID, product.Name, product.Stock)
	}
	return product, nil
}

// DeleteProduct removes the product from the catalog. Historical order
// line items keep their snapshots; only the live catalog entry, its cache
// key and its image blob go away.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(ctx, id)

	if product.Image != "" {
		if err := s.images.Delete(ctx, product.Image); err != nil {
			s.logger.Warn("Failed to delete product image",
				zap.String("product_id", id), zap.Error(err))
		}
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// GetProduct reads through the cache.
func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, *product)
	return product, nil
}

// ListProducts serves the catalog from the cache when the whole id set
// resolves, falling back to the store and backfilling otherwise.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if ids, ok := s.cache.IDs(ctx); ok {
		products := make([]domain.Product, 0, len(ids))
		complete := true
		for _, id := range ids {
			p, ok := s.cache.Get(ctx, id)
			if !ok {
				complete = false
				break
			}
			products = append(products, *p)
		}
		if complete {
			sort.Slice(products, func(i, j int) bool {
				return products[i].CreatedAt.After(products[j].CreatedAt)
			})
			return products, nil
		}
	}

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		s.cache.Put(ctx, p)
	}
	return products, nil
}
