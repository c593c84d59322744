package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"orderservice/internal/domain"
	"orderservice/internal/storage"
)

// Store is the PostgreSQL-backed storage.Store.
type Store struct {
	db *sql.DB
}

// NewStore opens a pooled connection and verifies it with a ping.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	stock       INTEGER NOT NULL CHECK (stock >= 0),
	category    TEXT,
	description TEXT,
	image       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL,
	total         NUMERIC(12,2) NOT NULL,
	payment_mode  TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_items (
	id         TEXT PRIMARY KEY,
	order_id   TEXT NOT NULL REFERENCES orders(id),
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	unit_price NUMERIC(12,2) NOT NULL,
	quantity   INTEGER NOT NULL,
	line_total NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	ref_id     TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the tables if they do not exist. order_items has no
// foreign key to products: line items are snapshots and must survive
// product deletion.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return domain.WrapStorageError(err, "SCHEMA", "")
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTx runs fn in one database transaction. Row locks taken via
// ProductsForUpdate are held until commit or rollback.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapStorageError(err, "BEGIN", "")
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapStorageError(err, "COMMIT", "")
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock, category, description, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Price, p.Stock,
		nullString(p.Category), nullString(p.Description), nullString(p.Image), p.CreatedAt)
	return domain.WrapStorageError(err, "INSERT", "products")
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, category, description, image, created_at
		FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "product", ID: id}
	}
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT", "products")
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, stock, category, description, image, created_at
		FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT", "products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.WrapStorageError(err, "SCAN", "products")
		}
		products = append(products, *p)
	}
	return products, domain.WrapStorageError(rows.Err(), "SELECT", "products")
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, stock = $4, category = $5, description = $6, image = $7
		WHERE id = $1`,
		p.ID, p.Name, p.Price, p.Stock,
		nullString(p.Category), nullString(p.Description), nullString(p.Image))
	if err != nil {
		return domain.WrapStorageError(err, "UPDATE", "products")
	}
	return noneAffected(res, "product", p.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return domain.WrapStorageError(err, "DELETE", "products")
	}
	return noneAffected(res, "product", id)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, total, payment_mode, status, created_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerName, &o.Total, &o.PaymentMode, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "order", ID: id}
	}
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT", "orders")
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, total, payment_mode, status, created_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT", "orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.Total, &o.PaymentMode, &o.Status, &o.CreatedAt); err != nil {
			return nil, domain.WrapStorageError(err, "SCAN", "orders")
		}
		orders = append(orders, o)
	}
	return orders, domain.WrapStorageError(rows.Err(), "SELECT", "orders")
}

func (s *Store) OrderLineItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, unit_price, quantity, line_total
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT", "order_items")
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var li domain.OrderLineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.ProductID, &li.Name, &li.UnitPrice, &li.Quantity, &li.LineTotal); err != nil {
			return nil, domain.WrapStorageError(err, "SCAN", "order_items")
		}
		items = append(items, li)
	}
	return items, domain.WrapStorageError(rows.Err(), "SELECT", "order_items")
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return domain.WrapStorageError(err, "UPDATE", "orders")
	}
	return noneAffected(res, "order", id)
}

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, ref_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, string(n.Type), n.RefID, n.Message, n.Read, n.CreatedAt)
	return domain.WrapStorageError(err, "INSERT", "notifications")
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, ref_id, message, read, created_at
		FROM notifications ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT", "notifications")
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.RefID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, domain.WrapStorageError(err, "SCAN", "notifications")
		}
		notifications = append(notifications, n)
	}
	return notifications, domain.WrapStorageError(rows.Err(), "SELECT", "notifications")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return domain.WrapStorageError(err, "UPDATE", "notifications")
	}
	return noneAffected(res, "notification", id)
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return domain.WrapStorageError(err, "DELETE", "notifications")
	}
	return noneAffected(res, "notification", id)
}

// pgTx implements storage.Tx over one *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

// ProductsForUpdate locks the referenced product rows in id order. The
// deterministic lock order prevents deadlocks between concurrent orders
// touching overlapping product sets.
func (t *pgTx) ProductsForUpdate(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, price, stock, category, description, image, created_at
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(sorted))
	if err != nil {
		return nil, domain.WrapStorageError(err, "SELECT FOR UPDATE", "products")
	}
	defer rows.Close()

	products := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.WrapStorageError(err, "SCAN", "products")
		}
		products[p.ID] = *p
	}
	return products, domain.WrapStorageError(rows.Err(), "SELECT FOR UPDATE", "products")
}

func (t *pgTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		productID, qty)
	if err != nil {
		return domain.WrapStorageError(err, "UPDATE", "products")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.WrapStorageError(err, "UPDATE", "products")
	}
	if n == 0 {
		// The row is locked by this transaction, so the stock >= qty guard
		// can only miss if the caller skipped validation.
		return domain.WrapStorageError(fmt.Errorf("stock decrement rejected for product %s", productID), "UPDATE", "products")
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, total, payment_mode, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CustomerName, o.Total, o.PaymentMode, string(o.Status), o.CreatedAt)
	return domain.WrapStorageError(err, "INSERT", "orders")
}

func (t *pgTx) InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error {
	for _, li := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			li.ID, li.OrderID, li.ProductID, li.Name, li.UnitPrice, li.Quantity, li.LineTotal)
		if err != nil {
			return domain.WrapStorageError(err, "INSERT", "order_items")
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var price decimal.Decimal
	var category, description, image sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &category, &description, &image, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Price = price
	p.Category = category.String
	p.Description = description.String
	p.Image = image.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func noneAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.WrapStorageError(err, "UPDATE", kind+"s")
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
