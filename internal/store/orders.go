package store

import (
	"context"
	"database/sql"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// Tx is a single database transaction over the order ledger. All writes
// performed through it become visible atomically on Commit.
type Tx struct {
	tx *sqlx.Tx
}

// Begin opens a transaction
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// InsertOrder writes the order header and fills ID, Status and CreatedAt
func (t *Tx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, customer_name, customer_phone, customer_address, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return t.tx.QueryRowxContext(ctx, query,
		order.UserID, order.CustomerName, order.CustomerPhone,
		order.CustomerAddress, order.TotalPrice, order.Status).
		Scan(&order.ID, &order.CreatedAt)
}

// InsertOrderItems writes all line items as one batch
func (t *Tx) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, product_name, price, quantity)
		VALUES (:order_id, :product_id, :product_name, :price, :quantity)`,
		items)
	return err
}

// LockOrderStatus reads the order's current status under a row lock,
// serializing concurrent transitions of the same order.
func (t *Tx) LockOrderStatus(ctx context.Context, orderID int64) (string, error) {
	var status string
	err := t.tx.GetContext(ctx, &status,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return status, err
}

// SetOrderStatus writes the order status within the transaction
func (t *Tx) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	return err
}

// OrderItems reads the order's line items within the transaction
func (t *Tx) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := t.tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// DeductStock decrements a product's stock by quantity, clamped at zero.
// The single UPDATE computes the new value under the product row lock, so
// concurrent decrements are serialized per row and never lost. A missing
// product is not an error: the item's reference is soft.
func (t *Tx) DeductStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = GREATEST(0, stock_quantity - $1) WHERE id = $2",
		quantity, productID)
	return err
}

// OrderByID retrieves an order by ID
func (s *Store) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrdersByUserID retrieves a user's orders, newest first
func (s *Store) OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// OrderItemsByOrderID retrieves all items for an order
func (s *Store) OrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}
