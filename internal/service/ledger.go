package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/store"
)

// Ledger is the injected store handle the order engine runs against.
// The production implementation is backed by Postgres; tests supply an
// in-memory fake, which is what makes the concurrency laws testable.
type Ledger interface {
	Begin(ctx context.Context) (LedgerTx, error)
	OrderByID(ctx context.Context, id int64) (*models.Order, error)
	OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	OrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// LedgerTx is one atomic transaction over orders, items and stock.
// Everything written through it becomes visible on Commit or not at all.
type LedgerTx interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
	LockOrderStatus(ctx context.Context, orderID int64) (string, error)
	SetOrderStatus(ctx context.Context, orderID int64, status string) error
	OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	DeductStock(ctx context.Context, productID int64, quantity int) error
	Commit() error
	Rollback() error
}

// UserDirectory is the injected store handle for user records.
type UserDirectory interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
	UpdateUserAvatar(ctx context.Context, userID int64, avatar string) error
	UpdateUserProfile(ctx context.Context, userID int64, fullName, phone, address string, passwordHash *string) error
	SetUserStatus(ctx context.Context, userID int64, status string) error
}

// Catalog is the injected store handle for product records.
type Catalog interface {
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	InsertProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// EventPublisher pushes order lifecycle events to the outbound feed.
// Publishing happens only after the owning transaction commits and its
// failure never fails the operation.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// ProductCache caches product display attributes. It is an optional
// collaborator: a nil cache just means every read goes to the store.
type ProductCache interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type sqlLedger struct {
	*store.Store
}

// Begin adapts the store's concrete transaction to the LedgerTx seam.
func (l sqlLedger) Begin(ctx context.Context) (LedgerTx, error) {
	return l.Store.Begin(ctx)
}

// NewSQLLedger wraps the Postgres store as a Ledger.
func NewSQLLedger(s *store.Store) Ledger {
	return sqlLedger{s}
}
