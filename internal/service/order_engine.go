package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// OrderEngine creates orders with their line items as one atomic unit and
// drives status transitions. Inventory is only ever touched through the
// guard, inside the transition transaction.
type OrderEngine struct {
	ledger    Ledger
	catalog   Catalog
	cache     ProductCache
	events    EventPublisher
	guard     *InventoryGuard
	statuses  map[string]bool
	tolerance float64
	logger    *zap.Logger
}

// NewOrderEngine creates a new order engine. recognizedStatuses defines
// the transition policy set; tolerance bounds total drift on creation.
func NewOrderEngine(
	ledger Ledger,
	catalog Catalog,
	cache ProductCache,
	events EventPublisher,
	recognizedStatuses []string,
	tolerance float64,
) *OrderEngine {
	statuses := make(map[string]bool, len(recognizedStatuses))
	for _, s := range recognizedStatuses {
		statuses[strings.TrimSpace(s)] = true
	}

	return &OrderEngine{
		ledger:    ledger,
		catalog:   catalog,
		cache:     cache,
		events:    events,
		guard:     NewInventoryGuard(),
		statuses:  statuses,
		tolerance: tolerance,
		logger:    util.GetLogger(),
	}
}

// CustomerInfo is the customer snapshot captured on the order
type CustomerInfo struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// CartItem is one submitted line of the cart
type CartItem struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerInfo CustomerInfo `json:"customer_info" binding:"required"`
	Items        []CartItem   `json:"cart_items" binding:"required,min=1"`
	Total        float64      `json:"total"`
	UserID       *int64       `json:"user_id,omitempty"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// CreateOrder validates the cart and writes the order header plus all
// line items in a single transaction. No stock moves at creation; stock
// is only affected on completion.
func (e *OrderEngine) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderEngine.CreateOrder")
	defer span.End()

	if err := e.validateCreate(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	order := &models.Order{
		CustomerName:    strings.TrimSpace(req.CustomerInfo.Name),
		CustomerPhone:   strings.TrimSpace(req.CustomerInfo.Phone),
		CustomerAddress: strings.TrimSpace(req.CustomerInfo.Address),
		TotalPrice:      req.Total,
		Status:          models.OrderStatusPending,
	}
	if req.UserID != nil {
		order.UserID.Int64 = *req.UserID
		order.UserID.Valid = true
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("store").Inc()
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not start order transaction", err)
	}
	defer tx.Rollback()

	if err := tx.InsertOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("store").Inc()
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not write order", err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
		})
	}

	if err := tx.InsertOrderItems(ctx, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("store").Inc()
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not write order items", err)
	}

	if err := tx.Commit(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("store").Inc()
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not commit order", err)
	}

	util.OrdersCreatedTotal.Inc()
	e.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Float64("total", order.TotalPrice),
		zap.Int("items", len(items)))

	e.publishCreated(ctx, order, items)

	return &CreateOrderResponse{OrderID: order.ID, Status: order.Status}, nil
}

func (e *OrderEngine) validateCreate(req *CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerInfo.Name) == "" ||
		strings.TrimSpace(req.CustomerInfo.Phone) == "" ||
		strings.TrimSpace(req.CustomerInfo.Address) == "" {
		return apperr.New(apperr.ValidationFailed, "customer name, phone and address are required")
	}

	if len(req.Items) == 0 {
		return apperr.New(apperr.ValidationFailed, "cart is empty")
	}

	var sum float64
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return apperr.Newf(apperr.ValidationFailed, "quantity must be positive for product %d", it.ProductID)
		}
		if it.Price < 0 {
			return apperr.Newf(apperr.ValidationFailed, "price must not be negative for product %d", it.ProductID)
		}
		sum += it.Price * float64(it.Quantity)
	}

	if math.Abs(sum-req.Total) > e.tolerance {
		return apperr.Newf(apperr.ValidationFailed,
			"order total %.2f does not match item sum %.2f", req.Total, sum)
	}

	return nil
}

// ListOrdersForUser returns a user's orders, newest first
func (e *OrderEngine) ListOrdersForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := e.ledger.OrdersByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not list orders", err)
	}
	return orders, nil
}

// GetOrderDetail returns an order with its items, enriched with display
// attributes from the product table where the product still exists.
func (e *OrderEngine) GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderEngine.GetOrderDetail")
	defer span.End()

	order, err := e.ledger.OrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Newf(apperr.NotFound, "order %d not found", orderID)
		}
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not read order", err)
	}

	items, err := e.ledger.OrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not read order items", err)
	}

	detail := &models.OrderDetail{Order: *order, Items: make([]models.OrderItemDetail, 0, len(items))}
	for _, item := range items {
		d := models.OrderItemDetail{OrderItem: item}
		if p := e.lookupProduct(ctx, item.ProductID); p != nil {
			d.Image = p.Image
			d.SKU.String = p.SKU
			d.SKU.Valid = true
		}
		detail.Items = append(detail.Items, d)
	}

	return detail, nil
}

// lookupProduct resolves display attributes through the cache. Misses and
// cache failures fall through to the store; a deleted product yields nil.
func (e *OrderEngine) lookupProduct(ctx context.Context, productID int64) *models.Product {
	if e.cache != nil {
		if p, err := e.cache.GetProduct(ctx, productID); err == nil && p != nil {
			return p
		}
	}

	p, err := e.catalog.ProductByID(ctx, productID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("Product lookup failed", zap.Int64("product_id", productID), zap.Error(err))
		}
		return nil
	}

	if e.cache != nil {
		if err := e.cache.SetProduct(ctx, p); err != nil {
			e.logger.Warn("Product cache write failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	return p
}

// TransitionStatus moves an order to newStatus. The transition into
// Completed applies the inventory deduction exactly once: the status
// check, all decrements and the status flip share one transaction, so a
// repeat call observes Completed under the row lock and becomes a no-op.
func (e *OrderEngine) TransitionStatus(ctx context.Context, orderID int64, newStatus string) error {
	ctx, span := util.StartSpan(ctx, "OrderEngine.TransitionStatus")
	defer span.End()

	newStatus = strings.TrimSpace(newStatus)
	if !e.statuses[newStatus] {
		util.TransitionsFailedTotal.WithLabelValues("unrecognized").Inc()
		return apperr.Newf(apperr.InvalidTransition, "unrecognized order status %q", newStatus)
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "could not start transition transaction", err)
	}
	defer tx.Rollback()

	var completed bool
	var completedItems []models.OrderItem

	if newStatus == models.OrderStatusCompleted {
		completed, completedItems, err = e.guard.ApplyCompletion(ctx, tx, orderID)
		if err != nil {
			return err
		}
	} else {
		if _, err := tx.LockOrderStatus(ctx, orderID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Newf(apperr.NotFound, "order %d not found", orderID)
			}
			return apperr.Wrap(apperr.StoreUnavailable, "could not lock order", err)
		}
		if err := tx.SetOrderStatus(ctx, orderID, newStatus); err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "could not update order status", err)
		}
	}

	if err := tx.Commit(); err != nil {
		util.TransitionsFailedTotal.WithLabelValues("store").Inc()
		return apperr.Wrap(apperr.StoreUnavailable, "could not commit transition", err)
	}

	switch {
	case completed:
		util.OrdersCompletedTotal.Inc()
		e.logger.Info("Order completed", zap.Int64("order_id", orderID), zap.Int("items", len(completedItems)))
		e.publishCompleted(ctx, orderID, completedItems)
	case newStatus == models.OrderStatusCancelled:
		util.OrdersCancelledTotal.Inc()
		e.logger.Info("Order cancelled", zap.Int64("order_id", orderID))
		e.publishCancelled(ctx, orderID)
	default:
		e.logger.Info("Order status updated", zap.Int64("order_id", orderID), zap.String("status", newStatus))
	}

	return nil
}
