package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// InventoryGuard applies the stock effects of order completion. It only
// ever runs inside a transition transaction: the status re-check, every
// decrement and the status flip commit together or not at all.
//
// Stock is decremented at completion, not reserved at creation, and each
// decrement clamps at zero. Overselling between creation and completion
// is therefore possible; that is the inventory model, not a defect.
type InventoryGuard struct {
	logger *zap.Logger
}

// NewInventoryGuard creates a new inventory guard
func NewInventoryGuard() *InventoryGuard {
	return &InventoryGuard{logger: util.GetLogger()}
}

// ApplyCompletion re-reads the order status under a row lock and, unless
// the order is already Completed, deducts stock for every line item and
// flips the status. Returns whether the side effects were applied and
// the items they covered. A second caller racing on the same order blocks
// on the row lock, then observes Completed and returns without touching
// inventory.
func (g *InventoryGuard) ApplyCompletion(ctx context.Context, tx LedgerTx, orderID int64) (bool, []models.OrderItem, error) {
	status, err := tx.LockOrderStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil, apperr.Newf(apperr.NotFound, "order %d not found", orderID)
		}
		return false, nil, apperr.Wrap(apperr.StoreUnavailable, "could not lock order", err)
	}

	// Idempotent re-entry: the deduction already happened.
	if status == models.OrderStatusCompleted {
		return false, nil, nil
	}

	// A voided order must never deduct stock.
	if status == models.OrderStatusCancelled {
		util.TransitionsFailedTotal.WithLabelValues("cancelled_to_completed").Inc()
		return false, nil, apperr.Newf(apperr.InvalidTransition,
			"order %d is cancelled and cannot be completed", orderID)
	}

	start := time.Now()

	items, err := tx.OrderItems(ctx, orderID)
	if err != nil {
		return false, nil, apperr.Wrap(apperr.StoreUnavailable, "could not read order items", err)
	}

	for _, item := range items {
		if err := tx.DeductStock(ctx, item.ProductID, item.Quantity); err != nil {
			return false, nil, apperr.Wrap(apperr.StoreUnavailable, "could not deduct stock", err)
		}
		util.StockDecrementsTotal.Inc()
	}

	if err := tx.SetOrderStatus(ctx, orderID, models.OrderStatusCompleted); err != nil {
		return false, nil, apperr.Wrap(apperr.StoreUnavailable, "could not update order status", err)
	}

	util.CompletionLatency.Observe(time.Since(start).Seconds())
	g.logger.Debug("Completion applied",
		zap.Int64("order_id", orderID), zap.Int("items", len(items)))

	return true, items, nil
}
