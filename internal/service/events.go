package service

import (
	"context"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event publication is strictly post-commit and best-effort: the feed is
// an integration surface, never part of the operation's outcome.

func itemData(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, 0, len(items))
	for _, it := range items {
		out = append(out, models.OrderItemData{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return out
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (e *OrderEngine) publishCreated(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if e.events == nil {
		return
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:  baseEvent(models.EventTypeOrderCreated),
		OrderID:    order.ID,
		UserID:     order.UserID.Int64,
		TotalPrice: order.TotalPrice,
		Items:      itemData(items),
	}

	if err := e.events.PublishOrderCreated(ctx, event); err != nil {
		e.logger.Error("Failed to publish OrderCreated event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (e *OrderEngine) publishCompleted(ctx context.Context, orderID int64, items []models.OrderItem) {
	if e.events == nil {
		return
	}

	event := &models.OrderCompletedEvent{
		BaseEvent: baseEvent(models.EventTypeOrderCompleted),
		OrderID:   orderID,
		Items:     itemData(items),
	}

	if err := e.events.PublishOrderCompleted(ctx, event); err != nil {
		e.logger.Error("Failed to publish OrderCompleted event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (e *OrderEngine) publishCancelled(ctx context.Context, orderID int64) {
	if e.events == nil {
		return
	}

	event := &models.OrderCancelledEvent{
		BaseEvent: baseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
	}

	if err := e.events.PublishOrderCancelled(ctx, event); err != nil {
		e.logger.Error("Failed to publish OrderCancelled event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}
