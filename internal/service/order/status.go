package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/models"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the fulfillment state machine. completed and cancelled are
// terminal; cancelled is reachable from every non-terminal state. Cancelling
// does not restock.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered:  {models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusCompleted:  {},
	models.OrderStatusCancelled:  {},
}

func ValidStatus(s models.OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ord models.Order
		if err := tx.First(&ord, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !CanTransition(ord.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, ord.Status, status)
		}
		return tx.Model(&ord).Update("status", status).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.GetOrder(ctx, id)
}
