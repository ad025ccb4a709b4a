package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velobay/bikeshop/internal/models"
)

func placeOrder(t *testing.T, svc *OrderService, userID uint, bikeID uint) *models.Order {
	addPurchaseToCart(t, svc.DB, userID, bikeID, 1)
	ord, err := svc.Checkout(context.Background(), userID, CheckoutRequest{ShippingAddress: "12 Main St"})
	require.NoError(t, err)
	return ord
}

func TestUpdateStatusHappyPath(t *testing.T) {
	db := initTestDB(t)
	svc := &OrderService{DB: db}

	bike := seedPurchaseBike(t, db, 100, 10)
	ord := placeOrder(t, svc, 1, bike.ID)

	for _, next := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCompleted,
	} {
		updated, err := svc.UpdateStatus(context.Background(), ord.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
	}
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	db := initTestDB(t)
	svc := &OrderService{DB: db}

	bike := seedPurchaseBike(t, db, 100, 10)
	ord := placeOrder(t, svc, 1, bike.ID)

	_, err := svc.UpdateStatus(context.Background(), ord.ID, models.OrderStatusShipped)
	require.ErrorIs(t, err, ErrIllegalTransition)

	// A rejected transition leaves the order untouched.
	fresh, err := svc.GetOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, fresh.Status)
}

func TestUpdateStatusTerminalStates(t *testing.T) {
	db := initTestDB(t)
	svc := &OrderService{DB: db}

	bike := seedPurchaseBike(t, db, 100, 10)
	ord := placeOrder(t, svc, 1, bike.ID)

	_, err := svc.UpdateStatus(context.Background(), ord.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), ord.ID, models.OrderStatusProcessing)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.UpdateStatus(context.Background(), ord.ID, models.OrderStatusCancelled)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestUpdateStatusCancelDoesNotRestock(t *testing.T) {
	db := initTestDB(t)
	svc := &OrderService{DB: db}

	bike := seedPurchaseBike(t, db, 100, 10)
	ord := placeOrder(t, svc, 1, bike.ID)

	_, err := svc.UpdateStatus(context.Background(), ord.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	var fresh models.Bike
	require.NoError(t, db.First(&fresh, bike.ID).Error)
	require.Equal(t, 9, fresh.PurchaseStock)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	db := initTestDB(t)
	svc := &OrderService{DB: db}

	bike := seedPurchaseBike(t, db, 100, 10)
	ord := placeOrder(t, svc, 1, bike.ID)

	_, err := svc.UpdateStatus(context.Background(), ord.ID, "misplaced")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatusNotFound(t *testing.T) {
	db := initTestDB(t)
	svc := &OrderService{DB: db}

	_, err := svc.UpdateStatus(context.Background(), 42, models.OrderStatusProcessing)
	require.ErrorIs(t, err, ErrNotFound)
}
