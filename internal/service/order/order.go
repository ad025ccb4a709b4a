package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/models"
)

const (
	TaxRate        = 0.08
	ShippingFee    = 15.99
	DefaultPayment = "Credit Card"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrValidation          = errors.New("validation")
	ErrNotFound            = errors.New("not found")
)

type OrderService struct {
	DB *gorm.DB
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	PaymentDetails  string `json:"payment_details"`
	IdempotencyKey  string `json:"-"`
}

// Checkout converts the user's cart into exactly one order. The whole
// sequence runs in a single transaction: every stock decrement is a
// conditional update, so a failing line rolls back all earlier lines and no
// partial decrement ever survives. An idempotency key, when supplied, makes a
// resubmission return the already-created order instead of a second one.
func (s *OrderService) Checkout(ctx context.Context, userID uint, req CheckoutRequest) (*models.Order, error) {
	if req.IdempotencyKey != "" {
		var existing models.Order
		err := s.DB.WithContext(ctx).
			Where("user_id = ? AND idempotency_key = ?", userID, req.IdempotencyKey).
			First(&existing).Error
		if err == nil {
			return s.GetOrder(ctx, existing.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = DefaultPayment
	}

	var orderID uint
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Preload("Bike").Preload("Location").
			Where("user_id = ?", userID).
			Order("id ASC").
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		var (
			subtotal    float64
			orderItems  []models.OrderItem
			hasPurchase bool
		)
		for _, it := range items {
			switch it.ItemType {
			case models.ItemTypePurchase:
				hasPurchase = true
				res := tx.Model(&models.Bike{}).
					Where("id = ? AND purchase_stock >= ?", it.BikeID, it.Quantity).
					UpdateColumn("purchase_stock", gorm.Expr("purchase_stock - ?", it.Quantity))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Bike.Name)
				}

				lineTotal := it.Bike.Price * float64(it.Quantity)
				subtotal += lineTotal
				orderItems = append(orderItems, models.OrderItem{
					BikeID:    it.BikeID,
					ItemType:  it.ItemType,
					Quantity:  it.Quantity,
					UnitPrice: it.Bike.Price,
					LineTotal: lineTotal,
				})

			case models.ItemTypeRental:
				if it.StartDate == nil || it.EndDate == nil || it.LocationID == nil {
					return fmt.Errorf("%w: rental item %d is missing dates or location", ErrValidation, it.ID)
				}

				// Rental stock goes down by 1 per line, not by quantity.
				res := tx.Model(&models.RentalInventory{}).
					Where("bike_id = ? AND location_id = ? AND stock >= 1", it.BikeID, *it.LocationID).
					UpdateColumn("stock", gorm.Expr("stock - 1"))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return fmt.Errorf("%w: %s", ErrLocationUnavailable, it.Bike.Name)
				}

				days := RentalDays(*it.StartDate, *it.EndDate)
				lineTotal := it.Bike.RentalPrice * float64(days)
				subtotal += lineTotal
				orderItems = append(orderItems, models.OrderItem{
					BikeID:     it.BikeID,
					ItemType:   it.ItemType,
					Quantity:   it.Quantity,
					UnitPrice:  it.Bike.RentalPrice,
					LineTotal:  lineTotal,
					StartDate:  it.StartDate,
					EndDate:    it.EndDate,
					LocationID: it.LocationID,
				})

			default:
				return fmt.Errorf("%w: unknown item type %q", ErrValidation, it.ItemType)
			}
		}

		if hasPurchase && req.ShippingAddress == "" {
			return fmt.Errorf("%w: shipping address required", ErrValidation)
		}

		tax := roundCents(subtotal * TaxRate)
		total := roundCents(subtotal + tax + ShippingFee)

		ord := models.Order{
			UserID:          userID,
			Status:          models.OrderStatusPending,
			Items:           orderItems,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			PaymentDetails:  req.PaymentDetails,
			Subtotal:        roundCents(subtotal),
			Tax:             tax,
			Shipping:        ShippingFee,
			Total:           total,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			ord.IdempotencyKey = &key
		}
		if err := tx.Create(&ord).Error; err != nil {
			return err
		}
		orderID = ord.ID

		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.GetOrder(ctx, orderID)
}

// RentalDays charges whole days: ceil((end-start)/24h), never below 1.
func RentalDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var ord models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("Items.Bike").
		Preload("Items.Location").
		First(&ord, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ord, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("Items.Bike").
		Preload("Items.Location").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (s *OrderService) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 5
	}
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("Items.Bike").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// ActiveRentals flattens the user's rental line items whose end date is still
// in the future.
func (s *OrderService) ActiveRentals(ctx context.Context, userID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.DB.WithContext(ctx).
		Preload("Bike").
		Preload("Location").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.item_type = ? AND order_items.end_date > ?",
			userID, models.ItemTypeRental, time.Now()).
		Order("order_items.end_date ASC").
		Find(&items).Error
	return items, err
}
