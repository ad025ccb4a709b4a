package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/logging"
	"github.com/velobay/bikeshop/internal/models"
	"github.com/velobay/bikeshop/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := UserID(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.WithContext(c.Request().Context()).
		Preload("Bike").Preload("Location").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get cart")
	}

	return c.JSON(http.StatusOK, items)
}

type addToCartRequest struct {
	BikeID     uint       `json:"bike_id"`
	ItemType   string     `json:"item_type"`
	Quantity   uint       `json:"quantity"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	LocationID *uint      `json:"location_id"`
}

func (r *addToCartRequest) validate() error {
	switch r.ItemType {
	case models.ItemTypePurchase:
	case models.ItemTypeRental:
		if r.StartDate == nil || r.EndDate == nil || r.LocationID == nil {
			return errors.New("rental items require start_date, end_date and location_id")
		}
		if !r.EndDate.After(*r.StartDate) {
			return errors.New("end_date must be after start_date")
		}
	default:
		return fmt.Errorf("item_type must be %q or %q", models.ItemTypePurchase, models.ItemTypeRental)
	}
	return nil
}

// AddToCart merges with an equivalent pending item (same bike, type, dates
// and location) by adding quantities instead of creating a duplicate row.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_to_cart")

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	if err := h.DB.WithContext(ctx).First(&models.Bike{}, req.BikeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bike not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get bike")
	}

	q := h.DB.WithContext(ctx).
		Where("user_id = ? AND bike_id = ? AND item_type = ?", userID, req.BikeID, req.ItemType)
	if req.ItemType == models.ItemTypeRental {
		q = q.Where("start_date = ? AND end_date = ? AND location_id = ?",
			req.StartDate, req.EndDate, *req.LocationID)
	}

	var item models.CartItem
	tx := q.First(&item)
	if tx.Error == nil {
		item.Quantity += req.Quantity
		if err := h.DB.WithContext(ctx).Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart item")
		}
		h.publish(c, map[string]any{
			"type":     "cart_item_merged",
			"userID":   userID,
			"bikeID":   req.BikeID,
			"quantity": item.Quantity,
		})
		return c.JSON(http.StatusOK, item)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		l.Error("add_to_cart_error", "status", 500, "error", tx.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get cart item")
	}

	newItem := models.CartItem{
		UserID:     userID,
		BikeID:     req.BikeID,
		ItemType:   req.ItemType,
		Quantity:   req.Quantity,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		LocationID: req.LocationID,
	}
	if err := h.DB.WithContext(ctx).Create(&newItem).Error; err != nil {
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add cart item")
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_added",
		"userID":   userID,
		"bikeID":   req.BikeID,
		"quantity": newItem.Quantity,
	})
	return c.JSON(http.StatusOK, newItem)
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var item models.CartItem
	if err := h.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get cart item")
	}

	if req.Quantity == 0 {
		if err := h.DB.WithContext(ctx).Delete(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete cart item")
		}
		h.publish(c, map[string]any{
			"type":   "cart_item_deleted",
			"userID": userID,
			"itemID": id,
		})
		return c.JSON(http.StatusOK, map[string]any{"deleted_item": id})
	}

	item.Quantity = req.Quantity
	if err := h.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart item")
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"userID":   userID,
		"itemID":   id,
		"quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) DeleteFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete cart item")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_deleted",
		"userID": userID,
		"itemID": id,
	})

	var remaining []models.CartItem
	if err := h.DB.WithContext(ctx).
		Preload("Bike").Preload("Location").
		Where("user_id = ?", userID).
		Find(&remaining).Error; err != nil {
		c.Logger().Errorf("DB read after delete error: %v", err)
	}
	return c.JSON(http.StatusOK, remaining)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot clear cart")
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return c.JSON(http.StatusOK, map[string]any{"status": "cleared"})
}
