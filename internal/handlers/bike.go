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
	"github.com/velobay/bikeshop/internal/util"
)

type BikeHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *BikeHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "catalog_events", fmt.Sprint(event["bikeID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *BikeHandler) GetBike(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bike.get_bike")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var bike models.Bike
	if err := h.DB.WithContext(ctx).Preload("RentalStocks").First(&bike, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bike not found")
		}
		l.Error("get_bike_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get bike")
	}

	return c.JSON(http.StatusOK, bike)
}

func (h *BikeHandler) GetBikes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bike.get_bikes")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Bike{}).Count(&total).Error; err != nil {
		l.Error("get_bikes_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count bikes")
	}

	var items []models.Bike
	if err := h.DB.WithContext(ctx).Model(&models.Bike{}).
		Preload("RentalStocks").
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		l.Error("get_bikes_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get bikes")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

type bikePayload struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	RentalPrice   float64 `json:"rental_price"`
	PurchaseStock int     `json:"purchase_stock"`
	RentalStocks  []struct {
		LocationID uint `json:"location_id"`
		Stock      int  `json:"stock"`
	} `json:"rental_stocks"`
}

func (p *bikePayload) validate() error {
	if p.Name == "" || p.Type == "" {
		return errors.New("name and type required")
	}
	if p.Price < 0 || p.RentalPrice < 0 || p.PurchaseStock < 0 {
		return errors.New("price and stock must be non-negative")
	}
	for _, rs := range p.RentalStocks {
		if rs.Stock < 0 {
			return errors.New("rental stock must be non-negative")
		}
	}
	return nil
}

func (h *BikeHandler) CreateBike(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bike.create_bike")

	var req bikePayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	bike := models.Bike{
		Name:          req.Name,
		Type:          req.Type,
		Description:   req.Description,
		Price:         req.Price,
		RentalPrice:   req.RentalPrice,
		PurchaseStock: req.PurchaseStock,
	}
	for _, rs := range req.RentalStocks {
		bike.RentalStocks = append(bike.RentalStocks, models.RentalInventory{
			LocationID: rs.LocationID,
			Stock:      rs.Stock,
		})
	}

	if err := h.DB.WithContext(ctx).Create(&bike).Error; err != nil {
		l.Error("bike_create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add bike to db")
	}

	h.publish(c, map[string]any{
		"type":   "bike_created",
		"bikeID": bike.ID,
		"name":   bike.Name,
	})
	l.Info("create_bike_success", "bikeID", bike.ID)
	return c.JSON(http.StatusCreated, bike)
}

func (h *BikeHandler) PatchBike(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bike.patch_bike")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Name          *string  `json:"name"`
		Type          *string  `json:"type"`
		Description   *string  `json:"description"`
		Price         *float64 `json:"price"`
		RentalPrice   *float64 `json:"rental_price"`
		PurchaseStock *int     `json:"purchase_stock"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var bike models.Bike
	if err := h.DB.WithContext(ctx).First(&bike, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bike not found")
		}
		l.Error("bike_patch_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get bike")
	}

	if req.Name != nil {
		bike.Name = *req.Name
	}
	if req.Type != nil {
		bike.Type = *req.Type
	}
	if req.Description != nil {
		bike.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be non-negative")
		}
		bike.Price = *req.Price
	}
	if req.RentalPrice != nil {
		if *req.RentalPrice < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "rental price must be non-negative")
		}
		bike.RentalPrice = *req.RentalPrice
	}
	if req.PurchaseStock != nil {
		if *req.PurchaseStock < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "stock must be non-negative")
		}
		bike.PurchaseStock = *req.PurchaseStock
	}

	if err := h.DB.WithContext(ctx).Save(&bike).Error; err != nil {
		l.Error("bike_patch_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update bike")
	}

	h.publish(c, map[string]any{
		"type":   "bike_updated",
		"bikeID": bike.ID,
		"name":   bike.Name,
	})
	l.Info("patch_bike_success", "bikeID", bike.ID)
	return c.JSON(http.StatusOK, bike)
}

// SetRentalStock upserts the per-location rental inventory rows of a bike.
func (h *BikeHandler) SetRentalStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bike.set_rental_stock")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		LocationID uint `json:"location_id"`
		Stock      int  `json:"stock"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Stock < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "stock must be non-negative")
	}

	var inv models.RentalInventory
	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Bike{}, id).Error; err != nil {
			return err
		}
		if err := tx.First(&models.Location{}, req.LocationID).Error; err != nil {
			return err
		}

		err := tx.Where("bike_id = ? AND location_id = ?", id, req.LocationID).First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			inv = models.RentalInventory{BikeID: uint(id), LocationID: req.LocationID, Stock: req.Stock}
			return tx.Create(&inv).Error
		}
		if err != nil {
			return err
		}
		inv.Stock = req.Stock
		return tx.Save(&inv).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bike or location not found")
		}
		l.Error("set_rental_stock_error", "status", 500, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update rental stock")
	}

	return c.JSON(http.StatusOK, inv)
}

func (h *BikeHandler) DeleteBike(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bike.delete_bike")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	res := h.DB.WithContext(ctx).Delete(&models.Bike{}, id)
	if res.Error != nil {
		l.Error("bike_delete_error", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete bike")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "bike not found")
	}

	h.publish(c, map[string]any{
		"type":   "bike_deleted",
		"bikeID": id,
	})
	l.Info("delete_bike_success", "bikeID", id)
	return c.NoContent(http.StatusNoContent)
}
