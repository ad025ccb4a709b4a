package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velobay/bikeshop/internal/logging"
	"github.com/velobay/bikeshop/internal/models"
	"github.com/velobay/bikeshop/internal/mykafka"
	"github.com/velobay/bikeshop/internal/service/order"
)

type OrderHandler struct {
	Svc      *order.OrderService
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	var req order.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")

	ord, err := h.Svc.Checkout(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart),
			errors.Is(err, order.ErrInsufficientStock),
			errors.Is(err, order.ErrLocationUnavailable),
			errors.Is(err, order.ErrValidation):
			l.Warn("create_order_failed", "status", 400, "reason", err.Error())
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("create_order_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
		}
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": ord.ID,
		"total":   ord.Total,
	})
	l.Info("create_order_success", "orderID", ord.ID)
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListOrders(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get orders")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	ord, err := h.Svc.GetOrder(ctx, uint(id))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get order")
	}
	if ord.UserID != userID && !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "order belongs to another user")
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Svc.UpdateStatus(ctx, uint(id), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrValidation), errors.Is(err, order.ErrIllegalTransition):
			l.Warn("update_status_failed", "status", 400, "reason", err.Error())
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("update_status_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update order")
		}
	}

	h.publish(c, map[string]any{
		"type":    "order_status_changed",
		"userID":  ord.UserID,
		"orderID": ord.ID,
		"status":  ord.Status,
	})
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) GetActiveRentals(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	items, err := h.Svc.ActiveRentals(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get rentals")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *OrderHandler) GetRecentOrders(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 5
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	orders, err := h.Svc.RecentOrders(ctx, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get orders")
	}
	return c.JSON(http.StatusOK, orders)
}
