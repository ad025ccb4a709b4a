package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/velobay/bikeshop/internal/models"
)

func TestGetStats(t *testing.T) {
	db := initTestDB(t)
	h := &StatsHandler{DB: db}
	e := echo.New()

	require.NoError(t, db.Create(&models.User{Username: "casey", PasswordHash: "x", Role: "user"}).Error)
	seedCartBike(t, db)

	orders := []models.Order{
		{UserID: 1, Status: models.OrderStatusPending, PaymentMethod: "Credit Card", Total: 100},
		{UserID: 1, Status: models.OrderStatusCompleted, PaymentMethod: "Credit Card", Total: 250},
		{UserID: 1, Status: models.OrderStatusCancelled, PaymentMethod: "Credit Card", Total: 999},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}

	c, rec := newContext(e, http.MethodGet, "/api/admin/stats", "", 9, "admin")
	require.NoError(t, h.GetStats(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalOrders    int64   `json:"total_orders"`
		TotalUsers     int64   `json:"total_users"`
		TotalBikes     int64   `json:"total_bikes"`
		Revenue        float64 `json:"revenue"`
		OrdersByStatus []struct {
			Status models.OrderStatus `json:"status"`
			Count  int64              `json:"count"`
		} `json:"orders_by_status"`
		RecentOrders []models.Order `json:"recent_orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.EqualValues(t, 3, resp.TotalOrders)
	require.EqualValues(t, 1, resp.TotalUsers)
	require.EqualValues(t, 1, resp.TotalBikes)
	require.Equal(t, 350.0, resp.Revenue)
	require.Len(t, resp.OrdersByStatus, 3)
	require.Len(t, resp.RecentOrders, 3)
}
