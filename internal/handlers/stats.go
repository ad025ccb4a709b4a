package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/logging"
	"github.com/velobay/bikeshop/internal/models"
)

type StatsHandler struct {
	DB *gorm.DB
}

// GetStats aggregates the admin dashboard numbers. Revenue excludes
// cancelled orders.
func (h *StatsHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stats.get_stats")

	db := h.DB.WithContext(ctx)

	var (
		totalOrders int64
		totalUsers  int64
		totalBikes  int64
		revenue     float64
	)
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		l.Error("get_stats_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count orders")
	}
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		l.Error("get_stats_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count users")
	}
	if err := db.Model(&models.Bike{}).Count(&totalBikes).Error; err != nil {
		l.Error("get_stats_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count bikes")
	}
	if err := db.Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").
		Scan(&revenue).Error; err != nil {
		l.Error("get_stats_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot sum revenue")
	}

	var byStatus []struct {
		Status models.OrderStatus `json:"status"`
		Count  int64              `json:"count"`
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		l.Error("get_stats_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot group orders")
	}

	var recent []models.Order
	if err := db.Preload("Items").Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		l.Error("get_stats_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get recent orders")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_orders":     totalOrders,
		"total_users":      totalUsers,
		"total_bikes":      totalBikes,
		"revenue":          revenue,
		"orders_by_status": byStatus,
		"recent_orders":    recent,
	})
}
