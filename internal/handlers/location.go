package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/logging"
	"github.com/velobay/bikeshop/internal/models"
)

type LocationHandler struct {
	DB *gorm.DB
}

func (h *LocationHandler) GetLocations(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "location.get_locations")

	var locations []models.Location
	if err := h.DB.WithContext(ctx).Order("code ASC").Find(&locations).Error; err != nil {
		l.Error("get_locations_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get locations")
	}
	return c.JSON(http.StatusOK, locations)
}

func (h *LocationHandler) GetLocation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var location models.Location
	if err := h.DB.WithContext(ctx).First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "location not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get location")
	}
	return c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) CreateLocation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "location.create_location")

	var location models.Location
	if err := c.Bind(&location); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if location.Code == "" || location.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code and name required")
	}

	location.ID = 0
	if err := h.DB.WithContext(ctx).Create(&location).Error; err != nil {
		l.Error("location_create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add location to db")
	}

	l.Info("create_location_success", "locationID", location.ID)
	return c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) PatchLocation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "location.patch_location")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Code    *string `json:"code"`
		Name    *string `json:"name"`
		Address *string `json:"address"`
		City    *string `json:"city"`
		State   *string `json:"state"`
		Zip     *string `json:"zip"`
		Phone   *string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var location models.Location
	if err := h.DB.WithContext(ctx).First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "location not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get location")
	}

	if req.Code != nil {
		location.Code = *req.Code
	}
	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Address != nil {
		location.Address = *req.Address
	}
	if req.City != nil {
		location.City = *req.City
	}
	if req.State != nil {
		location.State = *req.State
	}
	if req.Zip != nil {
		location.Zip = *req.Zip
	}
	if req.Phone != nil {
		location.Phone = *req.Phone
	}

	if err := h.DB.WithContext(ctx).Save(&location).Error; err != nil {
		l.Error("location_patch_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update location")
	}
	return c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) DeleteLocation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "location.delete_location")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	res := h.DB.WithContext(ctx).Delete(&models.Location{}, id)
	if res.Error != nil {
		l.Error("location_delete_error", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete location")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	return c.NoContent(http.StatusNoContent)
}
