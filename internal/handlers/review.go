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
	"github.com/velobay/bikeshop/internal/service/review"
)

type ReviewHandler struct {
	Svc      *review.ReviewService
	Producer *mykafka.Producer
}

func (h *ReviewHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "review_events", fmt.Sprint(event["bikeID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ReviewHandler) GetBikeReviews(c echo.Context) error {
	ctx := c.Request().Context()

	bikeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	reviews, err := h.Svc.ListForBike(ctx, uint(bikeID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get reviews")
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.create_review")

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	bikeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Rating  int    `json:"rating"`
		Title   string `json:"title"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rev := models.Review{
		UserID:  userID,
		BikeID:  uint(bikeID),
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	}
	if err := h.Svc.Create(ctx, &rev); err != nil {
		switch {
		case errors.Is(err, review.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, review.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "bike not found")
		case errors.Is(err, review.ErrAlreadyExists):
			return echo.NewHTTPError(http.StatusConflict, "you have already reviewed this bike")
		default:
			l.Error("create_review_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create review")
		}
	}

	h.publish(c, map[string]any{
		"type":   "review_created",
		"bikeID": rev.BikeID,
		"userID": userID,
		"rating": rev.Rating,
	})
	return c.JSON(http.StatusCreated, rev)
}

func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Rating  int    `json:"rating"`
		Title   string `json:"title"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rev, err := h.Svc.Update(ctx, uint(id), userID, req.Rating, req.Title, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		case errors.Is(err, review.ErrNotOwner):
			return echo.NewHTTPError(http.StatusUnauthorized, "review belongs to another user")
		case errors.Is(err, review.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update review")
		}
	}

	h.publish(c, map[string]any{
		"type":   "review_updated",
		"bikeID": rev.BikeID,
		"userID": userID,
		"rating": rev.Rating,
	})
	return c.JSON(http.StatusOK, rev)
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	if err := h.Svc.Delete(ctx, uint(id), userID, IsAdmin(c)); err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		case errors.Is(err, review.ErrNotOwner):
			return echo.NewHTTPError(http.StatusUnauthorized, "review belongs to another user")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete review")
		}
	}

	h.publish(c, map[string]any{
		"type":   "review_deleted",
		"userID": userID,
		"id":     id,
	})
	return c.NoContent(http.StatusNoContent)
}
