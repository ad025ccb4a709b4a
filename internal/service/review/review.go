package review

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/models"
)

var (
	ErrValidation    = errors.New("validation")
	ErrNotFound      = errors.New("not found")
	ErrNotOwner      = errors.New("not owner")
	ErrAlreadyExists = errors.New("review already exists")
)

type ReviewService struct {
	DB *gorm.DB
}

func (s *ReviewService) ListForBike(ctx context.Context, bikeID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.DB.WithContext(ctx).
		Where("bike_id = ?", bikeID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (s *ReviewService) Create(ctx context.Context, rev *models.Review) error {
	if err := validate(rev); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Bike{}, rev.BikeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.Review
		err := tx.Where("user_id = ? AND bike_id = ?", rev.UserID, rev.BikeID).First(&existing).Error
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(rev).Error; err != nil {
			return err
		}
		return recomputeRating(tx, rev.BikeID)
	})
}

func (s *ReviewService) Update(ctx context.Context, id, userID uint, rating int, title, comment string) (*models.Review, error) {
	var rev models.Review
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rev, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rev.UserID != userID {
			return ErrNotOwner
		}

		rev.Rating = rating
		rev.Title = title
		rev.Comment = comment
		if err := validate(&rev); err != nil {
			return err
		}
		if err := tx.Save(&rev).Error; err != nil {
			return err
		}
		return recomputeRating(tx, rev.BikeID)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &rev, nil
}

func (s *ReviewService) Delete(ctx context.Context, id, userID uint, isAdmin bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rev models.Review
		if err := tx.First(&rev, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rev.UserID != userID && !isAdmin {
			return ErrNotOwner
		}
		if err := tx.Delete(&rev).Error; err != nil {
			return err
		}
		return recomputeRating(tx, rev.BikeID)
	})
}

func validate(rev *models.Review) error {
	if rev.Rating < 1 || rev.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	return nil
}

// recomputeRating rewrites the bike's denormalized average_rating and
// review_count in the same transaction as the review write, so the cached
// aggregate can never drift from the review rows.
func recomputeRating(tx *gorm.DB, bikeID uint) error {
	var agg struct {
		Avg   float64
		Count int
	}
	err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("bike_id = ?", bikeID).
		Scan(&agg).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.Bike{}).
		Where("id = ?", bikeID).
		Updates(map[string]any{
			"average_rating": math.Round(agg.Avg*10) / 10,
			"review_count":   agg.Count,
		}).Error
}
