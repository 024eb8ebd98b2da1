package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"gorm.io/gorm"
)

// ReviewRepository persists ingested Google reviews.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	if db == nil {
		panic("database connection cannot be nil")
	}
	return &ReviewRepository{db: db}
}

// FindReviews returns the widget's stored reviews that satisfy the filter, newest first.
func (r *ReviewRepository) FindReviews(ctx context.Context, widgetID uint, filter models.ReviewFilter) ([]models.GoogleReview, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	query := r.db.WithContext(ctx).Where("widget_id = ?", widgetID)
	if filter.MinRating > 0 {
		query = query.Where("rating >= ?", filter.MinRating)
	}

	var reviews []models.GoogleReview
	if err := query.Order("created_at DESC").Order("id ASC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("find reviews for widget %d: %w", widgetID, err)
	}
	return reviews, nil
}

func (r *ReviewRepository) ExistsReview(ctx context.Context, widgetID uint, author, text string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GoogleReview{}).
		Where("widget_id = ? AND author_name = ? AND text_hash = ?", widgetID, author, models.HashReviewText(text)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check review existence: %w", err)
	}
	return count > 0, nil
}

// InsertReview stores a new review. A concurrent insert of the same (widget, author, text)
// surfaces as ErrDuplicateReview.
func (r *ReviewRepository) InsertReview(ctx context.Context, review *models.GoogleReview) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// UpsertReviewLegacy matches on (widget, author, created_at) and overwrites text, rating and photo
// of the stored row, inserting when nothing matches. Reports whether an existing row was updated.
func (r *ReviewRepository) UpsertReviewLegacy(ctx context.Context, review *models.GoogleReview) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var existing models.GoogleReview
	err := r.db.WithContext(ctx).
		Where("widget_id = ? AND author_name = ? AND created_at = ?", review.WidgetID, review.AuthorName, review.CreatedAt).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return false, ErrDuplicateReview
			}
			return false, fmt.Errorf("insert review: %w", err)
		}
		return false, nil
	case err != nil:
		return false, fmt.Errorf("find legacy review match: %w", err)
	}

	existing.Text = review.Text
	existing.Rating = review.Rating
	existing.ProfilePhotoURL = review.ProfilePhotoURL
	existing.RelativeTimeDescription = review.RelativeTimeDescription
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, ErrDuplicateReview
		}
		return false, fmt.Errorf("update review %d: %w", existing.ID, err)
	}
	*review = existing
	return true, nil
}
