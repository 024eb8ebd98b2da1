package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"gorm.io/gorm"
)

type WidgetRepository struct {
	db *gorm.DB
}

func NewWidgetRepository(db *gorm.DB) *WidgetRepository {
	if db == nil {
		panic("database connection cannot be nil")
	}
	return &WidgetRepository{db: db}
}

func (r *WidgetRepository) Create(ctx context.Context, widget *models.Widget) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(widget).Error; err != nil {
		return fmt.Errorf("create widget: %w", err)
	}
	return nil
}

func (r *WidgetRepository) GetWidget(ctx context.Context, id uint) (*models.Widget, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var widget models.Widget
	if err := r.db.WithContext(ctx).First(&widget, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get widget %d: %w", id, err)
	}
	return &widget, nil
}

// ListWidgets returns every widget in id order.
func (r *WidgetRepository) ListWidgets(ctx context.Context) ([]models.Widget, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var widgets []models.Widget
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&widgets).Error; err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	return widgets, nil
}

func (r *WidgetRepository) ListByUser(ctx context.Context, userID uint) ([]models.Widget, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var widgets []models.Widget
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&widgets).Error; err != nil {
		return nil, fmt.Errorf("list widgets for user %d: %w", userID, err)
	}
	return widgets, nil
}

func (r *WidgetRepository) UpdateLayout(ctx context.Context, id uint, layout string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.Widget{}).Where("id = ?", id).Update("layout_type", layout)
	if res.Error != nil {
		return fmt.Errorf("update widget %d layout: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasActiveSubscription reports whether the user currently holds a subscription that grants paid features.
func (r *WidgetRepository) HasActiveSubscription(ctx context.Context, userID uint, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Order("start_date DESC").
		Find(&subs).Error
	if err != nil {
		return false, fmt.Errorf("load subscriptions for user %d: %w", userID, err)
	}
	for i := range subs {
		if subs[i].IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}
