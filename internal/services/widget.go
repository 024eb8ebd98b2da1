package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
)

var (
	ErrInvalidWidget        = errors.New("invalid widget data")
	ErrForbidden            = errors.New("widget belongs to another user")
	ErrSubscriptionRequired = errors.New("active subscription required")
)

type WidgetService struct {
	widgets WidgetStore
	reviews ReviewStore
	now     func() time.Time
}

func NewWidgetService(widgets WidgetStore, reviews ReviewStore) *WidgetService {
	return &WidgetService{widgets: widgets, reviews: reviews, now: time.Now}
}

type CreateWidgetRequest struct {
	WebsiteURL string `json:"website_url" binding:"required"`
	PlaceID    string `json:"place_id" binding:"required"`
	Name       string `json:"name"`
	LayoutType string `json:"layout_type"`
}

func (s *WidgetService) CreateWidget(ctx context.Context, userID uint, req CreateWidgetRequest) (*models.Widget, error) {
	website := utils.SanitizeString(req.WebsiteURL)
	if !utils.IsValidWebsiteURL(website) {
		return nil, fmt.Errorf("%w: website_url must be an absolute http(s) URL", ErrInvalidWidget)
	}
	placeID := utils.SanitizeString(req.PlaceID)
	if placeID == "" {
		return nil, fmt.Errorf("%w: place_id is required", ErrInvalidWidget)
	}

	layout := req.LayoutType
	if layout == "" {
		layout = models.LayoutVertical
	}
	if !models.IsValidLayout(layout) {
		return nil, fmt.Errorf("%w: unknown layout %q", ErrInvalidWidget, layout)
	}

	name := utils.SanitizeString(req.Name)
	if name == "" {
		name = "Widget for " + website
	}

	widget := &models.Widget{
		UserID:     userID,
		WebsiteURL: website,
		PlaceID:    placeID,
		Name:       name,
		LayoutType: layout,
	}
	if err := s.widgets.Create(ctx, widget); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return widget, nil
}

func (s *WidgetService) GetWidget(ctx context.Context, id uint) (*models.Widget, error) {
	widget, err := s.widgets.GetWidget(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWidgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return widget, nil
}

func (s *WidgetService) GetUserWidgets(ctx context.Context, userID uint) ([]models.Widget, error) {
	widgets, err := s.widgets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return widgets, nil
}

// UpdateLayout changes the widget's preferred layout. Only the owner may do so, and only while subscribed.
func (s *WidgetService) UpdateLayout(ctx context.Context, userID, widgetID uint, layout string) (*models.Widget, error) {
	if !models.IsValidLayout(layout) {
		return nil, fmt.Errorf("%w: unknown layout %q", ErrInvalidWidget, layout)
	}

	widget, err := s.GetWidget(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	if widget.UserID != userID {
		return nil, ErrForbidden
	}

	active, err := s.widgets.HasActiveSubscription(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !active {
		return nil, ErrSubscriptionRequired
	}

	if err := s.widgets.UpdateLayout(ctx, widgetID, layout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	widget.LayoutType = layout
	return widget, nil
}

type StoredReviews struct {
	Widget  *models.Widget        `json:"widget"`
	Reviews []models.GoogleReview `json:"reviews"`
}

// GetStoredReviews lists what is already persisted for a widget without touching the upstream.
func (s *WidgetService) GetStoredReviews(ctx context.Context, widgetID uint) (*StoredReviews, error) {
	widget, err := s.GetWidget(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.FindReviews(ctx, widgetID, models.ReviewFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &StoredReviews{Widget: widget, Reviews: reviews}, nil
}
