package services

import (
	"context"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
)

type ReviewStore interface {
	FindReviews(ctx context.Context, widgetID uint, filter models.ReviewFilter) ([]models.GoogleReview, error)
	ExistsReview(ctx context.Context, widgetID uint, author, text string) (bool, error)
	InsertReview(ctx context.Context, review *models.GoogleReview) error
	UpsertReviewLegacy(ctx context.Context, review *models.GoogleReview) (bool, error)
}

type RequestLogStore interface {
	LogAPIRequestStart(ctx context.Context, entry *models.APIRequest) (uint, error)
	LogAPIRequestComplete(ctx context.Context, id uint, size int, status, errorMessage string) error
}

type WidgetStore interface {
	Create(ctx context.Context, widget *models.Widget) error
	GetWidget(ctx context.Context, id uint) (*models.Widget, error)
	ListWidgets(ctx context.Context) ([]models.Widget, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Widget, error)
	UpdateLayout(ctx context.Context, id uint, layout string) error
	HasActiveSubscription(ctx context.Context, userID uint, now time.Time) (bool, error)
}

type UsageStore interface {
	Usage(ctx context.Context, since time.Time, userID uint) ([]repository.UsageRow, error)
}

// RawArchiver keeps a copy of upstream payloads.
type RawArchiver interface {
	ArchiveRawResponse(ctx context.Context, widgetID uint, provider string, body []byte) error
}

// Alerter notifies operators about failures that need a human.
type Alerter interface {
	SendUpstreamAuthAlert(provider string, cause error) error
}

var (
	_ ReviewStore     = (*repository.ReviewRepository)(nil)
	_ RequestLogStore = (*repository.APIRequestRepository)(nil)
	_ UsageStore      = (*repository.APIRequestRepository)(nil)
	_ WidgetStore     = (*repository.WidgetRepository)(nil)
)
