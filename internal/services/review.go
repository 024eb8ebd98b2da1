package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/metrics"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
	"github.com/princeprakhar/review-widget-backend/internal/types"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrWidgetNotFound = errors.New("widget not found")

// ReviewService decides between the stored reviews and an upstream fetch, and shapes the result
// for the widget script.
type ReviewService struct {
	reviews  ReviewStore
	widgets  WidgetStore
	ingestor *Ingestor
	selector *PresentationSelector
	inflight singleflight.Group
	now      func() time.Time
}

func NewReviewService(reviews ReviewStore, widgets WidgetStore, ingestor *Ingestor, selector *PresentationSelector) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		widgets:  widgets,
		ingestor: ingestor,
		selector: selector,
		now:      time.Now,
	}
}

type DisplayRequest struct {
	WidgetID uint
	Referrer string
	Filter   models.ReviewFilter
}

// GetWidgetPayload resolves the widget's review pool and renders the display payload.
func (s *ReviewService) GetWidgetPayload(ctx context.Context, req DisplayRequest) (*types.WidgetPayload, error) {
	widget, err := s.widgets.GetWidget(ctx, req.WidgetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWidgetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	pool, err := s.ResolveReviews(ctx, widget, req.Filter)
	if err != nil {
		return nil, err
	}

	active, err := s.widgets.HasActiveSubscription(ctx, widget.UserID, s.now())
	if err != nil {
		// the premium layout stays locked rather than failing the whole widget
		logger.WithFields(logrus.Fields{"widget_id": widget.ID, "user_id": widget.UserID}).
			Warnf("subscription lookup failed: %v", err)
		active = false
	}

	return s.selector.Select(SelectionInput{
		Pool:               pool,
		Widget:             widget,
		SameSite:           utils.SameSite(req.Referrer, widget.WebsiteURL),
		ActiveSubscription: active,
	}), nil
}

// ResolveReviews serves the stored reviews when any of them match the filter and only goes upstream
// otherwise. Stored rows never expire. Concurrent misses for the same widget and filter share one
// upstream call.
func (s *ReviewService) ResolveReviews(ctx context.Context, widget *models.Widget, filter models.ReviewFilter) (*ReviewPool, error) {
	cached, err := s.reviews.FindReviews(ctx, widget.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(cached) > 0 {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &ReviewPool{Reviews: cached, Source: SourceCache, Filter: filter}, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	key := strconv.FormatUint(uint64(widget.ID), 10) + "|" + filter.Key()
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.ingestor.Ingest(context.WithoutCancel(ctx), IngestRequest{
			Widget: widget,
			Filter: filter,
			Kind:   models.RequestTypeDisplay,
		})
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.WithFields(logrus.Fields{"widget_id": widget.ID}).Debug("joined in-flight review fetch")
	}

	res := v.(*IngestResult)
	fresh := make([]models.GoogleReview, 0, len(res.Reviews))
	for _, r := range res.Reviews {
		if r.Rating >= filter.MinRating {
			fresh = append(fresh, r)
		}
	}

	return &ReviewPool{
		Reviews:       fresh,
		Source:        SourceUpstream,
		Filter:        filter,
		Rating:        res.Rating,
		HasRating:     res.HasRating,
		TotalCount:    res.TotalCount,
		NextPageToken: res.NextPageToken,
	}, nil
}

type RefreshReport struct {
	WidgetID  uint          `json:"widget_id"`
	Fetched   int           `json:"fetched"`
	Persisted PersistReport `json:"persisted"`
}

// RefreshWidget forces an upstream fetch for one widget regardless of what is stored. Owners may
// refresh their own widgets, admins any widget.
func (s *ReviewService) RefreshWidget(ctx context.Context, userID uint, isAdmin bool, widgetID uint) (*RefreshReport, error) {
	widget, err := s.widgets.GetWidget(ctx, widgetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWidgetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isAdmin && widget.UserID != userID {
		return nil, ErrForbidden
	}

	key := "refresh|" + strconv.FormatUint(uint64(widget.ID), 10)
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		return s.ingestor.Ingest(context.WithoutCancel(ctx), IngestRequest{
			Widget: widget,
			Kind:   models.RequestTypeRefresh,
		})
	})
	if err != nil {
		return nil, err
	}

	res := v.(*IngestResult)
	return &RefreshReport{WidgetID: widget.ID, Fetched: len(res.Reviews), Persisted: res.Report}, nil
}
