package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/metrics"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

const DefaultUpstreamTimeout = 10 * time.Second

// IngestorDeps wires the adapters the ingestion pipeline drives.
type IngestorDeps struct {
	Provider   upstream.Provider
	Normalizer *Normalizer
	Persister  *Persister
	RequestLog RequestLogStore
	Archiver   RawArchiver
	Language   string
	Timeout    time.Duration
}

// Ingestor runs one fetch, normalize and persist cycle for a widget.
type Ingestor struct {
	provider   upstream.Provider
	normalizer *Normalizer
	persister  *Persister
	requestLog RequestLogStore
	archiver   RawArchiver
	language   string
	timeout    time.Duration
}

func NewIngestor(deps IngestorDeps) *Ingestor {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &Ingestor{
		provider:   deps.Provider,
		normalizer: deps.Normalizer,
		persister:  deps.Persister,
		requestLog: deps.RequestLog,
		archiver:   deps.Archiver,
		language:   deps.Language,
		timeout:    timeout,
	}
}

type IngestRequest struct {
	Widget *models.Widget
	Filter models.ReviewFilter
	Kind   string
}

type IngestResult struct {
	// Reviews holds the fetched rows the store accepted, one per dedup key.
	Reviews       []models.GoogleReview
	Rating        float64
	HasRating     bool
	TotalCount    int
	NextPageToken string
	Report        PersistReport
}

// Ingest fetches the widget's reviews upstream and stores the novel ones. An upstream answer
// without reviews is an empty result, not an error.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	w := req.Widget
	fields := logrus.Fields{
		"widget_id": w.ID,
		"provider":  i.provider.Name(),
		"kind":      req.Kind,
	}
	// bookkeeping writes must land even if the caller has gone away
	bookkeeping := context.WithoutCancel(ctx)

	requestID, err := i.requestLog.LogAPIRequestStart(bookkeeping, &models.APIRequest{
		UserID:      w.UserID,
		WidgetID:    w.ID,
		RequestType: req.Kind,
		Provider:    i.provider.Name(),
	})
	if err != nil {
		logger.WithFields(fields).Warnf("could not record api request: %v", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, i.timeout)
	started := time.Now()
	res, fetchErr := i.provider.FetchReviews(fetchCtx, upstream.Query{
		PlaceID:  w.PlaceID,
		Language: i.language,
		Sort:     upstreamSort(req.Filter),
	})
	cancel()
	if fetchErr != nil && errors.Is(fetchErr, context.DeadlineExceeded) && !errors.Is(fetchErr, upstream.ErrUnavailable) {
		fetchErr = fmt.Errorf("%w: no answer within %s: %v", upstream.ErrUnavailable, i.timeout, fetchErr)
	}
	metrics.UpstreamDuration.WithLabelValues(i.provider.Name()).Observe(time.Since(started).Seconds())
	metrics.UpstreamRequests.WithLabelValues(i.provider.Name(), outcomeLabel(fetchErr)).Inc()

	if requestID != 0 {
		size, status, msg := 0, models.RequestStatusCompleted, ""
		if res != nil {
			size = res.ResponseSize
		}
		if fetchErr != nil && !errors.Is(fetchErr, upstream.ErrEmpty) {
			status, msg = models.RequestStatusError, fetchErr.Error()
		}
		if err := i.requestLog.LogAPIRequestComplete(bookkeeping, requestID, size, status, msg); err != nil {
			logger.WithFields(fields).Warnf("could not complete api request %d: %v", requestID, err)
		}
	}

	if errors.Is(fetchErr, upstream.ErrEmpty) {
		logger.WithFields(fields).Info("upstream returned no reviews")
		return &IngestResult{}, nil
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	if i.archiver != nil && len(res.Raw) > 0 {
		if err := i.archiver.ArchiveRawResponse(bookkeeping, w.ID, i.provider.Name(), res.Raw); err != nil {
			logger.WithFields(fields).Warnf("could not archive upstream payload: %v", err)
		}
	}

	normalized := i.normalizer.NormalizeAll(w.ID, res.Reviews)
	accepted, report := i.persister.PersistAccepted(bookkeeping, normalized)

	logger.WithFields(fields).WithFields(logrus.Fields{
		"fetched":  len(normalized),
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("reviews ingested")

	return &IngestResult{
		Reviews:       accepted,
		Rating:        res.Rating,
		HasRating:     res.HasRating,
		TotalCount:    res.TotalCount,
		NextPageToken: res.NextPageToken,
		Report:        report,
	}, nil
}

func upstreamSort(filter models.ReviewFilter) upstream.SortOrder {
	switch {
	case filter.Sort == models.SortNewest:
		return upstream.SortNewest
	case filter.Sort == models.SortHighest, filter.MinRating >= 4:
		return upstream.SortHighest
	default:
		return upstream.SortRelevant
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, upstream.ErrEmpty):
		return "empty"
	case errors.Is(err, upstream.ErrAuth):
		return "auth_error"
	case errors.Is(err, upstream.ErrNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}
