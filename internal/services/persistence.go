package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/princeprakhar/review-widget-backend/internal/config"
	"github.com/princeprakhar/review-widget-backend/internal/metrics"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	ErrPersistence     = errors.New("review persistence failed")
	ErrUnknownStrategy = errors.New("unknown dedup strategy")
	ErrInvalidReview   = errors.New("invalid review")
)

type PersistReport struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (r *PersistReport) add(other PersistReport) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// Persister writes normalized reviews using one explicitly selected dedup strategy.
// Every row is handled on its own: a failing row is logged and counted, its siblings still land.
type Persister struct {
	store    ReviewStore
	strategy string
}

func NewPersister(store ReviewStore, strategy string) (*Persister, error) {
	switch strategy {
	case config.DedupAuthorText, config.DedupLegacyUpsert:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	return &Persister{store: store, strategy: strategy}, nil
}

func (p *Persister) Strategy() string {
	return p.strategy
}

func (p *Persister) Persist(ctx context.Context, reviews []models.GoogleReview) PersistReport {
	_, report := p.PersistAccepted(ctx, reviews)
	return report
}

// PersistAccepted is Persist that also returns the rows now represented in the store: inserted,
// updated or already present, once per dedup key. Rejected rows are left out.
func (p *Persister) PersistAccepted(ctx context.Context, reviews []models.GoogleReview) ([]models.GoogleReview, PersistReport) {
	var report PersistReport
	accepted := make([]models.GoogleReview, 0, len(reviews))
	seen := make(map[string]struct{}, len(reviews))
	for i := range reviews {
		outcome, err := p.persistOne(ctx, &reviews[i])
		if err != nil {
			report.Failed++
			metrics.ReviewsPersisted.WithLabelValues("failed").Inc()
			logger.WithFields(logrus.Fields{
				"widget_id": reviews[i].WidgetID,
				"author":    reviews[i].AuthorName,
				"strategy":  p.strategy,
			}).Warnf("skipping review: %v", err)
			continue
		}
		switch outcome {
		case "inserted":
			report.Inserted++
		case "updated":
			report.Updated++
		default:
			report.Skipped++
		}
		metrics.ReviewsPersisted.WithLabelValues(outcome).Inc()

		key := p.dedupKey(&reviews[i])
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			accepted = append(accepted, reviews[i])
		}
	}
	return accepted, report
}

func (p *Persister) dedupKey(review *models.GoogleReview) string {
	if p.strategy == config.DedupLegacyUpsert {
		return review.AuthorName + "\x00" + strconv.FormatInt(review.CreatedAt.UnixNano(), 10)
	}
	return review.AuthorName + "\x00" + review.Text
}

func (p *Persister) persistOne(ctx context.Context, review *models.GoogleReview) (string, error) {
	if !utils.IsValidRating(review.Rating) {
		return "", fmt.Errorf("%w: rating %d out of range", ErrInvalidReview, review.Rating)
	}

	if p.strategy == config.DedupLegacyUpsert {
		updated, err := p.store.UpsertReviewLegacy(ctx, review)
		switch {
		case errors.Is(err, repository.ErrDuplicateReview):
			return "skipped", nil
		case err != nil:
			return "", fmt.Errorf("%w: %v", ErrPersistence, err)
		case updated:
			return "updated", nil
		}
		return "inserted", nil
	}

	exists, err := p.store.ExistsReview(ctx, review.WidgetID, review.AuthorName, review.Text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if exists {
		return "skipped", nil
	}
	if err := p.store.InsertReview(ctx, review); err != nil {
		// lost a race with a concurrent insert of the same review
		if errors.Is(err, repository.ErrDuplicateReview) {
			return "skipped", nil
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return "inserted", nil
}
