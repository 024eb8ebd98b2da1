package services

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/types"
)

// InitialVisibleReviews is how many reviews the widget shows before "load more".
const InitialVisibleReviews = 3

type PoolSource string

const (
	SourceCache    PoolSource = "cache"
	SourceUpstream PoolSource = "upstream"
)

// ReviewPool is the resolved set of reviews for one widget request.
type ReviewPool struct {
	Reviews       []models.GoogleReview
	Source        PoolSource
	Filter        models.ReviewFilter
	Rating        float64
	HasRating     bool
	TotalCount    int
	NextPageToken string
}

// Shuffler permutes n elements through swap, with the contract of rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

type SelectionInput struct {
	Pool               *ReviewPool
	Widget             *models.Widget
	SameSite           bool
	ActiveSubscription bool
}

// PresentationSelector shapes a review pool into the widget payload. It never mutates stored reviews.
type PresentationSelector struct {
	shuffle          Shuffler
	reviewLinkPrefix string
}

func NewPresentationSelector(reviewLinkPrefix string, shuffle Shuffler) *PresentationSelector {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &PresentationSelector{shuffle: shuffle, reviewLinkPrefix: reviewLinkPrefix}
}

func (p *PresentationSelector) Select(in SelectionInput) *types.WidgetPayload {
	pool := in.Pool
	if pool == nil {
		pool = &ReviewPool{Source: SourceCache}
	}

	eligible := make([]models.GoogleReview, 0, len(pool.Reviews))
	for _, r := range pool.Reviews {
		if r.Displayable() {
			eligible = append(eligible, r)
		}
	}

	snapshot := aggregate(pool, eligible)
	p.order(eligible, pool.Filter.Sort)

	views := make([]types.ReviewView, len(eligible))
	for i, r := range eligible {
		views[i] = types.ReviewView{
			Author:      r.AuthorName,
			Rating:      r.Rating,
			Text:        r.Text,
			PhotoURL:    r.ProfilePhotoURL,
			DisplayDate: displayDate(r),
			Hidden:      i >= InitialVisibleReviews,
		}
	}
	visible := min(len(views), InitialVisibleReviews)

	layouts := []string{models.LayoutVertical}
	initial := models.LayoutVertical
	if in.SameSite && in.ActiveSubscription {
		layouts = append(layouts, models.LayoutHorizontal)
		if in.Widget != nil && in.Widget.LayoutType == models.LayoutHorizontal {
			initial = models.LayoutHorizontal
		}
	}

	payload := &types.WidgetPayload{
		Reviews:                 views,
		AggregateRatingSnapshot: snapshot,
		InitialLayout:           initial,
		Layouts:                 layouts,
		PaginationToken:         pool.NextPageToken,
		VisibleCount:            visible,
		HiddenCount:             len(views) - visible,
		Source:                  string(pool.Source),
	}
	if in.Widget != nil {
		payload.WidgetID = in.Widget.ID
		if in.Widget.PlaceID != "" && p.reviewLinkPrefix != "" {
			payload.ReviewLink = p.reviewLinkPrefix + in.Widget.PlaceID
		}
	}
	return payload
}

func (p *PresentationSelector) order(reviews []models.GoogleReview, hint string) {
	switch hint {
	case models.SortNewest:
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		})
	case models.SortHighest:
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].Rating > reviews[j].Rating
		})
	default:
		p.shuffle(len(reviews), func(i, j int) {
			reviews[i], reviews[j] = reviews[j], reviews[i]
		})
	}
}

// aggregate prefers the upstream figures of a fresh fetch. A pool filtered down to a single
// rating needs no averaging.
func aggregate(pool *ReviewPool, eligible []models.GoogleReview) types.AggregateRatingSnapshot {
	snapshot := types.AggregateRatingSnapshot{TotalCount: len(eligible)}
	if pool.Source == SourceUpstream && pool.TotalCount > 0 {
		snapshot.TotalCount = pool.TotalCount
	}

	switch {
	case pool.Source == SourceUpstream && pool.HasRating:
		snapshot.OverallRating = pool.Rating
	case pool.Filter.MinRating >= 5:
		snapshot.OverallRating = 5
	case len(eligible) > 0:
		sum := 0
		for _, r := range eligible {
			sum += r.Rating
		}
		snapshot.OverallRating = math.Round(float64(sum)/float64(len(eligible))*10) / 10
	}
	return snapshot
}

func displayDate(r models.GoogleReview) string {
	if d := strings.TrimSpace(r.RelativeTimeDescription); d != "" {
		return d
	}
	return r.CreatedAt.Format("2006-01-02")
}
