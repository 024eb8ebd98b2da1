package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeProvider serves canned results per place id and counts calls.
type fakeProvider struct {
	mu      sync.Mutex
	results map[string]*upstream.Result
	errs    map[string]error
	gate    chan struct{}
	calls   atomic.Int32
	queries []upstream.Query
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{results: map[string]*upstream.Result{}, errs: map[string]error{}}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchReviews(ctx context.Context, q upstream.Query) (*upstream.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[q.PlaceID]; ok {
		return nil, err
	}
	res, ok := f.results[q.PlaceID]
	if !ok {
		return nil, upstream.ErrEmpty
	}
	cp := *res
	cp.Reviews = append([]upstream.Review(nil), res.Reviews...)
	return &cp, nil
}

type mockAlerter struct {
	mock.Mock
}

func (m *mockAlerter) SendUpstreamAuthAlert(provider string, cause error) error {
	args := m.Called(provider, cause)
	return args.Error(0)
}

type testEnv struct {
	db        *gorm.DB
	reviews   *repository.ReviewRepository
	widgets   *repository.WidgetRepository
	requests  *repository.APIRequestRepository
	provider  *fakeProvider
	ingestor  *Ingestor
	persister *Persister
}

func newTestEnv(t *testing.T, db *gorm.DB, strategy string) *testEnv {
	t.Helper()
	env := &testEnv{
		db:       db,
		reviews:  repository.NewReviewRepository(db),
		widgets:  repository.NewWidgetRepository(db),
		requests: repository.NewAPIRequestRepository(db),
		provider: newFakeProvider(),
	}
	persister, err := NewPersister(env.reviews, strategy)
	require.NoError(t, err)
	env.persister = persister
	env.ingestor = NewIngestor(IngestorDeps{
		Provider:   env.provider,
		Normalizer: NewNormalizer("https://via.placeholder.com/50", fixedClock),
		Persister:  persister,
		RequestLog: env.requests,
		Language:   "sk",
		Timeout:    2 * time.Second,
	})
	return env
}

func (e *testEnv) countReviews(t *testing.T, widgetID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.GoogleReview{}).Where("widget_id = ?", widgetID).Count(&n).Error)
	return n
}

func (e *testEnv) apiRequests(t *testing.T) []models.APIRequest {
	t.Helper()
	var rows []models.APIRequest
	require.NoError(t, e.db.Order("id ASC").Find(&rows).Error)
	return rows
}

func placesResult(reviews ...upstream.Review) *upstream.Result {
	return &upstream.Result{
		Reviews:      reviews,
		Rating:       4.7,
		HasRating:    true,
		TotalCount:   120,
		ResponseSize: 2048,
		Raw:          []byte(`{"status":"OK"}`),
	}
}

func rawReview(author, text string, rating int) upstream.Review {
	return upstream.Review{AuthorName: author, Text: text, Rating: rating, RelativeDate: "pred 2 mesiacmi"}
}
