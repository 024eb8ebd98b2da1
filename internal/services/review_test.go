package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/config"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/testutil"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewService(env *testEnv) *ReviewService {
	return NewReviewService(env.reviews, env.widgets, env.ingestor, NewPresentationSelector("", identityShuffle))
}

func TestReviewService_CacheHitSkipsUpstream(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	testutil.SeedReview(t, db, widget.ID, "Jana", "Výborná káva", 5)

	svc := newReviewService(env)
	payload, err := svc.GetWidgetPayload(context.Background(), DisplayRequest{
		WidgetID: widget.ID,
		Filter:   models.ReviewFilter{MinRating: 5},
	})
	require.NoError(t, err)

	assert.Zero(t, env.provider.calls.Load(), "cache hit must not reach the upstream")
	assert.Empty(t, env.apiRequests(t), "cache hit must not create api request rows")
	assert.Equal(t, "cache", payload.Source)
	assert.Equal(t, 5.0, payload.OverallRating)
	require.Len(t, payload.Reviews, 1)
	assert.Equal(t, "Jana", payload.Reviews[0].Author)
}

func TestReviewService_CacheMissFetchesAndPersists(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	env.provider.results["place-1"] = placesResult(
		rawReview("Jana", "Výborná káva", 5),
		rawReview("Peter", "", 4),
		rawReview("Mária", "Príjemné prostredie", 4),
	)

	svc := newReviewService(env)
	payload, err := svc.GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	require.NoError(t, err)

	assert.EqualValues(t, 1, env.provider.calls.Load())
	assert.EqualValues(t, 3, env.countReviews(t, widget.ID), "blank-text reviews are stored too")
	assert.Equal(t, "upstream", payload.Source)
	assert.Len(t, payload.Reviews, 2, "blank-text reviews are not displayed")
	assert.InDelta(t, 4.7, payload.OverallRating, 0.0001)
	assert.Equal(t, 120, payload.TotalCount)

	rows := env.apiRequests(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RequestStatusCompleted, rows[0].Status)
	assert.Equal(t, 2048, rows[0].ResponseSize)
	assert.Equal(t, models.RequestTypeDisplay, rows[0].RequestType)
	assert.Equal(t, owner.ID, rows[0].UserID)

	_, err = svc.GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.provider.calls.Load(), "second request is served from the store")
	assert.Len(t, env.apiRequests(t), 1)
}

func TestReviewService_FilterTranslatesToProviderSort(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	testutil.SeedReview(t, db, widget.ID, "Ivan", "Ujde to", 3)
	env.provider.results["place-1"] = placesResult(
		rawReview("Jana", "Výborná káva", 5),
		rawReview("Mária", "Priemer", 3),
	)

	svc := newReviewService(env)
	pool, err := svc.ResolveReviews(context.Background(), widget, models.ReviewFilter{MinRating: 5})
	require.NoError(t, err)

	require.Len(t, env.provider.queries, 1)
	assert.Equal(t, upstream.SortHighest, env.provider.queries[0].Sort)
	assert.Equal(t, "sk", env.provider.queries[0].Language)
	assert.Equal(t, "place-1", env.provider.queries[0].PlaceID)
	require.Len(t, pool.Reviews, 1)
	assert.Equal(t, "Jana", pool.Reviews[0].AuthorName)
}

func TestReviewService_UpstreamEmptyIsNotAnError(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-empty")

	payload, err := newReviewService(env).GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	require.NoError(t, err)

	assert.Empty(t, payload.Reviews)
	rows := env.apiRequests(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RequestStatusCompleted, rows[0].Status)
}

func TestReviewService_UpstreamUnavailable(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	env.provider.errs["place-1"] = fmt.Errorf("%w: status 503", upstream.ErrUnavailable)

	_, err := newReviewService(env).GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	assert.ErrorIs(t, err, upstream.ErrUnavailable)

	rows := env.apiRequests(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RequestStatusError, rows[0].Status)
	assert.Contains(t, rows[0].ErrorMessage, "503")
}

func TestReviewService_WidgetNotFound(t *testing.T) {
	env := newTestEnv(t, testutil.DB(t), config.DedupAuthorText)

	_, err := newReviewService(env).GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: 404})
	assert.ErrorIs(t, err, ErrWidgetNotFound)
	assert.Zero(t, env.provider.calls.Load())
}

func TestReviewService_LayoutGatedBySiteAndSubscription(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	testutil.SeedSubscription(t, db, owner.ID, models.SubscriptionActive)
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	testutil.SeedReview(t, db, widget.ID, "Jana", "Výborná káva", 5)
	svc := newReviewService(env)

	onSite, err := svc.GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID, Referrer: "https://www.kaviaren.sk/o-nas"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vertical", "horizontal"}, onSite.Layouts)

	elsewhere, err := svc.GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID, Referrer: "https://blog.example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vertical"}, elsewhere.Layouts)
}

func TestReviewService_ConcurrentColdRequestsShareOneFetch(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	env.provider.results["place-1"] = placesResult(rawReview("Jana", "Výborná káva", 5), rawReview("Eva", "Super", 5))
	env.provider.gate = make(chan struct{})
	svc := newReviewService(env)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ResolveReviews(context.Background(), widget, models.ReviewFilter{})
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return env.provider.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(env.provider.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, env.provider.calls.Load())
	assert.Len(t, env.apiRequests(t), 1)
	assert.EqualValues(t, 2, env.countReviews(t, widget.ID))
}

func TestReviewService_UpstreamTimeoutIsUnavailable(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	env.ingestor.timeout = 20 * time.Millisecond
	env.provider.gate = make(chan struct{})
	defer close(env.provider.gate)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")

	_, err := newReviewService(env).GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	assert.ErrorIs(t, err, upstream.ErrUnavailable)

	rows := env.apiRequests(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RequestStatusError, rows[0].Status)
}

func TestReviewService_FreshPoolMatchesWhatWasStored(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	env.provider.results["place-1"] = placesResult(
		rawReview("Jana", "Super", 5),
		rawReview("Jana", "Super", 5),
		rawReview("Bez hodnotenia", "Pekné miesto", 0),
	)
	svc := newReviewService(env)

	fresh, err := svc.GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	require.NoError(t, err)
	assert.Equal(t, "upstream", fresh.Source)
	require.Len(t, fresh.Reviews, 1)
	assert.Equal(t, "Jana", fresh.Reviews[0].Author)
	assert.EqualValues(t, 1, env.countReviews(t, widget.ID))

	cached, err := svc.GetWidgetPayload(context.Background(), DisplayRequest{WidgetID: widget.ID})
	require.NoError(t, err)
	assert.Equal(t, "cache", cached.Source)
	assert.Len(t, cached.Reviews, len(fresh.Reviews))
}

func TestReviewService_RefreshWidget(t *testing.T) {
	db := testutil.DB(t)
	env := newTestEnv(t, db, config.DedupAuthorText)
	owner := testutil.SeedUser(t, db, "owner@kaviaren.sk")
	widget := testutil.SeedWidget(t, db, owner.ID, "https://kaviaren.sk", "place-1")
	testutil.SeedReview(t, db, widget.ID, "Jana", "Výborná káva", 5)
	env.provider.results["place-1"] = placesResult(
		rawReview("Jana", "Výborná káva", 5),
		rawReview("Peter", "Príjemné prostredie", 4),
	)
	svc := newReviewService(env)
	ctx := context.Background()

	_, err := svc.RefreshWidget(ctx, owner.ID+1, false, widget.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.RefreshWidget(ctx, owner.ID, false, 999)
	assert.ErrorIs(t, err, ErrWidgetNotFound)
	assert.Zero(t, env.provider.calls.Load())

	report, err := svc.RefreshWidget(ctx, owner.ID, false, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, PersistReport{Inserted: 1, Skipped: 1}, report.Persisted)
	assert.EqualValues(t, 2, env.countReviews(t, widget.ID))

	_, err = svc.RefreshWidget(ctx, 0, true, widget.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, env.provider.calls.Load())

	rows := env.apiRequests(t)
	require.Len(t, rows, 2)
	assert.Equal(t, models.RequestTypeRefresh, rows[0].RequestType)
}
