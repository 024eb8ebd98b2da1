package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/config"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
	"github.com/princeprakhar/review-widget-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizedBatch(widgetID uint, authors ...string) []models.GoogleReview {
	out := make([]models.GoogleReview, 0, len(authors))
	for i, a := range authors {
		out = append(out, models.GoogleReview{
			WidgetID:        widgetID,
			AuthorName:      a,
			Rating:          5,
			Text:            "Review by " + a,
			ProfilePhotoURL: "https://via.placeholder.com/50",
			CreatedAt:       fixedNow.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestPersister_IdempotentIngestion(t *testing.T) {
	env := newTestEnv(t, testutil.DB(t), config.DedupAuthorText)
	ctx := context.Background()

	first := env.persister.Persist(ctx, normalizedBatch(1, "A", "B", "C"))
	assert.Equal(t, PersistReport{Inserted: 3}, first)
	assert.EqualValues(t, 3, env.countReviews(t, 1))

	second := env.persister.Persist(ctx, normalizedBatch(1, "A", "B", "C"))
	assert.Equal(t, PersistReport{Skipped: 3}, second)
	assert.EqualValues(t, 3, env.countReviews(t, 1))
}

func TestPersister_SameAuthorAndTextStoredOnce(t *testing.T) {
	env := newTestEnv(t, testutil.DB(t), config.DedupAuthorText)
	ctx := context.Background()

	batch := normalizedBatch(1, "A", "A", "B")
	// same author and text, different timestamp: still the same review
	batch[1].CreatedAt = batch[1].CreatedAt.Add(-72 * time.Hour)

	report := env.persister.Persist(ctx, batch)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Skipped)

	stored, err := env.reviews.FindReviews(ctx, 1, models.ReviewFilter{})
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, r := range stored {
		key := r.AuthorName + "\x00" + r.Text
		assert.False(t, seen[key], "duplicate (author, text) for %s", r.AuthorName)
		seen[key] = true
	}
}

func TestPersister_PartialBatchInvalidRow(t *testing.T) {
	env := newTestEnv(t, testutil.DB(t), config.DedupAuthorText)

	batch := normalizedBatch(1, "A", "B", "C", "D", "E")
	batch[2].Rating = 0

	report := env.persister.Persist(context.Background(), batch)
	assert.Equal(t, PersistReport{Inserted: 4, Failed: 1}, report)
	assert.EqualValues(t, 4, env.countReviews(t, 1))
}

// failingStore rejects inserts for one author to simulate a constraint violation in the database.
type failingStore struct {
	*repository.ReviewRepository
	failAuthor string
}

func (f *failingStore) InsertReview(ctx context.Context, review *models.GoogleReview) error {
	if review.AuthorName == f.failAuthor {
		return errors.New("pq: violates check constraint")
	}
	return f.ReviewRepository.InsertReview(ctx, review)
}

func TestPersister_PartialBatchStoreFailure(t *testing.T) {
	db := testutil.DB(t)
	store := &failingStore{ReviewRepository: repository.NewReviewRepository(db), failAuthor: "C"}
	persister, err := NewPersister(store, config.DedupAuthorText)
	require.NoError(t, err)

	report := persister.Persist(context.Background(), normalizedBatch(1, "A", "B", "C", "D", "E"))
	assert.Equal(t, 4, report.Inserted)
	assert.Equal(t, 1, report.Failed)

	stored, err := store.FindReviews(context.Background(), 1, models.ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for _, r := range stored {
		assert.NotEqual(t, "C", r.AuthorName)
	}
}

func TestPersister_LegacyUpsertStrategy(t *testing.T) {
	env := newTestEnv(t, testutil.DB(t), config.DedupLegacyUpsert)
	ctx := context.Background()

	first := env.persister.Persist(ctx, normalizedBatch(1, "A", "B"))
	assert.Equal(t, PersistReport{Inserted: 2}, first)

	edited := normalizedBatch(1, "A", "B")
	edited[0].Text = "Changed my mind"
	edited[0].Rating = 3

	second := env.persister.Persist(ctx, edited)
	assert.Equal(t, PersistReport{Updated: 2}, second)
	assert.EqualValues(t, 2, env.countReviews(t, 1))

	stored, err := env.reviews.FindReviews(ctx, 1, models.ReviewFilter{})
	require.NoError(t, err)
	byAuthor := map[string]models.GoogleReview{}
	for _, r := range stored {
		byAuthor[r.AuthorName] = r
	}
	assert.Equal(t, "Changed my mind", byAuthor["A"].Text)
	assert.Equal(t, 3, byAuthor["A"].Rating)
}

func TestNewPersister_RejectsUnknownStrategy(t *testing.T) {
	_, err := NewPersister(nil, "newest_wins")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestPersister_PersistAcceptedOmitsRejectedAndRepeatedRows(t *testing.T) {
	env := newTestEnv(t, testutil.DB(t), config.DedupAuthorText)
	ctx := context.Background()

	batch := normalizedBatch(1, "A", "A", "B")
	batch[2].Rating = 0

	accepted, report := env.persister.PersistAccepted(ctx, batch)
	assert.Equal(t, PersistReport{Inserted: 1, Skipped: 1, Failed: 1}, report)
	require.Len(t, accepted, 1)
	assert.Equal(t, "A", accepted[0].AuthorName)

	// already stored rows still count as accepted on the next pass
	again, _ := env.persister.PersistAccepted(ctx, normalizedBatch(1, "A"))
	assert.Len(t, again, 1)
}
