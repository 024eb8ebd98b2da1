package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/database"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB returns a migrated in-memory sqlite database private to the calling test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, db *gorm.DB, email string) *models.User {
	tb.Helper()
	u := &models.User{Email: email, Name: "Owner", Role: "customer"}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSubscription(tb testing.TB, db *gorm.DB, userID uint, status string) *models.Subscription {
	tb.Helper()
	s := &models.Subscription{UserID: userID, Plan: "standard", Status: status, StartDate: time.Now().Add(-24 * time.Hour)}
	if err := db.WithContext(context.Background()).Create(s).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return s
}

func SeedWidget(tb testing.TB, db *gorm.DB, userID uint, website, placeID string) *models.Widget {
	tb.Helper()
	w := &models.Widget{
		UserID:     userID,
		WebsiteURL: website,
		PlaceID:    placeID,
		Name:       "Widget for " + website,
		LayoutType: models.LayoutVertical,
	}
	if err := db.WithContext(context.Background()).Create(w).Error; err != nil {
		tb.Fatalf("seed widget: %v", err)
	}
	return w
}

func SeedReview(tb testing.TB, db *gorm.DB, widgetID uint, author, text string, rating int) *models.GoogleReview {
	tb.Helper()
	r := &models.GoogleReview{
		WidgetID:        widgetID,
		AuthorName:      author,
		Text:            text,
		Rating:          rating,
		ProfilePhotoURL: "https://via.placeholder.com/50",
		CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := db.WithContext(context.Background()).Create(r).Error; err != nil {
		tb.Fatalf("seed review: %v", err)
	}
	return r
}
