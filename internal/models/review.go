package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GoogleReview is a review ingested from an upstream provider for one widget.
// (widget_id, author_name, text_hash) is unique; (widget_id, author_name, created_at) is the legacy match key.
type GoogleReview struct {
	ID                      uint      `json:"id" gorm:"primaryKey"`
	WidgetID                uint      `json:"widget_id" gorm:"not null;uniqueIndex:idx_review_author_text,priority:1;index:idx_review_author_created,priority:1"`
	AuthorName              string    `json:"author_name" gorm:"not null;uniqueIndex:idx_review_author_text,priority:2;index:idx_review_author_created,priority:2"`
	Rating                  int       `json:"rating" gorm:"check:rating >= 1 AND rating <= 5"`
	Text                    string    `json:"text"`
	TextHash                string    `json:"-" gorm:"size:64;not null;uniqueIndex:idx_review_author_text,priority:3"`
	RelativeTimeDescription string    `json:"relative_time_description"`
	ProfilePhotoURL         string    `json:"profile_photo_url"`
	CreatedAt               time.Time `json:"created_at" gorm:"autoCreateTime:false;index:idx_review_author_created,priority:3"`
	FetchedAt               time.Time `json:"fetched_at" gorm:"autoCreateTime"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (GoogleReview) TableName() string {
	return "google_reviews"
}

func (r *GoogleReview) BeforeSave(tx *gorm.DB) error {
	r.TextHash = HashReviewText(r.Text)
	return nil
}

// Displayable reports whether the review has text worth rendering.
func (r *GoogleReview) Displayable() bool {
	return strings.TrimSpace(r.Text) != ""
}

func HashReviewText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ReviewFilter narrows the reviews requested for a widget. Zero value means no filter.
type ReviewFilter struct {
	MinRating int    `json:"min_rating"`
	Sort      string `json:"sort"`
}

// Sort hints accepted by ReviewFilter.
const (
	SortRandom  = ""
	SortNewest  = "newest"
	SortHighest = "highest"
)

// Key identifies the filter for in-flight de-duplication.
func (f ReviewFilter) Key() string {
	return strconv.Itoa(f.MinRating) + ":" + f.Sort
}
