package models

import (
	"time"
)

const (
	LayoutVertical   = "vertical"
	LayoutHorizontal = "horizontal"
)

type Widget struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	WebsiteURL string    `json:"website_url" gorm:"not null"`
	PlaceID    string    `json:"place_id" gorm:"not null"`
	Name       string    `json:"name"`
	LayoutType string    `json:"layout_type" gorm:"default:vertical"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Reviews []GoogleReview `json:"reviews,omitempty" gorm:"foreignKey:WidgetID"`
}

func IsValidLayout(layout string) bool {
	return layout == LayoutVertical || layout == LayoutHorizontal
}
