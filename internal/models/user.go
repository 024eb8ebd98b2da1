package models

import (
	"time"
)

// User owns widgets. Accounts are managed elsewhere; this service only reads them.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"unique;not null"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name"`
	Role        string    `json:"role" gorm:"default:customer"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Widgets       []Widget       `json:"widgets,omitempty" gorm:"foreignKey:UserID"`
	Subscriptions []Subscription `json:"-" gorm:"foreignKey:UserID"`
}

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

type Subscription struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	Plan      string     `json:"plan"`
	Status    string     `json:"status" gorm:"default:active"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsActive reports whether the subscription grants paid features at the given instant.
func (s *Subscription) IsActive(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(now)
}
