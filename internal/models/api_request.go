package models

import (
	"time"
)

const (
	RequestStatusPending   = "pending"
	RequestStatusCompleted = "completed"
	RequestStatusError     = "error"

	RequestTypeDisplay = "display"
	RequestTypeSweep   = "sweep"
	RequestTypeRefresh = "refresh"
)

// APIRequest records one upstream fetch attempt for usage accounting.
type APIRequest struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"index"`
	WidgetID     uint      `json:"widget_id" gorm:"index"`
	RequestType  string    `json:"request_type" gorm:"not null"`
	Provider     string    `json:"provider"`
	ResponseSize int       `json:"response_size" gorm:"default:0"`
	Status       string    `json:"status" gorm:"default:pending"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (APIRequest) TableName() string {
	return "api_requests"
}
