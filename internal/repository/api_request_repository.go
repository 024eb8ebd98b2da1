package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"gorm.io/gorm"
)

// APIRequestRepository keeps the upstream usage log.
type APIRequestRepository struct {
	db *gorm.DB
}

func NewAPIRequestRepository(db *gorm.DB) *APIRequestRepository {
	if db == nil {
		panic("database connection cannot be nil")
	}
	return &APIRequestRepository{db: db}
}

// LogAPIRequestStart writes a pending row and returns its id.
func (r *APIRequestRepository) LogAPIRequestStart(ctx context.Context, entry *models.APIRequest) (uint, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	entry.Status = models.RequestStatusPending
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, fmt.Errorf("log api request start: %w", err)
	}
	return entry.ID, nil
}

func (r *APIRequestRepository) LogAPIRequestComplete(ctx context.Context, id uint, size int, status, errorMessage string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.APIRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
		"response_size": size,
		"status":        status,
		"error_message": errorMessage,
	})
	if res.Error != nil {
		return fmt.Errorf("log api request %d complete: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type UsageRow struct {
	UserID            uint  `json:"user_id"`
	TotalRequests     int64 `json:"total_requests"`
	FailedRequests    int64 `json:"failed_requests"`
	TotalResponseSize int64 `json:"total_response_size"`
}

// Usage aggregates upstream requests per user since the given instant. A non-zero userID narrows
// the result to that user.
func (r *APIRequestRepository) Usage(ctx context.Context, since time.Time, userID uint) ([]UsageRow, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	query := r.db.WithContext(ctx).
		Model(&models.APIRequest{}).
		Select("user_id, COUNT(id) AS total_requests, " +
			"SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END) AS failed_requests, " +
			"COALESCE(SUM(response_size), 0) AS total_response_size").
		Where("created_at >= ?", since)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var rows []UsageRow
	if err := query.Group("user_id").Order("user_id ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate api usage: %w", err)
	}
	return rows, nil
}
