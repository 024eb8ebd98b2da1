package services

import (
	"context"
	"fmt"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/repository"
)

type ConsumptionReport struct {
	PeriodStart time.Time             `json:"period_start"`
	Users       []repository.UsageRow `json:"users"`
}

// ConsumptionService reports upstream API usage for the current calendar month.
type ConsumptionService struct {
	usage UsageStore
	now   func() time.Time
}

func NewConsumptionService(usage UsageStore) *ConsumptionService {
	return &ConsumptionService{usage: usage, now: time.Now}
}

// MonthlyUsage aggregates per user; userID 0 means every user.
func (s *ConsumptionService) MonthlyUsage(ctx context.Context, userID uint) (*ConsumptionReport, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	rows, err := s.usage.Usage(ctx, start, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if rows == nil {
		rows = []repository.UsageRow{}
	}
	return &ConsumptionReport{PeriodStart: start, Users: rows}, nil
}
