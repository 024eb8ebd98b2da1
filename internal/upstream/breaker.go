package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/metrics"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// Breaker wraps a Provider with a circuit breaker. Only ErrUnavailable-class failures trip it;
// empty results, missing places and rejected credentials say nothing about upstream health.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[*Result]
}

var _ Provider = (*Breaker)(nil)

func NewBreaker(next Provider, maxFailures int, openTimeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	name := "upstream_" + next.Name()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("upstream circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	metrics.BreakerState.WithLabelValues(name).Set(0)

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Result](settings),
	}
}

func (b *Breaker) Name() string {
	return b.next.Name()
}

func (b *Breaker) FetchReviews(ctx context.Context, q Query) (*Result, error) {
	result, err := b.cb.Execute(func() (*Result, error) {
		return b.next.FetchReviews(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s circuit %v", ErrUnavailable, b.next.Name(), err)
	}
	return result, err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
