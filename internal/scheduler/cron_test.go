package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	_, err := New("sweep", "every monday", 0, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every monday")
}

func TestNew_AcceptsWeeklySchedule(t *testing.T) {
	s, err := New("sweep", "0 2 * * 1", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestFire_PassesTimeoutContextAndSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	var hadDeadline atomic.Bool
	s, err := New("sweep", "0 2 * * 1", time.Minute, func(ctx context.Context) error {
		calls.Add(1)
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		return errors.New("upstream down")
	})
	require.NoError(t, err)

	s.fire()
	s.fire()

	assert.EqualValues(t, 2, calls.Load())
	assert.True(t, hadDeadline.Load())
}

func TestStop_CancelsRunContext(t *testing.T) {
	s, err := New("sweep", "0 2 * * 1", 0, func(context.Context) error { return nil })
	require.NoError(t, err)

	s.Start()
	s.Stop()

	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}

func TestFire_IgnoredAfterStop(t *testing.T) {
	var calls atomic.Int32
	s, err := New("sweep", "0 2 * * 1", 0, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.Start()
	s.Stop()
	s.fire()

	assert.Zero(t, calls.Load())
}
