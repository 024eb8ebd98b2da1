package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// Task is one scheduled unit of work. Errors are logged; the schedule keeps firing.
type Task func(ctx context.Context) error

// CronScheduler runs a single task on a standard five-field cron expression.
type CronScheduler struct {
	cron    *cron.Cron
	name    string
	spec    string
	task    Task
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New parses spec and registers task under name. A zero timeout lets each run take as long as it needs.
func New(name, spec string, timeout time.Duration, task Task) (*CronScheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &CronScheduler{
		cron:    cron.New(),
		name:    name,
		spec:    spec,
		task:    task,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.fire))
	return s, nil
}

// Next reports when the task will fire next. Zero before Start.
func (s *CronScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *CronScheduler) Start() {
	s.cron.Start()
	logger.WithFields(logrus.Fields{"task": s.name, "schedule": s.spec}).Info("Scheduler started")
}

// Stop halts the schedule, cancels a run in flight and waits for it to return.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cron.Stop()
	s.cancel()
	s.wg.Wait()
	logger.WithFields(logrus.Fields{"task": s.name}).Info("Scheduler stopped")
}

func (s *CronScheduler) fire() {
	// a tick racing Stop must not Add after Wait has started
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	fields := logrus.Fields{"task": s.name}
	if err := s.task(ctx); err != nil {
		fields["error"] = err.Error()
		fields["duration"] = time.Since(start).String()
		logger.WithFields(fields).Error("Scheduled task failed")
		return
	}
	fields["duration"] = time.Since(start).String()
	logger.WithFields(fields).Info("Scheduled task finished")
}
