package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/princeprakhar/review-widget-backend/internal/metrics"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	ErrSweepInProgress = errors.New("review sweep already running")
	ErrSweepAborted    = errors.New("review sweep aborted")
)

type SweepFailure struct {
	WidgetID uint   `json:"widget_id"`
	Error    string `json:"error"`
}

type SweepReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Widgets    int            `json:"widgets"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Aborted    bool           `json:"aborted"`
	Persisted  PersistReport  `json:"persisted"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}

// SweepJob refreshes the stored reviews of every widget, one widget at a time.
type SweepJob struct {
	widgets  WidgetStore
	ingestor *Ingestor
	alerter  Alerter
	running  sync.Mutex
}

func NewSweepJob(widgets WidgetStore, ingestor *Ingestor, alerter Alerter) *SweepJob {
	return &SweepJob{widgets: widgets, ingestor: ingestor, alerter: alerter}
}

// Run walks all widgets. A failing widget is recorded and skipped. Rejected upstream credentials
// stop the whole run and alert the operator.
func (j *SweepJob) Run(ctx context.Context) (*SweepReport, error) {
	if !j.running.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer j.running.Unlock()

	report := &SweepReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := logger.WithFields(logrus.Fields{"sweep_run": report.RunID})
	defer func() {
		report.FinishedAt = time.Now()
		metrics.SweepDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}()

	widgets, err := j.widgets.ListWidgets(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	report.Widgets = len(widgets)
	log.Infof("review sweep started for %d widgets", len(widgets))

	for idx := range widgets {
		w := &widgets[idx]
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			metrics.SweepRuns.WithLabelValues("cancelled").Inc()
			return report, fmt.Errorf("%w: %v", ErrSweepAborted, err)
		}

		res, err := j.ingestor.Ingest(ctx, IngestRequest{Widget: w, Kind: models.RequestTypeSweep})
		if errors.Is(err, upstream.ErrAuth) {
			report.Aborted = true
			report.Failed++
			report.Failures = append(report.Failures, SweepFailure{WidgetID: w.ID, Error: err.Error()})
			metrics.SweepRuns.WithLabelValues("aborted").Inc()
			log.WithField("widget_id", w.ID).Errorf("upstream rejected credentials, aborting sweep: %v", err)
			if j.alerter != nil {
				if alertErr := j.alerter.SendUpstreamAuthAlert(j.ingestor.provider.Name(), err); alertErr != nil {
					log.Errorf("failed to send operator alert: %v", alertErr)
				}
			}
			return report, fmt.Errorf("%w at widget %d: %w", ErrSweepAborted, w.ID, err)
		}
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, SweepFailure{WidgetID: w.ID, Error: err.Error()})
			log.WithField("widget_id", w.ID).Warnf("sweep skipped widget: %v", err)
			continue
		}

		report.Succeeded++
		report.Persisted.add(res.Report)
	}

	metrics.SweepRuns.WithLabelValues("completed").Inc()
	log.WithFields(logrus.Fields{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"inserted":  report.Persisted.Inserted,
	}).Info("review sweep finished")
	return report, nil
}
