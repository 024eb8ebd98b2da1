package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/review-widget-backend/internal/api/handlers"
	"github.com/princeprakhar/review-widget-backend/internal/api/routes"
	"github.com/princeprakhar/review-widget-backend/internal/config"
	"github.com/princeprakhar/review-widget-backend/internal/repository"
	"github.com/princeprakhar/review-widget-backend/internal/scheduler"
	"github.com/princeprakhar/review-widget-backend/internal/services"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// sweepTimeout bounds one scheduled sweep across all widgets.
const sweepTimeout = 2 * time.Hour

// App holds the wired dependency graph of the widget backend.
type App struct {
	cfg        *config.Config
	db         *gorm.DB
	router     *gin.Engine
	httpServer *http.Server
	sweepJob   *services.SweepJob
	scheduler  *scheduler.CronScheduler
}

func New(cfg *config.Config, db *gorm.DB) (*App, error) {
	reviewRepo := repository.NewReviewRepository(db)
	widgetRepo := repository.NewWidgetRepository(db)
	requestRepo := repository.NewAPIRequestRepository(db)

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	persister, err := services.NewPersister(reviewRepo, cfg.DedupStrategy)
	if err != nil {
		return nil, err
	}

	var archiver services.RawArchiver
	if cfg.S3Bucket != "" {
		archive, err := services.NewArchiveService(cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			return nil, fmt.Errorf("init raw payload archive: %w", err)
		}
		archiver = archive
	}

	ingestor := services.NewIngestor(services.IngestorDeps{
		Provider:   provider,
		Normalizer: services.NewNormalizer(cfg.PlaceholderPhotoURL, time.Now),
		Persister:  persister,
		RequestLog: requestRepo,
		Archiver:   archiver,
		Language:   cfg.ReviewLanguage,
		Timeout:    cfg.UpstreamTimeout,
	})

	selector := services.NewPresentationSelector(cfg.WriteReviewURLPrefix, nil)
	reviewService := services.NewReviewService(reviewRepo, widgetRepo, ingestor, selector)
	widgetService := services.NewWidgetService(widgetRepo, reviewRepo)
	consumptionService := services.NewConsumptionService(requestRepo)
	sweepJob := services.NewSweepJob(widgetRepo, ingestor, services.NewEmailService(cfg))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupRoutes(router, cfg, routes.Handlers{
		Widget: handlers.NewWidgetHandler(reviewService, widgetService),
		Admin:  handlers.NewAdminHandler(sweepJob, consumptionService),
	})

	a := &App{
		cfg:      cfg,
		db:       db,
		router:   router,
		sweepJob: sweepJob,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}

	if cfg.SweepEnabled {
		a.scheduler, err = scheduler.New("review_sweep", cfg.SweepSchedule, sweepTimeout, func(ctx context.Context) error {
			_, err := sweepJob.Run(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"provider": provider.Name(),
		"dedup":    persister.Strategy(),
		"archive":  archiver != nil,
		"sweep":    cfg.SweepEnabled,
	}).Info("Application wired")
	return a, nil
}

// newProvider resolves the configured review provider and puts it behind a circuit breaker.
func newProvider(cfg *config.Config) (upstream.Provider, error) {
	registry := upstream.NewRegistry(
		upstream.NewPlacesProvider(cfg.GooglePlacesAPIKey, cfg.GooglePlacesBaseURL, cfg.UpstreamTimeout),
		upstream.NewSerpProvider(cfg.SerpAPIKey, cfg.SerpAPIBaseURL, cfg.UpstreamTimeout),
	)
	provider, err := registry.Resolve(cfg.ReviewProvider)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, registry.Names())
	}
	return upstream.NewBreaker(provider, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout), nil
}

func (a *App) Router() http.Handler {
	return a.router
}

// Run serves HTTP and the sweep schedule until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting on port " + a.cfg.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		a.Shutdown()
		return err
	}

	a.Shutdown()
	return nil
}

func (a *App) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server shutdown: %v", err)
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Errorf("close database: %v", err)
		}
	}
	logger.Info("Application shutdown complete")
}
