// Package bootstrap handles application initialization and lifecycle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/flipscout/internal/analysis"
	"github.com/jonesrussell/flipscout/internal/api"
	"github.com/jonesrussell/flipscout/internal/classify"
	"github.com/jonesrussell/flipscout/internal/config"
	"github.com/jonesrussell/flipscout/internal/database"
	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/events"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/market"
	"github.com/jonesrussell/flipscout/internal/metrics"
	"github.com/jonesrussell/flipscout/internal/scan"
	"github.com/jonesrussell/flipscout/internal/scheduler"
	"github.com/jonesrussell/flipscout/internal/scrape"
	"github.com/jonesrussell/flipscout/internal/scrape/craigslist"
	"github.com/jonesrussell/flipscout/internal/scrape/ebay"
	"github.com/jonesrussell/flipscout/internal/scrape/facebook"
	"github.com/jonesrussell/flipscout/internal/scrape/offerup"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App holds the wired application.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	DB       *sqlx.DB
	Broker   *events.Broker
	Registry *scrape.Registry
	Scanner  *scan.Scanner
	Analyzer *analysis.Analyzer
	Jobs     *database.JobRepository
	Listings *database.ListingRepository
	Metrics  *metrics.Metrics
}

// New loads configuration and wires every component. The analyzer is left
// nil when no provider key is configured; everything else is required.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	listings := database.NewListingRepository(db)
	jobs := database.NewJobRepository(db)
	history := database.NewPriceHistoryRepository(db)
	cache := database.NewAnalysisCacheRepository(db)

	broker := events.NewBroker(log)

	registry := scrape.NewRegistry(
		ebay.New(cfg.Sources.EBay, log),
		craigslist.New(cfg.Sources.Craigslist, log),
		facebook.New(cfg.Sources.Facebook, log),
		offerup.New(cfg.Sources.OfferUp, log),
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	reconciler := market.New(history, cfg.Market, log)
	classifier := classify.New(cfg.Scoring.Criteria(), broker, log)

	scanner := scan.New(scan.Deps{
		Registry:   registry,
		Jobs:       jobs,
		Listings:   listings,
		History:    history,
		Reconciler: reconciler,
		Classifier: classifier,
		Publisher:  broker,
		Metrics:    m,
		Logger:     log,
	})

	var analyzer *analysis.Analyzer
	completer, err := analysis.NewAnthropicCompleter(cfg.Analysis.Anthropic)
	switch {
	case err == nil:
		analyzer = analysis.New(completer, cache, analysis.Config{CacheTTL: cfg.Analysis.CacheTTL}, log, analysis.WithMetrics(m))
	case errors.Is(err, analysis.ErrNotConfigured):
		log.Warn("Deep analysis disabled: no API key configured")
	default:
		return nil, fmt.Errorf("create analysis completer: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Broker:   broker,
		Registry: registry,
		Scanner:  scanner,
		Analyzer: analyzer,
		Jobs:     jobs,
		Listings: listings,
		Metrics:  m,
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Database close failed", logger.Error(err))
	}
	_ = a.Logger.Sync()
}

// RunServer starts the event broker and the HTTP server, blocking until ctx
// is cancelled, then shuts both down gracefully.
func (a *App) RunServer(ctx context.Context) error {
	if err := a.Broker.Start(ctx); err != nil {
		return fmt.Errorf("start event broker: %w", err)
	}

	var analyzer api.Analyzer
	if a.Analyzer != nil {
		analyzer = a.Analyzer
	}
	handler := api.NewHandler(a.Scanner, a.Jobs, a.Listings, analyzer, a.Config.Service.OwnerID, a.Logger)
	router := api.NewRouter(handler, a.Broker, a.Logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Service.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening",
			logger.String("service", a.Config.Service.Name),
			logger.Int("port", a.Config.Service.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("HTTP shutdown failed", logger.Error(err))
	}
	if err := a.Broker.Stop(); err != nil {
		a.Logger.Error("Broker stop failed", logger.Error(err))
	}
	return nil
}

// Scheduler builds the recurring-scan scheduler from configuration.
func (a *App) Scheduler() *scheduler.Scheduler {
	platforms := make([]domain.Platform, 0, len(a.Config.Scheduler.Platforms))
	for _, p := range a.Config.Scheduler.Platforms {
		platforms = append(platforms, domain.Platform(p))
	}
	if len(platforms) == 0 {
		platforms = a.Registry.Platforms()
	}

	return scheduler.New(a.Scanner, scheduler.Config{
		Schedule:  a.Config.Scheduler.Schedule,
		Keywords:  a.Config.Scheduler.Keywords,
		Platforms: platforms,
		MaxPrice:  a.Config.Scheduler.MaxPrice,
		OwnerID:   a.Config.Service.OwnerID,
	}, a.Logger)
}
