// Package scheduler runs recurring scans on a cron schedule, cycling through
// the configured saved searches across every registered marketplace.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scan"
)

// scanTimeout bounds one platform scan within a scheduled sweep.
const scanTimeout = 5 * time.Minute

// Runner is the scan entry point the scheduler drives.
type Runner interface {
	RunScan(ctx context.Context, ownerID string, platform domain.Platform, params domain.SearchParams) (*scan.Result, error)
}

// Config holds the recurring-scan settings.
type Config struct {
	Schedule  string
	Keywords  []string
	Platforms []domain.Platform
	MaxPrice  float64
	OwnerID   string
}

// Scheduler drives recurring scans.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	cfg    Config
	logger logger.Logger
}

// New creates a scheduler. It does nothing until Start is called.
func New(runner Runner, cfg Config, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		cfg:    cfg,
		logger: log,
	}
}

// Start registers the sweep on the configured cron expression and begins
// scheduling. An invalid expression fails here, not at first fire.
func (s *Scheduler) Start() error {
	if len(s.cfg.Keywords) == 0 {
		return fmt.Errorf("scheduler requires at least one saved search")
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return fmt.Errorf("register schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		logger.String("schedule", s.cfg.Schedule),
		logger.Int("saved_searches", len(s.cfg.Keywords)),
	)
	return nil
}

// Stop halts scheduling and waits for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunOnce performs a single sweep immediately, outside the cron schedule.
func (s *Scheduler) RunOnce() {
	s.sweep()
}

// sweep scans every saved search on every configured platform. Failures are
// logged per platform; one blocked marketplace never stops the sweep.
func (s *Scheduler) sweep() {
	s.logger.Info("Scheduled sweep started")

	for _, keywords := range s.cfg.Keywords {
		for _, platform := range s.cfg.Platforms {
			s.runOne(platform, keywords)
		}
	}

	s.logger.Info("Scheduled sweep finished")
}

func (s *Scheduler) runOne(platform domain.Platform, keywords string) {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	params := domain.SearchParams{
		Keywords: keywords,
		MaxPrice: s.cfg.MaxPrice,
	}

	result, err := s.runner.RunScan(ctx, s.cfg.OwnerID, platform, params)
	if err != nil {
		s.logger.Warn("Scheduled scan failed",
			logger.String("platform", string(platform)),
			logger.String("keywords", keywords),
			logger.Error(err),
		)
		return
	}

	s.logger.Info("Scheduled scan finished",
		logger.String("platform", string(platform)),
		logger.String("keywords", keywords),
		logger.String("job_id", result.JobID),
		logger.Int("listings_saved", result.ListingsSaved),
		logger.Int("opportunities", result.Opportunities),
	)
}
