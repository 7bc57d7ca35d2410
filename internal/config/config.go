// Package config loads the application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jonesrussell/flipscout/internal/analysis"
	"github.com/jonesrussell/flipscout/internal/classify"
	"github.com/jonesrussell/flipscout/internal/database"
	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/market"
	"github.com/jonesrussell/flipscout/internal/scrape/craigslist"
	"github.com/jonesrussell/flipscout/internal/scrape/ebay"
	"github.com/jonesrussell/flipscout/internal/scrape/facebook"
	"github.com/jonesrussell/flipscout/internal/scrape/offerup"
)

// Default service configuration values.
const (
	defaultServiceName    = "flipscout"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090
	defaultOwnerID        = "default"
	defaultSchedule       = "0 */6 * * *"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  database.Config `yaml:"database"`
	Logging   logger.Config   `yaml:"logging"`
	Sources   SourcesConfig   `yaml:"sources"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Market    market.Config   `yaml:"market"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"FLIPSCOUT_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"      yaml:"debug"`
	// OwnerID attributes scheduler-initiated scans.
	OwnerID string `env:"FLIPSCOUT_OWNER_ID" yaml:"owner_id"`
}

// SourcesConfig holds the per-marketplace adapter settings.
type SourcesConfig struct {
	EBay       ebay.Config       `yaml:"ebay"`
	Craigslist craigslist.Config `yaml:"craigslist"`
	Facebook   facebook.Config   `yaml:"facebook"`
	OfferUp    offerup.Config    `yaml:"offerup"`
}

// ScoringConfig holds the opportunity classification thresholds.
type ScoringConfig struct {
	MinValueScore int     `env:"MIN_VALUE_SCORE" yaml:"min_value_score"`
	MaxPrice      float64 `yaml:"max_price"`
}

// Criteria converts the scoring settings into classifier criteria.
func (s ScoringConfig) Criteria() classify.Criteria {
	criteria := classify.DefaultCriteria()
	if s.MinValueScore > 0 {
		criteria.MinValueScore = s.MinValueScore
	}
	criteria.MaxPrice = s.MaxPrice
	return criteria
}

// AnalysisConfig holds the deep-analysis settings.
type AnalysisConfig struct {
	Anthropic analysis.AnthropicConfig `yaml:"anthropic"`
	CacheTTL  time.Duration            `yaml:"cache_ttl"`
}

// SchedulerConfig holds the recurring-scan settings.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron expression; the default runs every six hours.
	Schedule string `env:"SCAN_SCHEDULE" yaml:"schedule"`
	// Keywords are the saved searches the scheduler cycles through.
	Keywords []string `env:"SCAN_KEYWORDS" yaml:"keywords"`
	// Platforms restricts which marketplaces the scheduler scans; empty
	// means all configured ones.
	Platforms []string `yaml:"platforms"`
	MaxPrice  float64  `yaml:"max_price"`
}

// Load reads the YAML file at path, applies defaults, then env overrides.
// A missing file is not fatal; defaults plus environment carry a working
// local setup.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		if err := unmarshalFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// SetDefaults applies default values to all configuration sections.
func (c *Config) SetDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = defaultServiceVersion
	}
	if c.Service.Port == 0 {
		c.Service.Port = defaultServicePort
	}
	if c.Service.OwnerID == "" {
		c.Service.OwnerID = defaultOwnerID
	}
	if c.Scheduler.Schedule == "" {
		c.Scheduler.Schedule = defaultSchedule
	}

	c.Database.SetDefaults()
	c.Logging.SetDefaults()
	c.Market.SetDefaults()
	c.Analysis.Anthropic.SetDefaults()
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port %d out of range", c.Service.Port)
	}
	if c.Scoring.MinValueScore < 0 || c.Scoring.MinValueScore > 100 {
		return fmt.Errorf("scoring.min_value_score %d out of range", c.Scoring.MinValueScore)
	}
	for _, p := range c.Scheduler.Platforms {
		if !domain.Platform(p).IsValid() {
			return fmt.Errorf("scheduler.platforms: unknown platform %q", p)
		}
	}
	return nil
}
