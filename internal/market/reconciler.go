// Package market recomputes "true" discounts from observed sold-price
// history, overriding the heuristic estimate when enough data exists.
package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
)

// SourceSoldHistory labels verified values derived from the price-history
// store.
const SourceSoldHistory = "sold_history"

// Config tunes the reconciler.
type Config struct {
	// MinSamples is the minimum number of recent sold prices required to
	// trust a verified value. Deliberately tunable rather than a fixed
	// constant.
	MinSamples int `yaml:"min_samples"`
	// Window bounds how far back sold observations count.
	Window time.Duration `yaml:"window"`
	// MaxSamples caps how many observations feed the central tendency.
	MaxSamples int `yaml:"max_samples"`
}

// SetDefaults applies default reconciler settings.
func (c *Config) SetDefaults() {
	if c.MinSamples <= 0 {
		c.MinSamples = 3
	}
	if c.Window <= 0 {
		c.Window = 90 * 24 * time.Hour
	}
	if c.MaxSamples <= 0 {
		c.MaxSamples = 25
	}
}

// PriceHistory is the sold-price lookup the reconciler depends on.
type PriceHistory interface {
	RecentSoldPrices(ctx context.Context, productName string, platform domain.Platform, since time.Time, limit int) ([]float64, error)
}

// Verified is a market value derived from observed sold prices.
type Verified struct {
	Value  float64
	Source string
}

// Reconciler looks up sold-price history and computes verified values.
type Reconciler struct {
	history PriceHistory
	cfg     Config
	logger  logger.Logger
	now     func() time.Time
}

// New creates a reconciler.
func New(history PriceHistory, cfg Config, log logger.Logger) *Reconciler {
	cfg.SetDefaults()
	return &Reconciler{history: history, cfg: cfg, logger: log, now: time.Now}
}

// Reconcile returns the verified market value for a product, or nil when the
// sample is too small. Absence of history is the normal case for novel
// products, not an error.
func (r *Reconciler) Reconcile(ctx context.Context, productTitle string, platform domain.Platform) (*Verified, error) {
	since := r.now().Add(-r.cfg.Window)

	prices, err := r.history.RecentSoldPrices(ctx, productTitle, platform, since, r.cfg.MaxSamples)
	if err != nil {
		return nil, fmt.Errorf("lookup sold prices: %w", err)
	}

	if len(prices) < r.cfg.MinSamples {
		return nil, nil
	}

	return &Verified{Value: median(prices), Source: SourceSoldHistory}, nil
}

// Apply overlays verified market data onto a listing. The heuristic estimate
// is retained for its qualitative reasoning and tags; only the verified
// fields and the true discount are set.
func (r *Reconciler) Apply(ctx context.Context, l *domain.Listing) {
	verified, err := r.Reconcile(ctx, l.Title, l.Platform)
	if err != nil {
		r.logger.Warn("Market reconcile failed",
			logger.Error(err),
			logger.String("listing_id", l.ID),
		)
		return
	}
	if verified == nil || verified.Value <= 0 {
		return
	}

	trueDiscount := (verified.Value - l.AskingPrice) / verified.Value * 100
	if trueDiscount < 0 {
		trueDiscount = 0
	}

	l.VerifiedValue = &verified.Value
	l.VerifiedSource = &verified.Source
	l.TrueDiscountPercent = &trueDiscount
}

// median computes the central tendency of recent sold prices.
func median(prices []float64) float64 {
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
