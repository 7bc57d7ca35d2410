// Package scrape defines the marketplace adapter contract shared by all sources.
package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// RawItem is one source-specific listing before normalization. Adapters fill
// in whatever the provider exposes; the normalizer decides what survives.
type RawItem struct {
	NativeID    string
	URL         string
	Title       string
	Description string

	// RawPrice is the provider's price text ("$1,200", "Free"). Price is set
	// instead when the provider returns a numeric amount.
	RawPrice string
	Price    float64

	Condition     string
	Location      string
	City          string
	Region        string
	SellerName    string
	SellerContact string
	ImageURLs     []string
	ThumbnailURL  string
	Category      string

	PostedAt *time.Time

	// Sold marks items observed in sold/completed state, used to feed the
	// price-history store rather than the listing store.
	Sold      bool
	SoldPrice float64
	SoldAt    *time.Time
}

// Scraper is the capability every marketplace adapter implements. Shared
// pipeline code never branches on the marketplace name; it only sees this
// interface.
type Scraper interface {
	// Platform identifies the marketplace this adapter serves.
	Platform() domain.Platform
	// Fetch returns active listings matching the search. The number of items
	// is capped at domain.MaxResultsPerScan. Errors are classified with the
	// taxonomy in this package.
	Fetch(ctx context.Context, params domain.SearchParams) ([]RawItem, error)
}

// SoldScraper is implemented by adapters that can also search completed sales,
// feeding the price-history store.
type SoldScraper interface {
	FetchSold(ctx context.Context, params domain.SearchParams) ([]RawItem, error)
}

// Registry holds the configured adapters keyed by platform.
type Registry struct {
	scrapers map[domain.Platform]Scraper
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(scrapers ...Scraper) *Registry {
	r := &Registry{scrapers: make(map[domain.Platform]Scraper, len(scrapers))}
	for _, s := range scrapers {
		r.scrapers[s.Platform()] = s
	}
	return r
}

// Get returns the adapter for a platform.
func (r *Registry) Get(platform domain.Platform) (Scraper, error) {
	s, ok := r.scrapers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter registered for platform %q", ErrNotConfigured, platform)
	}
	return s, nil
}

// Platforms returns the registered platforms.
func (r *Registry) Platforms() []domain.Platform {
	platforms := make([]domain.Platform, 0, len(r.scrapers))
	for p := range r.scrapers {
		platforms = append(platforms, p)
	}
	return platforms
}
