// Package scan orchestrates one full pipeline run: fetch, normalize, score,
// reconcile, classify, persist.
package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/flipscout/internal/classify"
	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/events"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/market"
	"github.com/jonesrussell/flipscout/internal/metrics"
	"github.com/jonesrussell/flipscout/internal/normalize"
	"github.com/jonesrussell/flipscout/internal/scrape"
	"github.com/jonesrussell/flipscout/internal/valuation"
)

// previewSize bounds how many listings a scan result carries inline.
const previewSize = 10

// JobStore is the job persistence the scanner depends on.
type JobStore interface {
	Create(ctx context.Context, job *domain.ScrapeJob) error
	MarkCompleted(ctx context.Context, jobID string, listingsFound, opportunitiesFound int) error
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

// ListingStore persists normalized, scored listings.
type ListingStore interface {
	Upsert(ctx context.Context, l *domain.Listing) error
}

// HistoryStore records observed sold prices.
type HistoryStore interface {
	Insert(ctx context.Context, rec *domain.PriceHistoryRecord) error
}

// Deps wires the scanner's collaborators. Reconciler, Publisher and Metrics
// are optional; the scanner degrades without them.
type Deps struct {
	Registry   *scrape.Registry
	Jobs       JobStore
	Listings   ListingStore
	History    HistoryStore
	Reconciler *market.Reconciler
	Classifier *classify.Classifier
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// Scanner runs scan jobs end to end.
type Scanner struct {
	deps Deps
	now  func() time.Time
}

// New creates a scanner.
func New(deps Deps) *Scanner {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	return &Scanner{deps: deps, now: time.Now}
}

// Result summarizes one scan run.
type Result struct {
	Success       bool              `json:"success"`
	JobID         string            `json:"job_id"`
	Platform      domain.Platform   `json:"platform"`
	ListingsFound int               `json:"listings_found"`
	ListingsSaved int               `json:"listings_saved"`
	Opportunities int               `json:"opportunities"`
	SoldRecorded  int               `json:"sold_recorded"`
	Preview       []*domain.Listing `json:"preview,omitempty"`
}

// RunScan executes a scan for one owner against one marketplace. The job row
// is created in RUNNING state before any network call; every failure after
// that point lands in a FAILED job rather than a silent crash. A scan where
// some listings fail to persist still completes.
func (s *Scanner) RunScan(ctx context.Context, ownerID string, platform domain.Platform, params domain.SearchParams) (*Result, error) {
	if !platform.IsValid() {
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("validate search params: %w", err)
	}

	start := s.now()
	job := &domain.ScrapeJob{
		OwnerID:  ownerID,
		Platform: platform,
		Keywords: params.Keywords,
		Category: params.Category,
		Location: params.Location,
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
	}
	if err := s.deps.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create scrape job: %w", err)
	}

	log := s.deps.Logger.With(
		logger.String("job_id", job.ID),
		logger.String("platform", string(platform)),
		logger.String("keywords", params.Keywords),
	)
	log.Info("Scan started")
	if s.deps.Metrics != nil {
		s.deps.Metrics.ScansTotal.WithLabelValues(string(platform)).Inc()
	}

	scraper, err := s.deps.Registry.Get(platform)
	if err != nil {
		return s.fail(ctx, job, log, err)
	}

	active, sold, fetchErr := s.fetch(ctx, scraper, params, log)
	if fetchErr != nil {
		if s.deps.Metrics != nil {
			class := scrape.Classify(fetchErr)
			s.deps.Metrics.FetchFailures.WithLabelValues(string(platform), string(class)).Inc()
			if class == scrape.ClassBlocked {
				s.deps.Metrics.FetchBlocked.WithLabelValues(string(platform)).Inc()
			}
		}
		return s.fail(ctx, job, log, fetchErr)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ListingsFound.WithLabelValues(string(platform)).Add(float64(len(active)))
	}

	listings := s.score(ctx, ownerID, platform, active, log)
	classified := s.deps.Classifier.Classify(ctx, listings)
	saved := s.persist(ctx, classified.All, log)
	soldRecorded := s.recordSold(ctx, platform, sold, log)

	if err := s.deps.Jobs.MarkCompleted(ctx, job.ID, len(listings), len(classified.Opportunities)); err != nil {
		log.Error("Mark job completed failed", logger.Error(err))
	}
	job.Status = domain.JobStatusCompleted
	job.ListingsFound = len(listings)
	job.OpportunitiesFound = len(classified.Opportunities)
	s.announceCompletion(ctx, job, log)

	if s.deps.Metrics != nil {
		s.deps.Metrics.ListingsSaved.WithLabelValues(string(platform)).Add(float64(saved))
		s.deps.Metrics.OpportunitiesFound.WithLabelValues(string(platform)).Add(float64(len(classified.Opportunities)))
		s.deps.Metrics.ObserveScan(string(platform), start)
	}

	log.Info("Scan completed",
		logger.Int("listings_found", len(listings)),
		logger.Int("listings_saved", saved),
		logger.Int("opportunities", len(classified.Opportunities)),
		logger.Int("sold_recorded", soldRecorded),
		logger.Duration("elapsed", s.now().Sub(start)),
	)

	preview := classified.All
	if len(preview) > previewSize {
		preview = preview[:previewSize]
	}
	return &Result{
		Success:       true,
		JobID:         job.ID,
		Platform:      platform,
		ListingsFound: len(listings),
		ListingsSaved: saved,
		Opportunities: len(classified.Opportunities),
		SoldRecorded:  soldRecorded,
		Preview:       preview,
	}, nil
}

// fetch runs the active search and, when the adapter supports it, the sold
// search concurrently. Only the active search is fatal; sold history is
// supplementary signal.
func (s *Scanner) fetch(ctx context.Context, scraper scrape.Scraper, params domain.SearchParams, log logger.Logger) (active, sold []scrape.RawItem, err error) {
	soldScraper, hasSold := scraper.(scrape.SoldScraper)

	var wg sync.WaitGroup
	var soldErr error
	if hasSold {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sold, soldErr = soldScraper.FetchSold(ctx, params)
		}()
	}

	active, err = scraper.Fetch(ctx, params)
	wg.Wait()

	if soldErr != nil {
		log.Warn("Sold-item search failed", logger.Error(soldErr))
		sold = nil
	}
	return active, sold, err
}

// score normalizes and estimates each raw item, dropping the ones the
// normalizer rejects.
func (s *Scanner) score(ctx context.Context, ownerID string, platform domain.Platform, raw []scrape.RawItem, log logger.Logger) []*domain.Listing {
	now := s.now()
	listings := make([]*domain.Listing, 0, len(raw))

	for _, item := range raw {
		l, skip := normalize.Normalize(ownerID, platform, item, now)
		if skip != normalize.SkipNone {
			log.Debug("Skipping raw item",
				logger.String("reason", string(skip)),
				logger.String("url", item.URL),
			)
			continue
		}

		l.ValueEstimate = valuation.Estimate(valuation.Input{
			Title:       l.Title,
			Description: l.Description,
			Price:       l.AskingPrice,
			Condition:   l.Condition,
			Category:    l.Category,
			Brand:       l.Brand,
			SellerName:  l.SellerName,
		})
		if s.deps.Metrics != nil {
			s.deps.Metrics.ValueScore.Observe(float64(l.ValueScore))
		}

		if s.deps.Reconciler != nil {
			s.deps.Reconciler.Apply(ctx, l)
		}

		listings = append(listings, l)
	}

	return listings
}

// persist upserts listings one at a time. A single bad row is logged and
// skipped, never aborting the batch.
func (s *Scanner) persist(ctx context.Context, listings []*domain.Listing, log logger.Logger) int {
	saved := 0
	for _, l := range listings {
		if err := s.deps.Listings.Upsert(ctx, l); err != nil {
			log.Error("Listing save failed",
				logger.String("external_id", l.ExternalID),
				logger.Error(err),
			)
			continue
		}
		saved++
	}
	return saved
}

func (s *Scanner) recordSold(ctx context.Context, platform domain.Platform, sold []scrape.RawItem, log logger.Logger) int {
	if s.deps.History == nil {
		return 0
	}

	recorded := 0
	for _, item := range sold {
		price := soldPrice(item)
		if item.Title == "" || price <= 0 {
			continue
		}

		soldAt := s.now()
		if item.SoldAt != nil {
			soldAt = *item.SoldAt
		}

		rec := &domain.PriceHistoryRecord{
			ProductName: item.Title,
			Category:    normalize.DetectCategory(item.Category, item.Title, item.Description),
			Platform:    platform,
			SoldPrice:   price,
			Condition:   normalize.NormalizeCondition(item.Condition),
			SoldAt:      soldAt,
		}
		if err := s.deps.History.Insert(ctx, rec); err != nil {
			log.Warn("Price history insert failed",
				logger.String("product", item.Title),
				logger.Error(err),
			)
			continue
		}
		recorded++
	}
	return recorded
}

// soldPrice resolves the observed sale amount. Adapters that only expose
// price text (eBay's sold comps) are parsed the same way active listings are.
func soldPrice(item scrape.RawItem) float64 {
	if item.SoldPrice > 0 {
		return item.SoldPrice
	}
	if item.Price > 0 {
		return item.Price
	}
	if amount, ok := normalize.ParsePrice(item.RawPrice); ok && amount > 0 {
		return amount
	}
	return 0
}

func (s *Scanner) fail(ctx context.Context, job *domain.ScrapeJob, log logger.Logger, cause error) (*Result, error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ScanFailures.WithLabelValues(string(job.Platform)).Inc()
	}
	if err := s.deps.Jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		log.Error("Mark job failed errored", logger.Error(err))
	}
	log.Error("Scan failed", logger.Error(cause))

	job.Status = domain.JobStatusFailed
	msg := cause.Error()
	job.ErrorMessage = &msg
	s.announceCompletion(ctx, job, log)

	return &Result{JobID: job.ID, Platform: job.Platform}, cause
}

func (s *Scanner) announceCompletion(ctx context.Context, job *domain.ScrapeJob, log logger.Logger) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(ctx, events.NewJobCompleteEvent(job)); err != nil {
		log.Warn("Job completion event publish failed", logger.Error(err))
	}
}
