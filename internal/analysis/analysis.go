// Package analysis enriches listings with a model-backed deep analysis,
// serving cached results when a fresh entry exists.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/metrics"
)

// DefaultCacheTTL is how long a deep-analysis result stays fresh.
const DefaultCacheTTL = 24 * time.Hour

var (
	// ErrNotConfigured indicates missing or rejected API credentials.
	ErrNotConfigured = errors.New("analysis provider not configured")
	// ErrRateLimited indicates the provider refused the call for quota reasons.
	ErrRateLimited = errors.New("analysis provider rate limited")
	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty analysis response")
)

// Completer produces a raw model completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Cache persists analysis results keyed by listing ID. Expired entries are
// reported as absent.
type Cache interface {
	Get(ctx context.Context, listingID string, now time.Time) (*domain.AnalysisCacheEntry, error)
	Put(ctx context.Context, entry *domain.AnalysisCacheEntry) error
}

// Config tunes the analyzer.
type Config struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SetDefaults applies default analyzer settings.
func (c *Config) SetDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// Analyzer runs deep analysis for listings, cache first.
type Analyzer struct {
	completer Completer
	cache     Cache
	cfg       Config
	logger    logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures an analyzer.
type Option func(*Analyzer)

// WithMetrics instruments provider calls and cache hits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New creates an analyzer. The cache may be nil, in which case every call
// goes to the provider.
func New(completer Completer, cache Cache, cfg Config, log logger.Logger, opts ...Option) *Analyzer {
	cfg.SetDefaults()
	a := &Analyzer{
		completer: completer,
		cache:     cache,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the deep-analysis result for a listing. A fresh cache
// entry short-circuits the provider call entirely. Cache failures degrade to
// a live call rather than failing the analysis.
func (a *Analyzer) Analyze(ctx context.Context, l *domain.Listing) (*domain.AnalysisResult, error) {
	if cached := a.fromCache(ctx, l.ID); cached != nil {
		if a.metrics != nil {
			a.metrics.AnalysisCacheHits.Inc()
		}
		return cached, nil
	}

	raw, err := a.completer.Complete(ctx, buildPrompt(l))
	if a.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		a.metrics.AnalysisCalls.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("complete analysis for listing %s: %w", l.ID, err)
	}

	result, parseErr := parseResult(raw)
	if parseErr != nil {
		return nil, fmt.Errorf("parse analysis for listing %s: %w", l.ID, parseErr)
	}
	result.ListingID = l.ID
	sanitize(result)

	a.store(ctx, result)
	return result, nil
}

// AnalyzeBatch analyzes each listing independently. One failure never aborts
// the batch; the report accounts for every input exactly once.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, listings []*domain.Listing) *domain.BatchAnalysisReport {
	report := &domain.BatchAnalysisReport{
		Total:   len(listings),
		Results: make([]*domain.AnalysisResult, 0, len(listings)),
		Errors:  make(map[string]string),
	}

	for _, l := range listings {
		result, err := a.Analyze(ctx, l)
		if err != nil {
			report.Failed++
			report.Errors[l.ID] = err.Error()
			a.logger.Warn("Listing analysis failed",
				logger.String("listing_id", l.ID),
				logger.Error(err),
			)
			continue
		}

		report.Successful++
		if result.Cached {
			report.Cached++
		}
		report.Results = append(report.Results, result)
	}

	return report
}

func (a *Analyzer) fromCache(ctx context.Context, listingID string) *domain.AnalysisResult {
	if a.cache == nil {
		return nil
	}

	entry, err := a.cache.Get(ctx, listingID, a.now())
	if err != nil {
		a.logger.Warn("Analysis cache read failed",
			logger.String("listing_id", listingID),
			logger.Error(err),
		)
		return nil
	}
	if entry == nil {
		return nil
	}

	var result domain.AnalysisResult
	if unmarshalErr := json.Unmarshal(entry.Result, &result); unmarshalErr != nil {
		a.logger.Warn("Discarding corrupt analysis cache entry",
			logger.String("listing_id", listingID),
			logger.Error(unmarshalErr),
		)
		return nil
	}

	result.ListingID = listingID
	result.Cached = true
	sanitize(&result)
	return &result
}

func (a *Analyzer) store(ctx context.Context, result *domain.AnalysisResult) {
	if a.cache == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		a.logger.Warn("Analysis cache encode failed",
			logger.String("listing_id", result.ListingID),
			logger.Error(err),
		)
		return
	}

	now := a.now()
	entry := &domain.AnalysisCacheEntry{
		ListingID: result.ListingID,
		Result:    payload,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.CacheTTL),
	}
	if putErr := a.cache.Put(ctx, entry); putErr != nil {
		a.logger.Warn("Analysis cache write failed",
			logger.String("listing_id", result.ListingID),
			logger.Error(putErr),
		)
	}
}

func buildPrompt(l *domain.Listing) string {
	var b strings.Builder

	b.WriteString("You are a resale arbitrage analyst. Assess the flip potential of this marketplace listing.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", l.Title)
	fmt.Fprintf(&b, "Asking price: $%.2f\n", l.AskingPrice)
	fmt.Fprintf(&b, "Condition: %s\n", l.Condition)
	fmt.Fprintf(&b, "Photos: %d\n", len(l.ImageURLs))
	if l.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", l.Category)
	}
	if l.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", l.Brand)
	}
	if l.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", truncate(l.Description, 1500))
	}

	b.WriteString(`
Respond with a single JSON object, no prose, with these fields:
{
  "flippability_score": <0-100 integer>,
  "confidence": "low" | "medium" | "high",
  "estimated_value": <realistic resale value in USD>,
  "condition": "<assessed condition>",
  "features": ["<notable value-adding features>"],
  "issues": ["<defects or red flags in the listing>"],
  "risks": ["<resale risks>"],
  "summary": "<two sentences max>"
}`)

	return b.String()
}

// parseResult decodes a model response, tolerating markdown code fences and
// surrounding prose around the JSON object.
func parseResult(raw string) (*domain.AnalysisResult, error) {
	cleaned := stripFences(raw)

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, ErrEmptyResponse
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("decode analysis JSON: %w", err)
	}
	return &result, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// sanitize coerces a decoded result into its documented invariants.
func sanitize(r *domain.AnalysisResult) {
	if r.FlippabilityScore < 0 {
		r.FlippabilityScore = 0
	}
	if r.FlippabilityScore > 100 {
		r.FlippabilityScore = 100
	}

	switch r.Confidence {
	case domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh:
	default:
		r.Confidence = domain.ConfidenceMedium
	}

	if r.Features == nil {
		r.Features = []string{}
	}
	if r.Issues == nil {
		r.Issues = []string{}
	}
	if r.Risks == nil {
		r.Risks = []string{}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
