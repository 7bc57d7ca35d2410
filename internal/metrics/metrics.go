// Package metrics exports Prometheus instrumentation for the scan pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline Prometheus metrics.
type Metrics struct {
	// Scan metrics
	ScansTotal    *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
	ScanFailures  *prometheus.CounterVec
	ListingsFound *prometheus.CounterVec
	ListingsSaved *prometheus.CounterVec

	// Scoring metrics
	OpportunitiesFound *prometheus.CounterVec
	ValueScore         prometheus.Histogram

	// Source metrics
	FetchFailures *prometheus.CounterVec
	FetchBlocked  *prometheus.CounterVec

	// Analysis metrics
	AnalysisCalls     *prometheus.CounterVec
	AnalysisCacheHits prometheus.Counter
}

// New registers and returns the pipeline metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests pass a fresh
// registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_scans_total",
			Help: "Total scan jobs started, by platform",
		}, []string{"platform"}),
		ScanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flipscout_scan_duration_seconds",
			Help:    "End-to-end scan duration, by platform",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"platform"}),
		ScanFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_scan_failures_total",
			Help: "Scan jobs that ended in a failed state, by platform",
		}, []string{"platform"}),
		ListingsFound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_listings_found_total",
			Help: "Raw listings returned by source adapters, by platform",
		}, []string{"platform"}),
		ListingsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_listings_saved_total",
			Help: "Listings persisted after normalization and scoring, by platform",
		}, []string{"platform"}),
		OpportunitiesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_opportunities_total",
			Help: "Listings classified as opportunities, by platform",
		}, []string{"platform"}),
		ValueScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flipscout_value_score",
			Help:    "Distribution of heuristic value scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_fetch_failures_total",
			Help: "Source fetch failures, by platform and error class",
		}, []string{"platform", "class"}),
		FetchBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_fetch_blocked_total",
			Help: "Source fetches rejected by anti-bot measures, by platform",
		}, []string{"platform"}),
		AnalysisCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipscout_analysis_calls_total",
			Help: "Deep-analysis provider calls, by outcome",
		}, []string{"outcome"}),
		AnalysisCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "flipscout_analysis_cache_hits_total",
			Help: "Deep-analysis results served from the cache",
		}),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScan records the duration of a completed scan.
func (m *Metrics) ObserveScan(platform string, start time.Time) {
	m.ScanDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())
}
