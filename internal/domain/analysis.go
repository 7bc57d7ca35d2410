package domain

import "time"

// Confidence levels recognized in deep-analysis results.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// AnalysisResult is the structured output of a deep-analysis call for one listing.
type AnalysisResult struct {
	ListingID string `json:"listing_id"`
	// FlippabilityScore is clamped to [0, 100].
	FlippabilityScore int `json:"flippability_score"`
	// Confidence is one of low/medium/high; unrecognized values default to medium.
	Confidence     string   `json:"confidence"`
	EstimatedValue float64  `json:"estimated_value"`
	Condition      string   `json:"condition,omitempty"`
	Features       []string `json:"features"`
	Issues         []string `json:"issues"`
	Risks          []string `json:"risks"`
	Summary        string   `json:"summary,omitempty"`
	// Cached reports whether the result was served from the cache table.
	Cached bool `json:"cached"`
}

// AnalysisCacheEntry is one cached deep-analysis result. Expired entries are
// treated as absent and are never physically purged by the pipeline.
type AnalysisCacheEntry struct {
	ListingID string    `db:"listing_id" json:"listing_id"`
	Result    []byte    `db:"result" json:"result"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *AnalysisCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// BatchAnalysisReport is the per-item accounting for a batch analysis run.
// Successful + Failed always equals Total; Cached never exceeds Successful.
type BatchAnalysisReport struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Cached     int               `json:"cached"`
	Results    []*AnalysisResult `json:"results"`
	Errors     map[string]string `json:"errors,omitempty"`
}
