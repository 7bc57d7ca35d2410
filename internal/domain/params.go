package domain

import (
	"errors"
	"strings"
)

// MaxResultsPerScan caps the number of items any adapter returns per call,
// bounding the work done by a single job.
const MaxResultsPerScan = 50

// ErrEmptyKeywords is returned when a scan is requested without a search term.
var ErrEmptyKeywords = errors.New("search keywords must not be empty")

// SearchParams describe one marketplace search.
type SearchParams struct {
	Keywords  string    `json:"keywords"`
	Category  string    `json:"category,omitempty"`
	Condition Condition `json:"condition,omitempty"`
	Location  string    `json:"location,omitempty"`
	MinPrice  float64   `json:"min_price,omitempty"`
	MaxPrice  float64   `json:"max_price,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Validate checks the parameters and clamps the result limit.
func (p *SearchParams) Validate() error {
	p.Keywords = strings.TrimSpace(p.Keywords)
	if p.Keywords == "" {
		return ErrEmptyKeywords
	}
	if p.Limit <= 0 || p.Limit > MaxResultsPerScan {
		p.Limit = MaxResultsPerScan
	}
	if p.MinPrice < 0 {
		p.MinPrice = 0
	}
	if p.MaxPrice < 0 {
		p.MaxPrice = 0
	}
	return nil
}
