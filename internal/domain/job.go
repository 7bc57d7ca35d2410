package domain

import "time"

// ScrapeJob is one auditable execution of a scan against one marketplace source.
// It is created in RUNNING state before any network call so a crash is always
// observable, and is terminal once COMPLETED or FAILED.
type ScrapeJob struct {
	ID       string   `db:"id" json:"id"`
	OwnerID  string   `db:"owner_id" json:"owner_id"`
	Platform Platform `db:"platform" json:"platform"`

	Keywords string  `db:"keywords" json:"keywords"`
	Category string  `db:"category" json:"category,omitempty"`
	Location string  `db:"location" json:"location,omitempty"`
	MinPrice float64 `db:"min_price" json:"min_price,omitempty"`
	MaxPrice float64 `db:"max_price" json:"max_price,omitempty"`

	Status             JobStatus `db:"status" json:"status"`
	ListingsFound      int       `db:"listings_found" json:"listings_found"`
	OpportunitiesFound int       `db:"opportunities_found" json:"opportunities_found"`
	ErrorMessage       *string   `db:"error_message" json:"error_message,omitempty"`

	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
