// Package domain provides domain models used across the application.
package domain

// Platform identifies a marketplace source.
type Platform string

const (
	PlatformEBay       Platform = "ebay"
	PlatformCraigslist Platform = "craigslist"
	PlatformFacebook   Platform = "facebook"
	PlatformOfferUp    Platform = "offerup"
)

// IsValid reports whether the platform is one of the supported marketplaces.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformEBay, PlatformCraigslist, PlatformFacebook, PlatformOfferUp:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ListingStatus represents the pipeline-derived state of a listing.
// Downstream states past "opportunity" are set by the CRUD layer, not
// by the scan pipeline.
type ListingStatus string

const (
	ListingStatusNew         ListingStatus = "new"
	ListingStatusOpportunity ListingStatus = "opportunity"
	ListingStatusContacted   ListingStatus = "contacted"
	ListingStatusPurchased   ListingStatus = "purchased"
	ListingStatusSold        ListingStatus = "sold"
)

// Condition is the normalized item condition shared by all adapters.
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionLikeNew    Condition = "like_new"
	ConditionVeryGood   Condition = "very_good"
	ConditionGood       Condition = "good"
	ConditionAcceptable Condition = "acceptable"
	ConditionPoor       Condition = "poor"
)

// ResaleDifficulty is an ordinal estimate of how hard an item is to flip.
type ResaleDifficulty string

const (
	DifficultyEasy   ResaleDifficulty = "easy"
	DifficultyMedium ResaleDifficulty = "medium"
	DifficultyHard   ResaleDifficulty = "hard"
)

// ComparableType tags a comparable-listing reference for user-facing justification.
type ComparableType string

const (
	ComparableSold        ComparableType = "sold"
	ComparableActive      ComparableType = "active"
	ComparableRetail      ComparableType = "retail"
	ComparableMarketplace ComparableType = "marketplace"
)
