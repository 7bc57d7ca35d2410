package domain

import (
	"time"
)

// Listing is the canonical, source-agnostic representation of a marketplace item.
// Uniqueness is enforced on (platform, external_id, owner_id): a repeated scan
// updates the existing row rather than duplicating it.
type Listing struct {
	ID         string   `db:"id" json:"id"`
	OwnerID    string   `db:"owner_id" json:"owner_id"`
	Platform   Platform `db:"platform" json:"platform"`
	ExternalID string   `db:"external_id" json:"external_id"`

	URL           string      `db:"url" json:"url"`
	Title         string      `db:"title" json:"title"`
	Description   string      `db:"description" json:"description,omitempty"`
	AskingPrice   float64     `db:"asking_price" json:"asking_price"`
	Condition     Condition   `db:"condition" json:"condition"`
	Location      string      `db:"location" json:"location,omitempty"`
	SellerName    string      `db:"seller_name" json:"seller_name,omitempty"`
	SellerContact string      `db:"seller_contact" json:"seller_contact,omitempty"`
	ImageURLs     StringSlice `db:"image_urls" json:"image_urls,omitempty"`
	Category      string      `db:"category" json:"category,omitempty"`
	Brand         string      `db:"brand" json:"brand,omitempty"`

	PostedAt  *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	ScrapedAt time.Time  `db:"scraped_at" json:"scraped_at"`

	// ValueEstimate is embedded so sqlx maps its columns onto the same row.
	ValueEstimate `json:"estimate"`

	// Verified market fields are set by the reconciler when enough sold-price
	// history exists; they override the heuristic estimate for ranking.
	VerifiedValue       *float64 `db:"verified_value" json:"verified_value,omitempty"`
	VerifiedSource      *string  `db:"verified_source" json:"verified_source,omitempty"`
	TrueDiscountPercent *float64 `db:"true_discount_percent" json:"true_discount_percent,omitempty"`

	Status ListingStatus `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ValueEstimate is the heuristic scoring result embedded in every listing.
type ValueEstimate struct {
	EstimatedValue     float64 `db:"estimated_value" json:"estimated_value"`
	EstimatedValueLow  float64 `db:"estimated_value_low" json:"estimated_value_low"`
	EstimatedValueHigh float64 `db:"estimated_value_high" json:"estimated_value_high"`

	ProfitPotential float64 `db:"profit_potential" json:"profit_potential"`
	ProfitLow       float64 `db:"profit_low" json:"profit_low"`
	ProfitHigh      float64 `db:"profit_high" json:"profit_high"`

	// ValueScore is always within [0, 100].
	ValueScore int `db:"value_score" json:"value_score"`
	// DiscountPercent is never negative.
	DiscountPercent float64 `db:"discount_percent" json:"discount_percent"`

	ResaleDifficulty ResaleDifficulty `db:"resale_difficulty" json:"resale_difficulty"`
	Comparables      ComparableList   `db:"comparables" json:"comparables,omitempty"`
	Reasoning        string           `db:"reasoning" json:"reasoning,omitempty"`
	Notes            string           `db:"notes" json:"notes,omitempty"`

	Shippable  bool `db:"shippable" json:"shippable"`
	Negotiable bool `db:"negotiable" json:"negotiable"`

	Tags            StringSlice `db:"tags" json:"tags,omitempty"`
	OutreachMessage string      `db:"outreach_message" json:"outreach_message,omitempty"`
}

// Comparable is a reference listing used to justify a value estimate.
type Comparable struct {
	Type  ComparableType `json:"type"`
	Title string         `json:"title"`
	Price float64        `json:"price"`
}

// EffectiveDiscount returns the true discount when verified market data is
// present, falling back to the heuristic discount otherwise.
func (l *Listing) EffectiveDiscount() float64 {
	if l.TrueDiscountPercent != nil {
		return *l.TrueDiscountPercent
	}
	return l.DiscountPercent
}

// NaturalKey returns the de-duplication identity of the listing.
func (l *Listing) NaturalKey() string {
	return string(l.Platform) + ":" + l.ExternalID + ":" + l.OwnerID
}
