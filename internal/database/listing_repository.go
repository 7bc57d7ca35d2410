package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// ErrListingNotFound is returned when a listing lookup matches no row.
var ErrListingNotFound = errors.New("listing not found")

// ListingRepository handles database operations for canonical listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `
	id, owner_id, platform, external_id, url, title, description, asking_price,
	condition, location, seller_name, seller_contact, image_urls, category, brand,
	posted_at, scraped_at,
	estimated_value, estimated_value_low, estimated_value_high,
	profit_potential, profit_low, profit_high,
	value_score, discount_percent, resale_difficulty, comparables, reasoning, notes,
	shippable, negotiable, tags, outreach_message,
	verified_value, verified_source, true_discount_percent,
	status, created_at, updated_at`

// Upsert inserts or updates a listing keyed by (platform, external_id,
// owner_id). On conflict only mutable descriptive and scoring fields are
// updated; identity fields and created_at are immutable. The listing's ID,
// CreatedAt, and UpdatedAt are populated from the stored row.
func (r *ListingRepository) Upsert(ctx context.Context, l *domain.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	query := `
		INSERT INTO listings (
			id, owner_id, platform, external_id, url, title, description, asking_price,
			condition, location, seller_name, seller_contact, image_urls, category, brand,
			posted_at, scraped_at,
			estimated_value, estimated_value_low, estimated_value_high,
			profit_potential, profit_low, profit_high,
			value_score, discount_percent, resale_difficulty, comparables, reasoning, notes,
			shippable, negotiable, tags, outreach_message,
			verified_value, verified_source, true_discount_percent, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17,
			$18, $19, $20,
			$21, $22, $23,
			$24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33,
			$34, $35, $36, $37
		)
		ON CONFLICT (platform, external_id, owner_id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			asking_price = EXCLUDED.asking_price,
			condition = EXCLUDED.condition,
			location = EXCLUDED.location,
			seller_name = EXCLUDED.seller_name,
			seller_contact = EXCLUDED.seller_contact,
			image_urls = EXCLUDED.image_urls,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			posted_at = EXCLUDED.posted_at,
			scraped_at = EXCLUDED.scraped_at,
			estimated_value = EXCLUDED.estimated_value,
			estimated_value_low = EXCLUDED.estimated_value_low,
			estimated_value_high = EXCLUDED.estimated_value_high,
			profit_potential = EXCLUDED.profit_potential,
			profit_low = EXCLUDED.profit_low,
			profit_high = EXCLUDED.profit_high,
			value_score = EXCLUDED.value_score,
			discount_percent = EXCLUDED.discount_percent,
			resale_difficulty = EXCLUDED.resale_difficulty,
			comparables = EXCLUDED.comparables,
			reasoning = EXCLUDED.reasoning,
			notes = EXCLUDED.notes,
			shippable = EXCLUDED.shippable,
			negotiable = EXCLUDED.negotiable,
			tags = EXCLUDED.tags,
			outreach_message = EXCLUDED.outreach_message,
			verified_value = EXCLUDED.verified_value,
			verified_source = EXCLUDED.verified_source,
			true_discount_percent = EXCLUDED.true_discount_percent,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		l.ID, l.OwnerID, l.Platform, l.ExternalID, l.URL, l.Title, l.Description, l.AskingPrice,
		l.Condition, l.Location, l.SellerName, l.SellerContact, l.ImageURLs, l.Category, l.Brand,
		l.PostedAt, l.ScrapedAt,
		l.EstimatedValue, l.EstimatedValueLow, l.EstimatedValueHigh,
		l.ProfitPotential, l.ProfitLow, l.ProfitHigh,
		l.ValueScore, l.DiscountPercent, l.ResaleDifficulty, l.Comparables, l.Reasoning, l.Notes,
		l.Shippable, l.Negotiable, l.Tags, l.OutreachMessage,
		l.VerifiedValue, l.VerifiedSource, l.TrueDiscountPercent, l.Status,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}

	return nil
}

// GetByID retrieves a listing by its id.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	query := `SELECT` + listingColumns + ` FROM listings WHERE id = $1`

	err := r.db.GetContext(ctx, &l, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrListingNotFound, id)
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return &l, nil
}

// ListByOwner retrieves an owner's listings, newest first, optionally
// filtered by status.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string, status domain.ListingStatus, limit, offset int) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	var query string
	var args []any

	if status != "" {
		query = `SELECT` + listingColumns + `
			FROM listings
			WHERE owner_id = $1 AND status = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4`
		args = []any{ownerID, status, limit, offset}
	} else {
		query = `SELECT` + listingColumns + `
			FROM listings
			WHERE owner_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		args = []any{ownerID, limit, offset}
	}

	err := r.db.SelectContext(ctx, &listings, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	if listings == nil {
		listings = []*domain.Listing{}
	}

	return listings, nil
}
