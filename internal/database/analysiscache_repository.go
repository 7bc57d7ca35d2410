package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// AnalysisCacheRepository handles the deep-analysis result cache table.
// Expired entries are treated as absent at read time; they are never
// physically purged by the pipeline.
type AnalysisCacheRepository struct {
	db *sqlx.DB
}

// NewAnalysisCacheRepository creates a new analysis-cache repository.
func NewAnalysisCacheRepository(db *sqlx.DB) *AnalysisCacheRepository {
	return &AnalysisCacheRepository{db: db}
}

// Get returns the cache entry for a listing, or (nil, nil) when no entry
// exists or the entry has expired relative to now.
func (r *AnalysisCacheRepository) Get(ctx context.Context, listingID string, now time.Time) (*domain.AnalysisCacheEntry, error) {
	var entry domain.AnalysisCacheEntry
	query := `
		SELECT listing_id, result, created_at, expires_at
		FROM analysis_cache
		WHERE listing_id = $1
	`

	err := r.db.GetContext(ctx, &entry, query, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis cache: %w", err)
	}

	if entry.Expired(now) {
		return nil, nil
	}

	return &entry, nil
}

// Put stores a cache entry, replacing any previous entry for the listing.
func (r *AnalysisCacheRepository) Put(ctx context.Context, entry *domain.AnalysisCacheEntry) error {
	query := `
		INSERT INTO analysis_cache (listing_id, result, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (listing_id) DO UPDATE SET
			result = EXCLUDED.result,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ListingID, entry.Result, entry.CreatedAt, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("put analysis cache: %w", err)
	}

	return nil
}
