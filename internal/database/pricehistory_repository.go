package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// PriceHistoryRepository handles the append-only sold-price table.
type PriceHistoryRepository struct {
	db *sqlx.DB
}

// NewPriceHistoryRepository creates a new price-history repository.
func NewPriceHistoryRepository(db *sqlx.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Insert appends one sold-price observation. Repeated observation of the
// same sale is expected; duplicates are skipped, never an error.
func (r *PriceHistoryRepository) Insert(ctx context.Context, rec *domain.PriceHistoryRecord) error {
	query := `
		INSERT INTO price_history (product_name, category, platform, sold_price, condition, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_name, platform, sold_price, sold_at) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ProductName, rec.Category, rec.Platform, rec.SoldPrice, rec.Condition, rec.SoldAt)
	if err != nil {
		return fmt.Errorf("insert price history: %w", err)
	}

	return nil
}

// RecentSoldPrices returns sold prices for products whose name matches the
// query, newest first, bounded by the cutoff and limit. Used by the
// verified-market reconciler.
func (r *PriceHistoryRepository) RecentSoldPrices(ctx context.Context, productName string, platform domain.Platform, since time.Time, limit int) ([]float64, error) {
	query := `
		SELECT sold_price
		FROM price_history
		WHERE product_name ILIKE '%' || $1 || '%'
		  AND ($2 = '' OR platform = $2)
		  AND sold_at >= $3
		ORDER BY sold_at DESC
		LIMIT $4
	`

	var prices []float64
	err := r.db.SelectContext(ctx, &prices, query, productName, string(platform), since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sold prices: %w", err)
	}

	return prices, nil
}
