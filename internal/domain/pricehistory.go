package domain

import "time"

// PriceHistoryRecord is one observed sold price. Records are append-only and
// written only from sold-item observations; repeated observation of the same
// sale is expected and skipped at the store level.
type PriceHistoryRecord struct {
	ID          int64     `db:"id" json:"id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Category    string    `db:"category" json:"category,omitempty"`
	Platform    Platform  `db:"platform" json:"platform"`
	SoldPrice   float64   `db:"sold_price" json:"sold_price"`
	Condition   Condition `db:"condition" json:"condition,omitempty"`
	SoldAt      time.Time `db:"sold_at" json:"sold_at"`
}
