package competitors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// PriceRepository appends and reads competitor price observations in ledger.db
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new competitor price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repository", "competitor_prices").Logger(),
	}
}

// Insert appends an observation and sets its ID
func (r *PriceRepository) Insert(ctx context.Context, p *Price) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO competitor_prices (product_id, competitor_id, price, recorded_at) VALUES (?, ?, ?, ?)",
		p.ProductID, p.CompetitorID, p.Price, p.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert competitor price: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get competitor price id: %w", err)
	}
	p.ID = id

	return nil
}

// ListByProduct returns a product's competitor prices, oldest first
func (r *PriceRepository) ListByProduct(ctx context.Context, productID int64) ([]Price, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, competitor_id, price, recorded_at
		FROM competitor_prices
		WHERE product_id = ?
		ORDER BY recorded_at ASC, id ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitor prices: %w", err)
	}
	defer rows.Close()

	prices := make([]Price, 0)
	for rows.Next() {
		var p Price
		var recordedAt int64
		if err := rows.Scan(&p.ID, &p.ProductID, &p.CompetitorID, &p.Price, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan competitor price: %w", err)
		}
		p.RecordedAt = time.Unix(recordedAt, 0).UTC()
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitor prices: %w", err)
	}
	return prices, nil
}
