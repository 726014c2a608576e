package recommendations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/pricepoint/internal/modules/pricing"
	"github.com/rs/zerolog"
)

// Repository stores recommendations in catalog.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new recommendation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "recommendations").Logger(),
	}
}

const selectColumns = `
	r.uuid, r.product_id, p.name, r.current_price, r.recommended_price,
	r.potential_revenue_increase, r.rationale, r.factors, r.status, r.created_at, r.updated_at
`

// Insert stores a new recommendation
func (r *Repository) Insert(ctx context.Context, rec *Recommendation) error {
	factors := pricing.Recommendation{Factors: rec.Factors}.FactorsJSON()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_recommendations
			(uuid, product_id, current_price, recommended_price, potential_revenue_increase,
			 rationale, factors, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.UUID, rec.ProductID, rec.CurrentPrice, rec.RecommendedPrice, rec.PotentialRevenueIncrease,
		rec.Rationale, factors, rec.Status, rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation for product %d: %w", rec.ProductID, err)
	}
	return nil
}

// GetByUUID returns a recommendation or ErrNotFound
func (r *Repository) GetByUUID(ctx context.Context, id string) (*Recommendation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM price_recommendations r
		JOIN products p ON p.id = r.product_id
		WHERE r.uuid = ?
	`, id)

	rec, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation %s: %w", id, err)
	}
	return rec, nil
}

// ListByProduct returns up to limit of a product's recommendations, newest first
func (r *Repository) ListByProduct(ctx context.Context, productID int64, limit int) ([]Recommendation, error) {
	return r.query(ctx, `
		SELECT `+selectColumns+`
		FROM price_recommendations r
		JOIN products p ON p.id = r.product_id
		WHERE r.product_id = ?
		ORDER BY r.created_at DESC, r.rowid DESC
		LIMIT ?
	`, productID, limit)
}

// ListByUser returns up to limit of the recommendations for a user's products, newest first
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]Recommendation, error) {
	return r.query(ctx, `
		SELECT `+selectColumns+`
		FROM price_recommendations r
		JOIN products p ON p.id = r.product_id
		WHERE p.user_id = ?
		ORDER BY r.created_at DESC, r.rowid DESC
		LIMIT ?
	`, userID, limit)
}

// CountByUser returns the number of recommendations for a user's products
func (r *Repository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM price_recommendations r
		JOIN products p ON p.id = r.product_id
		WHERE p.user_id = ?
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return count, nil
}

// UpdateStatus moves a recommendation from one status to another.
// Returns ErrInvalidStatusTransition if the recommendation is no longer in status from.
func (r *Repository) UpdateStatus(ctx context.Context, id, from, to string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE price_recommendations SET status = ?, updated_at = ? WHERE uuid = ? AND status = ?",
		to, at.Unix(), id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update recommendation %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrInvalidStatusTransition
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecommendation(s scanner) (*Recommendation, error) {
	var rec Recommendation
	var factors string
	var createdAt, updatedAt int64

	err := s.Scan(
		&rec.UUID, &rec.ProductID, &rec.ProductName, &rec.CurrentPrice, &rec.RecommendedPrice,
		&rec.PotentialRevenueIncrease, &rec.Rationale, &factors, &rec.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Factors, err = pricing.ParseFactors(factors)
	if err != nil {
		return nil, fmt.Errorf("invalid factors for recommendation %s: %w", rec.UUID, err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &rec, nil
}
