package sales

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository appends and reads sales in ledger.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new sales repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "sales").Logger(),
	}
}

// Insert appends a sale and sets its ID
func (r *Repository) Insert(ctx context.Context, sale *Sale) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO sales (product_id, quantity, price, sold_at) VALUES (?, ?, ?, ?)",
		sale.ProductID, sale.Quantity, sale.Price, sale.SoldAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get sale id: %w", err)
	}
	sale.ID = id

	return nil
}

// ListRecent returns up to limit of a product's most recent sales, newest first
func (r *Repository) ListRecent(ctx context.Context, productID int64, limit int) ([]Sale, error) {
	return r.query(ctx, `
		SELECT id, product_id, quantity, price, sold_at FROM sales
		WHERE product_id = ?
		ORDER BY sold_at DESC, id DESC
		LIMIT ?
	`, productID, limit)
}

// ListByProduct returns all of a product's sales, oldest first
func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]Sale, error) {
	return r.query(ctx, `
		SELECT id, product_id, quantity, price, sold_at FROM sales
		WHERE product_id = ?
		ORDER BY sold_at ASC, id ASC
	`, productID)
}

// ListSince returns sales of the given products at or after since, oldest first
func (r *Repository) ListSince(ctx context.Context, productIDs []int64, since time.Time) ([]Sale, error) {
	if len(productIDs) == 0 {
		return []Sale{}, nil
	}

	args := make([]interface{}, 0, len(productIDs)+1)
	for _, id := range productIDs {
		args = append(args, id)
	}
	args = append(args, since.Unix())
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(productIDs)), ", ")

	return r.query(ctx, `
		SELECT id, product_id, quantity, price, sold_at FROM sales
		WHERE product_id IN (`+placeholders+`) AND sold_at >= ?
		ORDER BY sold_at ASC, id ASC
	`, args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]Sale, 0)
	for rows.Next() {
		var s Sale
		var soldAt int64
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Quantity, &s.Price, &soldAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		s.SoldAt = time.Unix(soldAt, 0).UTC()
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}
	return sales, nil
}
