// Package history provides the append-only price history ledger.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one price change of a product
type Entry struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Price     float64   `json:"price"`
	ChangedAt time.Time `json:"changed_at"`
}

// Repository appends and reads price history in ledger.db.
// Rows are never updated or deleted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "price_history").Logger(),
	}
}

// Append records a price change
func (r *Repository) Append(ctx context.Context, productID int64, price float64, changedAt time.Time) (*Entry, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO price_history (product_id, price, changed_at) VALUES (?, ?, ?)",
		productID, price, changedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append price history for product %d: %w", productID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get price history id: %w", err)
	}

	return &Entry{ID: id, ProductID: productID, Price: price, ChangedAt: time.Unix(changedAt.Unix(), 0).UTC()}, nil
}

// ListByProduct returns a product's price history in ascending time order
func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, price, changed_at
		FROM price_history
		WHERE product_id = ?
		ORDER BY changed_at ASC, id ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for product %d: %w", productID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListSince returns price changes of the given products at or after since, in ascending time order
func (r *Repository) ListSince(ctx context.Context, productIDs []int64, since time.Time) ([]Entry, error) {
	if len(productIDs) == 0 {
		return []Entry{}, nil
	}

	placeholders, args := inClause(productIDs)
	args = append(args, since.Unix())

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, price, changed_at
		FROM price_history
		WHERE product_id IN (`+placeholders+`) AND changed_at >= ?
		ORDER BY changed_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var changedAt int64
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Price, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		e.ChangedAt = time.Unix(changedAt, 0).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}
	return entries, nil
}

// inClause builds "?, ?, ?" and its arguments for an IN list
func inClause(ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
