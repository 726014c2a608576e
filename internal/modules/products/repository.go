package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles product database operations in catalog.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new product repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "products").Logger(),
	}
}

const productColumns = `id, user_id, name, category, description, image_url, cost_price,
	current_price, min_price, max_price, stock_level, created_at, updated_at`

// Create inserts a product and sets its ID
func (r *Repository) Create(ctx context.Context, p *Product) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO products (user_id, name, category, description, image_url, cost_price,
			current_price, min_price, max_price, stock_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.UserID, p.Name, p.Category, p.Description, p.ImageURL, p.CostPrice,
		p.CurrentPrice, nullableFloat(p.MinimumPrice), nullableFloat(p.MaximumPrice),
		p.StockLevel, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get product id: %w", err)
	}
	p.ID = id

	return nil
}

// GetByID returns a product regardless of owner
func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

// ListByUser returns a user's products ordered by name
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products WHERE user_id = ? ORDER BY name, id", userID)
}

// ListAll returns every product ordered by id
func (r *Repository) ListAll(ctx context.Context) ([]Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// UpdatePrice sets a product's current price
func (r *Repository) UpdatePrice(ctx context.Context, id int64, price float64, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE products SET current_price = ?, updated_at = ? WHERE id = ?",
		price, at.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update price of product %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DecrementStock lowers the stock level by quantity, floored at zero, and returns the new level
func (r *Repository) DecrementStock(ctx context.Context, id int64, quantity int, at time.Time) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET stock_level = MAX(0, stock_level - ?), updated_at = ?
		WHERE id = ?
		RETURNING stock_level
	`, quantity, at.Unix(), id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update stock of product %d: %w", id, err)
	}

	return stock, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s rowScanner) (*Product, error) {
	var p Product
	var minPrice, maxPrice sql.NullFloat64
	var createdAt, updatedAt int64

	if err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Category, &p.Description, &p.ImageURL,
		&p.CostPrice, &p.CurrentPrice, &minPrice, &maxPrice, &p.StockLevel,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if minPrice.Valid {
		p.MinimumPrice = &minPrice.Float64
	}
	if maxPrice.Valid {
		p.MaximumPrice = &maxPrice.Float64
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &p, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
