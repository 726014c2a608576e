package competitors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository manages competitors in catalog.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new competitor repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "competitors").Logger(),
	}
}

// Create inserts a competitor and sets its ID
func (r *Repository) Create(ctx context.Context, c *Competitor) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO competitors (user_id, name, website, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.UserID, c.Name, c.Website, c.Notes, c.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create competitor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get competitor id: %w", err)
	}
	c.ID = id

	return nil
}

// GetByID returns a competitor or ErrNotFound
func (r *Repository) GetByID(ctx context.Context, id int64) (*Competitor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, website, notes, created_at
		FROM competitors WHERE id = ?
	`, id)

	c, err := scanCompetitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor %d: %w", id, err)
	}
	return c, nil
}

// ListByUser returns a user's competitors ordered by name
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Competitor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, website, notes, created_at
		FROM competitors WHERE user_id = ?
		ORDER BY name, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitors: %w", err)
	}
	defer rows.Close()

	competitors := make([]Competitor, 0)
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competitor: %w", err)
		}
		competitors = append(competitors, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitors: %w", err)
	}
	return competitors, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCompetitor(s scanner) (*Competitor, error) {
	var c Competitor
	var createdAt int64
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Website, &c.Notes, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}
