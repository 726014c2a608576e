// Package cache provides the cache.db repositories: feature snapshots and job history.
// Snapshots are msgpack blobs with expiration timestamps for cache-first reads.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/pricepoint/internal/modules/pricing"
	"github.com/vmihailenco/msgpack/v5"
)

// TTLFeatures is how long an extracted feature vector stays fresh
const TTLFeatures = 10 * time.Minute

// FeatureSnapshot is a cached feature vector
type FeatureSnapshot struct {
	ProductID   int64            `msgpack:"product_id" json:"product_id"`
	Features    pricing.Features `msgpack:"features" json:"features"`
	ExtractedAt time.Time        `msgpack:"extracted_at" json:"extracted_at"`
}

// FeatureRepository stores feature snapshots keyed by product id.
// Each product carries an invalidation version; a snapshot extracted under an
// older version is never stored.
type FeatureRepository struct {
	db  *sql.DB
	now func() time.Time

	mu       sync.Mutex
	versions map[int64]uint64
}

// NewFeatureRepository creates a new feature snapshot repository
func NewFeatureRepository(db *sql.DB) *FeatureRepository {
	return &FeatureRepository{db: db, now: time.Now, versions: make(map[int64]uint64)}
}

// Version returns the product's invalidation version.
// Read it before loading the records a snapshot is extracted from.
func (r *FeatureRepository) Version(productID int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[productID]
}

// Store saves a snapshot with expiration = now + ttl, replacing any previous one
func (r *FeatureRepository) Store(ctx context.Context, snapshot FeatureSnapshot, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store(ctx, snapshot, ttl)
}

// StoreIfCurrent saves the snapshot only if the product has not been invalidated
// since version was read. Returns false when the snapshot was discarded.
func (r *FeatureRepository) StoreIfCurrent(ctx context.Context, snapshot FeatureSnapshot, ttl time.Duration, version uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.versions[snapshot.ProductID] != version {
		return false, nil
	}
	if err := r.store(ctx, snapshot, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (r *FeatureRepository) store(ctx context.Context, snapshot FeatureSnapshot, ttl time.Duration) error {
	data, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal feature snapshot: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()

	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO feature_snapshots (product_id, data, expires_at) VALUES (?, ?, ?)",
		snapshot.ProductID, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store feature snapshot for product %d: %w", snapshot.ProductID, err)
	}

	return nil
}

// GetIfFresh returns the snapshot only if it has not expired.
// Returns nil, nil if the product has no snapshot or it is stale.
func (r *FeatureRepository) GetIfFresh(ctx context.Context, productID int64) (*FeatureSnapshot, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM feature_snapshots WHERE product_id = ? AND expires_at > ?",
		productID, r.now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature snapshot for product %d: %w", productID, err)
	}

	var snapshot FeatureSnapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feature snapshot for product %d: %w", productID, err)
	}

	return &snapshot, nil
}

// Invalidate removes the snapshot for a product and bumps its version
func (r *FeatureRepository) Invalidate(ctx context.Context, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.versions[productID]++
	if _, err := r.db.ExecContext(ctx, "DELETE FROM feature_snapshots WHERE product_id = ?", productID); err != nil {
		return fmt.Errorf("failed to invalidate feature snapshot for product %d: %w", productID, err)
	}
	return nil
}

// DeleteExpired removes all snapshots where expires_at <= now.
// Returns the number of rows deleted.
func (r *FeatureRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM feature_snapshots WHERE expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired feature snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
