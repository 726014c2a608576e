package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJob_Name(t *testing.T) {
	job := NewCleanupJob(nil, zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJob_RemovesExpired(t *testing.T) {
	now := baseTime
	repo := newFeatureRepo(t, &now)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleSnapshot(1), time.Minute))
	require.NoError(t, repo.Store(ctx, sampleSnapshot(2), time.Hour))
	now = baseTime.Add(30 * time.Minute)

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	var remaining int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM feature_snapshots").Scan(&remaining))
	assert.Equal(t, 1, remaining)
}
