package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes expired feature snapshots
type CleanupJob struct {
	repo *FeatureRepository
	log  zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job
func NewCleanupJob(repo *FeatureRepository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run deletes every expired snapshot
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := j.repo.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired feature snapshots")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired feature snapshots")
	}

	return nil
}

// Name returns the job name for scheduling and logging
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
