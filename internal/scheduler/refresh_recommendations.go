package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RecommendationRefresher regenerates recommendations for every product
type RecommendationRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// RefreshRecommendationsJob creates a fresh pending recommendation per product
type RefreshRecommendationsJob struct {
	refresher RecommendationRefresher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshRecommendationsJob creates a new refresh job
func NewRefreshRecommendationsJob(refresher RecommendationRefresher, log zerolog.Logger) *RefreshRecommendationsJob {
	return &RefreshRecommendationsJob{
		refresher: refresher,
		timeout:   30 * time.Minute,
		log:       log.With().Str("job", "refresh_recommendations").Logger(),
	}
}

// Name returns the job name
func (j *RefreshRecommendationsJob) Name() string {
	return "refresh_recommendations"
}

// Run refreshes every product's recommendation
func (j *RefreshRecommendationsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	generated, err := j.refresher.RefreshAll(ctx)
	if err != nil {
		j.log.Error().Err(err).Int("generated", generated).Msg("Recommendation refresh finished with failures")
		return err
	}

	j.log.Info().Int("generated", generated).Msg("Recommendation refresh completed")
	return nil
}
