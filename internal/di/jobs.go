package di

import (
	"fmt"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/config"
	"github.com/aristath/pricepoint/internal/reliability"
	"github.com/aristath/pricepoint/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers every background job on its configured schedule
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(container.JobHistoryRepo, container.EventManager, log)
	container.Scheduler = sched

	instances := &JobInstances{
		RefreshRecommendations: scheduler.NewRefreshRecommendationsJob(container.RecommendationService, log),
		CacheCleanup:           cache.NewCleanupJob(container.FeatureRepo, log),
		Maintenance:            reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log),
	}

	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.RecommendationSchedule, instances.RefreshRecommendations},
		{cfg.CacheCleanupSchedule, instances.CacheCleanup},
		{cfg.MaintenanceSchedule, instances.Maintenance},
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(
			container.BackupService,
			cfg.Backup.RetentionDays,
			container.EventManager,
			log,
		)
		schedules = append(schedules, struct {
			schedule string
			job      scheduler.Job
		}{cfg.Backup.Schedule, instances.Backup})
	}

	for _, s := range schedules {
		if err := sched.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Background jobs registered")

	return instances, nil
}
