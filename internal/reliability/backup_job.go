package reliability

import (
	"context"
	"time"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/rs/zerolog"
)

// BackupJob uploads a backup and rotates old archives
type BackupJob struct {
	service       *BackupService
	retentionDays int
	eventManager  *events.Manager
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, eventManager *events.Manager, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		eventManager:  eventManager,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Run creates and uploads a backup, then rotates old ones.
// A failed rotation is logged and does not fail the job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.service.CreateAndUploadBackup(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}

	deleted, err := j.service.RotateOldBackups(ctx, j.retentionDays)
	if err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}

	j.eventManager.EmitTyped("reliability", &events.BackupCompletedData{
		Archive:    result.Archive,
		SizeBytes:  result.SizeBytes,
		DurationMs: result.Duration.Milliseconds(),
		Deleted:    deleted,
	})

	return nil
}

// Name returns the job name for scheduling and logging
func (j *BackupJob) Name() string {
	return "backup"
}
