package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/pricepoint/internal/database"
	"github.com/aristath/pricepoint/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskWarningPercent is the data-directory usage above which maintenance warns
const DiskWarningPercent = 90.0

// MaintenanceReport summarizes one maintenance run
type MaintenanceReport struct {
	Checked     []string `json:"checked"`
	Vacuumed    []string `json:"vacuumed"`
	DiskPercent float64  `json:"disk_percent"`
	DiskFree    uint64   `json:"disk_free_bytes"`
}

// MaintenanceJob checks database integrity, truncates WAL files,
// vacuums cache databases and reports disk usage of the data directory
type MaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	diskUsage func(ctx context.Context, path string) (*disk.UsageStat, error)
	timeout   time.Duration
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new database maintenance job
func NewMaintenanceJob(databases []*database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		diskUsage: disk.UsageWithContext,
		timeout:   10 * time.Minute,
		log:       log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name for scheduling and logging
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes one maintenance pass
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.Maintain(ctx)
	return err
}

// Maintain runs every maintenance step. A corrupted database fails the run;
// checkpoint, vacuum and disk failures are logged and joined into the error.
func (j *MaintenanceJob) Maintain(ctx context.Context) (*MaintenanceReport, error) {
	defer utils.OperationTimer("database_maintenance", 2*time.Minute, j.log)()

	report := &MaintenanceReport{}
	var errs []error

	for _, db := range j.databases {
		if err := db.QuickCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			return report, fmt.Errorf("database %s is corrupted: %w", db.Name(), err)
		}
		report.Checked = append(report.Checked, db.Name())

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			errs = append(errs, err)
		}

		if db.Profile() != database.ProfileCache {
			continue
		}
		if _, err := db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Vacuum failed")
			errs = append(errs, fmt.Errorf("failed to vacuum %s: %w", db.Name(), err))
			continue
		}
		report.Vacuumed = append(report.Vacuumed, db.Name())
	}

	usage, err := j.diskUsage(ctx, j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		errs = append(errs, fmt.Errorf("failed to read disk usage: %w", err))
	} else {
		report.DiskPercent = usage.UsedPercent
		report.DiskFree = usage.Free

		event := j.log.Info()
		if usage.UsedPercent > DiskWarningPercent {
			event = j.log.Warn()
		}
		event.
			Float64("used_percent", usage.UsedPercent).
			Uint64("free_bytes", usage.Free).
			Msg("Data directory disk usage")
	}

	j.log.Info().
		Strs("checked", report.Checked).
		Strs("vacuumed", report.Vacuumed).
		Msg("Database maintenance completed")

	return report, errors.Join(errs...)
}
