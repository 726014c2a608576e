package reliability

import (
	"context"
	"errors"
	"testing"

	testingpkg "github.com/aristath/pricepoint/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaintenanceJob(t *testing.T) *MaintenanceJob {
	t.Helper()

	dbs := testingpkg.NewTestDatabases(t)
	job := NewMaintenanceJob(dbs.All(), t.TempDir(), zerolog.Nop())
	job.diskUsage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, UsedPercent: 42.5, Free: 1 << 30}, nil
	}
	return job
}

func TestMaintenanceJob_Maintain(t *testing.T) {
	job := newMaintenanceJob(t)
	assert.Equal(t, "database_maintenance", job.Name())

	report, err := job.Maintain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"catalog", "ledger", "cache"}, report.Checked)
	assert.Equal(t, []string{"cache"}, report.Vacuumed)
	assert.Equal(t, 42.5, report.DiskPercent)
	assert.Equal(t, uint64(1<<30), report.DiskFree)
}

func TestMaintenanceJob_DiskUsageFailure(t *testing.T) {
	job := newMaintenanceJob(t)
	diskErr := errors.New("no such mount")
	job.diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, diskErr
	}

	report, err := job.Maintain(context.Background())
	require.ErrorIs(t, err, diskErr)
	assert.Len(t, report.Checked, 3)
}

func TestMaintenanceJob_RunReal(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)
	job := NewMaintenanceJob(dbs.All(), t.TempDir(), zerolog.Nop())

	assert.NoError(t, job.Run())
}
