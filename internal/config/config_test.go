package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRICEPOINT_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.DirExists(t, cfg.DataDir)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "0 0 3 * * *", cfg.RecommendationSchedule)
	assert.Equal(t, "0 0 4 * * *", cfg.MaintenanceSchedule)
	require.NotNil(t, cfg.Backup)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PRICEPOINT_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("RECOMMENDATION_SCHEDULE", "@hourly")
	t.Setenv("MAINTENANCE_SCHEDULE", "0 0 5 * * 0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "@hourly", cfg.RecommendationSchedule)
	assert.Equal(t, "0 0 5 * * 0", cfg.MaintenanceSchedule)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PRICEPOINT_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "not-a-port")
	t.Setenv("DEV_MODE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.DevMode)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("PRICEPOINT_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DEV_MODE", "false")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_DevModeSecret(t *testing.T) {
	t.Setenv("PRICEPOINT_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestValidate_Backup(t *testing.T) {
	cfg := &Config{
		Port:      8080,
		JWTSecret: "secret",
		JWTTTL:    time.Hour,
		Backup:    &BackupConfig{Enabled: true, RetentionDays: 0},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_BUCKET")
	assert.Contains(t, err.Error(), "BACKUP_RETENTION_DAYS")

	cfg.Backup.Bucket = "pricepoint-backups"
	cfg.Backup.RetentionDays = 7
	assert.NoError(t, cfg.Validate())
}
