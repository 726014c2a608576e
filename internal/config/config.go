// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	Port      int
	LogLevel  string
	LogPretty bool
	DevMode   bool

	JWTSecret string
	JWTTTL    time.Duration

	// Cron schedules (six fields, seconds first)
	RecommendationSchedule string
	CacheCleanupSchedule   string
	MaintenanceSchedule    string

	Backup *BackupConfig
}

// BackupConfig holds the S3-compatible backup target
type BackupConfig struct {
	Enabled         bool
	Schedule        string
	Bucket          string
	Endpoint        string // Empty means AWS S3; set for R2/MinIO
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// devJWTSecret is only accepted when DEV_MODE is on
const devJWTSecret = "pricepoint-dev-secret"

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PRICEPOINT_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		Port:                   getEnvAsInt("PORT", 8080),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogPretty:              getEnvAsBool("LOG_PRETTY", true),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTTTL:                 time.Duration(getEnvAsInt("JWT_TTL_HOURS", 24)) * time.Hour,
		RecommendationSchedule: getEnv("RECOMMENDATION_SCHEDULE", "0 0 3 * * *"),
		CacheCleanupSchedule:   getEnv("CACHE_CLEANUP_SCHEDULE", "0 */30 * * * *"),
		MaintenanceSchedule:    getEnv("MAINTENANCE_SCHEDULE", "0 0 4 * * *"),
		Backup:                 loadBackupConfig(),
	}

	if cfg.JWTSecret == "" && cfg.DevMode {
		cfg.JWTSecret = devJWTSecret
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT: %d", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required (or set DEV_MODE=true)"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}

	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			errs = append(errs, errors.New("BACKUP_BUCKET is required when backups are enabled"))
		}
		if c.Backup.RetentionDays <= 0 {
			errs = append(errs, errors.New("BACKUP_RETENTION_DAYS must be positive"))
		}
	}

	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// loadBackupConfig loads backup configuration; backups are off unless asked for
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 30 2 * * *"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
