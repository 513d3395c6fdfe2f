// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	Port      int
	LogLevel  string
	DevMode   bool
	JWTSecret string // HMAC secret for verifying bearer tokens on private routes
	SeedDemo  bool   // Seed demo instruments and accounts on startup

	// Background job schedules (robfig/cron expressions, with seconds field)
	CacheCleanupSchedule string
	BackupSchedule       string

	Backup *BackupConfig
}

// BackupConfig holds ledger backup configuration. Backups are written locally
// and, when a bucket is configured, uploaded to S3-compatible storage.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string // Non-empty for S3-compatible providers (e.g. MinIO, R2)
	AccessKeyID     string
	SecretAccessKey string
	Retain          int // Number of remote backups to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	// 1. Check NIVESH_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("NIVESH_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	cfg := &Config{
		DataDir:   absDataDir,
		Port:      getEnvAsInt("PORT", 8080),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		JWTSecret: jwtSecret,
		SeedDemo:  getEnvAsBool("SEED_DEMO_DATA", false),

		// Cache cleanup daily at 03:00, backups daily at 04:00
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		BackupSchedule:       getEnv("BACKUP_SCHEDULE", "0 0 4 * * *"),

		Backup: &BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Retain:          getEnvAsInt("BACKUP_RETAIN", 7),
		},
	}

	if cfg.Backup.Enabled && cfg.Backup.Bucket == "" {
		return nil, fmt.Errorf("BACKUP_ENABLED is set but BACKUP_S3_BUCKET is empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
